// quorumctl applies quorum group requests to a local record database.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/tos-network/gquorum/cmd/utils"
	"github.com/tos-network/gquorum/common"
	"github.com/tos-network/gquorum/config"
	"github.com/tos-network/gquorum/internal/flags"
	"github.com/tos-network/gquorum/log"
	"github.com/tos-network/gquorum/record"
	"github.com/tos-network/gquorum/sysaction"
	"github.com/urfave/cli/v2"

	// Register the system action handlers.
	_ "github.com/tos-network/gquorum/ledger"
	_ "github.com/tos-network/gquorum/multisig"
)

const clientIdentifier = "quorumctl"

// Git SHA1 commit hash of the release (set via linker flags)
var gitCommit = ""
var gitDate = ""

var app *cli.App

func init() {
	app = flags.NewApp(gitCommit, gitDate, "a quorum group control tool")
	app.Flags = append(append([]cli.Flag{}, utils.DatabaseFlags...), utils.LoggingFlags...)
	app.Commands = []*cli.Command{
		commandCreate,
		commandPropose,
		commandProposeOwners,
		commandProposeTransfer,
		commandApprove,
		commandExecute,
		commandFund,
		commandTransfer,
		commandInspect,
		commandServe,
		dumpConfigCommand,
		versionCommand,
	}
	app.Before = func(ctx *cli.Context) error {
		cfg, err := utils.MakeConfig(ctx)
		if err != nil {
			return err
		}
		utils.SetupLogging(&cfg)
		return nil
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withStore opens the configured store, runs fn and commits on success.
func withStore(ctx *cli.Context, readonly bool, fn func(*record.Store) error) error {
	cfg, err := utils.MakeConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.Engine == config.EngineMemory && !readonly {
		log.Warn("Using the memory database, changes are discarded on exit")
	}
	store, db, err := utils.OpenStore(&cfg, readonly)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := fn(store); err != nil {
		return err
	}
	if readonly {
		return nil
	}
	return store.Commit()
}

// submit applies one system action sent by the --from address.
func submit(ctx *cli.Context, kind sysaction.ActionKind, payload interface{}) error {
	from, err := utils.MakeAddress(ctx, utils.FromFlag.Name)
	if err != nil {
		return err
	}
	return withStore(ctx, false, func(store *record.Store) error {
		return apply(store, from, kind, payload)
	})
}

func apply(store *record.Store, from common.Address, kind sysaction.ActionKind, payload interface{}) error {
	data, err := sysaction.MakeSysAction(kind, payload)
	if err != nil {
		return err
	}
	if err := sysaction.Execute(sysaction.Request{Sender: from, Payload: data}, store); err != nil {
		return err
	}
	log.Info("Applied request", "action", kind, "from", from)
	return nil
}

func printAddress(w io.Writer, label string, addr common.Address) {
	fmt.Fprintf(w, "%-10s %s\n", label+":", addr.Hex())
}
