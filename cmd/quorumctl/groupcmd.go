package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tos-network/gquorum/cmd/utils"
	"github.com/tos-network/gquorum/common"
	"github.com/tos-network/gquorum/crypto"
	"github.com/tos-network/gquorum/delegate"
	"github.com/tos-network/gquorum/ledger"
	"github.com/tos-network/gquorum/multisig"
	"github.com/tos-network/gquorum/record"
	"github.com/tos-network/gquorum/sysaction"
	"github.com/urfave/cli/v2"
)

var (
	groupFlag = &cli.StringFlag{
		Name:  "group",
		Usage: "address of the quorum group",
	}
	saltFlag = &cli.StringFlag{
		Name:  "salt",
		Usage: "32 byte hex salt the group address is derived from (random if unset)",
	}
	proposalFlag = &cli.StringFlag{
		Name:  "proposal",
		Usage: "address of the proposal",
	}
	nameFlag = &cli.StringFlag{
		Name:  "name",
		Usage: "display name",
	}
	ownersFlag = &cli.StringFlag{
		Name:  "owners",
		Usage: "comma separated owner addresses",
	}
	thresholdFlag = &cli.Uint64Flag{
		Name:  "threshold",
		Usage: "number of approvals required to execute a proposal",
	}
	nonceFlag = &cli.UintFlag{
		Name:  "nonce",
		Usage: "authority nonce of a new group (0-255)",
	}
	programFlag = &cli.StringFlag{
		Name:  "program",
		Usage: "address of the program the proposed action targets",
	}
	accountsFlag = &cli.StringFlag{
		Name:  "accounts",
		Usage: "comma separated action accounts, each <address>[:s][:w] for signer and writable",
	}
	dataFlag = &cli.StringFlag{
		Name:  "data",
		Usage: "hex encoded action data",
	}
	toFlag = &cli.StringFlag{
		Name:  "to",
		Usage: "recipient address",
	}
	amountFlag = &cli.Uint64Flag{
		Name:  "amount",
		Usage: "deposit amount",
	}
)

var commandCreate = &cli.Command{
	Name:  "create",
	Usage: "create a quorum group",
	Description: `
Creates a group owned by --owners. The sender pays every record deposit.
The group address is derived from the sender and --salt; a random salt is
used unless one is given.`,
	Flags: []cli.Flag{utils.FromFlag, saltFlag, nameFlag, ownersFlag, thresholdFlag, nonceFlag},
	Action: func(ctx *cli.Context) error {
		from, err := utils.MakeAddress(ctx, utils.FromFlag.Name)
		if err != nil {
			return err
		}
		salt := newGroupSalt()
		if ctx.IsSet(saltFlag.Name) {
			raw := ctx.String(saltFlag.Name)
			if b := common.FromHex(raw); len(b) != common.HashLength {
				return fmt.Errorf("invalid --%s %q: want %d hex bytes", saltFlag.Name, raw, common.HashLength)
			}
			salt = common.HexToHash(raw)
		}
		group := multisig.GroupAddress(from, salt)
		owners, err := utils.ParseAddressList(ctx.String(ownersFlag.Name))
		if err != nil {
			return err
		}
		nonce := ctx.Uint(nonceFlag.Name)
		if nonce > 255 {
			return fmt.Errorf("--%s must be below 256", nonceFlag.Name)
		}
		err = submit(ctx, sysaction.ActionMultisigCreate, &sysaction.MultisigCreatePayload{
			Group:     group,
			Salt:      salt,
			Name:      ctx.String(nameFlag.Name),
			Owners:    owners,
			Threshold: ctx.Uint64(thresholdFlag.Name),
			Nonce:     uint8(nonce),
		})
		if err != nil {
			return err
		}
		printAddress(ctx.App.Writer, "Group", group)
		printAddress(ctx.App.Writer, "Authority", delegate.Seed{Group: group, Nonce: uint8(nonce)}.Authority())
		return nil
	},
}

var commandPropose = &cli.Command{
	Name:  "propose",
	Usage: "propose an arbitrary action",
	Flags: []cli.Flag{utils.FromFlag, groupFlag, nameFlag, programFlag, accountsFlag, dataFlag},
	Action: func(ctx *cli.Context) error {
		program, err := utils.MakeAddress(ctx, programFlag.Name)
		if err != nil {
			return err
		}
		accounts, err := parseAccounts(ctx.String(accountsFlag.Name))
		if err != nil {
			return err
		}
		data := common.FromHex(ctx.String(dataFlag.Name))
		if ctx.String(dataFlag.Name) != "" && data == nil {
			return fmt.Errorf("--%s is not valid hex", dataFlag.Name)
		}
		action := sysaction.Action{Program: program, Accounts: accounts, Data: data}
		return proposeAction(ctx, func(*multisig.Registry, common.Address) (sysaction.Action, error) {
			return action, nil
		})
	},
}

var commandProposeOwners = &cli.Command{
	Name:  "propose-owners",
	Usage: "propose a membership change",
	Description: `
Each address in --owners is removed if it is currently an owner and added
otherwise. The group threshold is set to --threshold.`,
	Flags: []cli.Flag{utils.FromFlag, groupFlag, nameFlag, ownersFlag, thresholdFlag},
	Action: func(ctx *cli.Context) error {
		owners, err := utils.ParseAddressList(ctx.String(ownersFlag.Name))
		if err != nil {
			return err
		}
		return proposeAction(ctx, func(registry *multisig.Registry, group common.Address) (sysaction.Action, error) {
			g, err := registry.Group(group)
			if err != nil {
				return sysaction.Action{}, err
			}
			return multisig.SetOwnersAction(group, g.Nonce, owners, ctx.Uint64(thresholdFlag.Name))
		})
	},
}

var commandProposeTransfer = &cli.Command{
	Name:  "propose-transfer",
	Usage: "propose a deposit transfer from the group authority",
	Flags: []cli.Flag{utils.FromFlag, groupFlag, nameFlag, toFlag, amountFlag},
	Action: func(ctx *cli.Context) error {
		to, err := utils.MakeAddress(ctx, toFlag.Name)
		if err != nil {
			return err
		}
		return proposeAction(ctx, func(registry *multisig.Registry, group common.Address) (sysaction.Action, error) {
			authority, err := registry.Authority(group)
			if err != nil {
				return sysaction.Action{}, err
			}
			return ledger.TransferAction(authority, to, ctx.Uint64(amountFlag.Name))
		})
	},
}

var commandApprove = &cli.Command{
	Name:  "approve",
	Usage: "approve a proposal",
	Flags: []cli.Flag{utils.FromFlag, groupFlag, proposalFlag},
	Action: func(ctx *cli.Context) error {
		payload, err := proposalPayload(ctx)
		if err != nil {
			return err
		}
		return submit(ctx, sysaction.ActionMultisigApprove, payload)
	},
}

var commandExecute = &cli.Command{
	Name:  "execute",
	Usage: "execute a proposal that has enough approvals",
	Flags: []cli.Flag{utils.FromFlag, groupFlag, proposalFlag},
	Action: func(ctx *cli.Context) error {
		payload, err := proposalPayload(ctx)
		if err != nil {
			return err
		}
		return submit(ctx, sysaction.ActionMultisigExecute, payload)
	},
}

// proposeAction submits a proposal built by build and prints its address.
func proposeAction(ctx *cli.Context, build func(*multisig.Registry, common.Address) (sysaction.Action, error)) error {
	from, err := utils.MakeAddress(ctx, utils.FromFlag.Name)
	if err != nil {
		return err
	}
	group, err := utils.MakeAddress(ctx, groupFlag.Name)
	if err != nil {
		return err
	}
	return withStore(ctx, false, func(store *record.Store) error {
		registry := multisig.NewRegistry(store)
		action, err := build(registry, group)
		if err != nil {
			return err
		}
		addr, err := multisig.NewTracker(registry).NextProposalAddress(group)
		if err != nil {
			return err
		}
		err = apply(store, from, sysaction.ActionMultisigPropose, &sysaction.MultisigProposePayload{
			Group:  group,
			Name:   ctx.String(nameFlag.Name),
			Action: action,
		})
		if err != nil {
			return err
		}
		printAddress(ctx.App.Writer, "Proposal", addr)
		return nil
	})
}

func proposalPayload(ctx *cli.Context) (*sysaction.MultisigProposalPayload, error) {
	group, err := utils.MakeAddress(ctx, groupFlag.Name)
	if err != nil {
		return nil, err
	}
	proposal, err := utils.MakeAddress(ctx, proposalFlag.Name)
	if err != nil {
		return nil, err
	}
	return &sysaction.MultisigProposalPayload{Group: group, Proposal: proposal}, nil
}

// parseAccounts parses <address>[:s][:w] entries.
func parseAccounts(s string) ([]sysaction.AccountMeta, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var accounts []sysaction.AccountMeta
	for _, item := range strings.Split(s, ",") {
		parts := strings.Split(strings.TrimSpace(item), ":")
		addr, err := utils.ParseAddress(parts[0])
		if err != nil {
			return nil, err
		}
		meta := sysaction.AccountMeta{Address: addr}
		for _, mod := range parts[1:] {
			switch mod {
			case "s":
				meta.IsSigner = true
			case "w":
				meta.IsWritable = true
			default:
				return nil, fmt.Errorf("unknown account modifier %q in %q", mod, item)
			}
		}
		accounts = append(accounts, meta)
	}
	return accounts, nil
}

// newGroupSalt derives a fresh group salt from a random UUID.
func newGroupSalt() common.Hash {
	id := uuid.New()
	return crypto.Keccak256Hash([]byte("gtos.quorum.group"), id[:])
}
