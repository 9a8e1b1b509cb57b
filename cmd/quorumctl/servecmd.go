package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tos-network/gquorum/cmd/utils"
	"github.com/tos-network/gquorum/log"
	"github.com/tos-network/gquorum/quorumapi"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

var (
	httpAddrFlag = &cli.StringFlag{
		Name:  "http.addr",
		Usage: "HTTP API listening address",
	}
	httpCorsFlag = &cli.StringFlag{
		Name:  "http.corsdomain",
		Usage: "Comma separated list of domains from which to accept cross origin requests",
	}
	jwtSecretFlag = &cli.StringFlag{
		Name:  "authrpc.jwtsecret",
		Usage: "Path to a hex JWT secret; enables request submission",
	}
)

var commandServe = &cli.Command{
	Name:  "serve",
	Usage: "serve the record database over HTTP",
	Description: `
Serves groups, proposals, memberships and balances as JSON. With a JWT
secret, authenticated front ends may also submit requests; the token
subject is the sender.`,
	Flags:  []cli.Flag{httpAddrFlag, httpCorsFlag, jwtSecretFlag},
	Action: serve,
}

func serve(ctx *cli.Context) error {
	cfg, err := utils.MakeConfig(ctx)
	if err != nil {
		return err
	}
	if ctx.IsSet(httpAddrFlag.Name) {
		cfg.API.Addr = ctx.String(httpAddrFlag.Name)
	}
	if ctx.IsSet(httpCorsFlag.Name) {
		cfg.API.CorsOrigins = strings.Split(ctx.String(httpCorsFlag.Name), ",")
	}
	if ctx.IsSet(jwtSecretFlag.Name) {
		cfg.API.JWTSecretFile = ctx.String(jwtSecretFlag.Name)
	}
	store, db, err := utils.OpenStore(&cfg, false)
	if err != nil {
		return err
	}
	defer db.Close()

	server, err := quorumapi.NewServer(store, cfg.API)
	if err != nil {
		return err
	}
	sigctx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down", "reason", context.Cause(gctx))
		return nil
	})
	return g.Wait()
}
