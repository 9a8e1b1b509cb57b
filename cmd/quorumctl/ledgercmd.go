package main

import (
	"github.com/holiman/uint256"
	"github.com/tos-network/gquorum/cmd/utils"
	"github.com/tos-network/gquorum/log"
	"github.com/tos-network/gquorum/record"
	"github.com/tos-network/gquorum/sysaction"
	"github.com/urfave/cli/v2"
)

var commandFund = &cli.Command{
	Name:  "fund",
	Usage: "credit deposit balance to an address (development only)",
	Description: `
Credits --amount to --to directly in the local database. Use it to give
owners and group authorities the balance their record deposits need.`,
	Flags: []cli.Flag{toFlag, amountFlag},
	Action: func(ctx *cli.Context) error {
		to, err := utils.MakeAddress(ctx, toFlag.Name)
		if err != nil {
			return err
		}
		amount := uint256.NewInt(ctx.Uint64(amountFlag.Name))
		return withStore(ctx, false, func(store *record.Store) error {
			if err := store.AddBalance(to, amount); err != nil {
				return err
			}
			log.Info("Funded account", "to", to, "amount", amount.ToBig())
			return nil
		})
	},
}

var commandTransfer = &cli.Command{
	Name:  "transfer",
	Usage: "transfer deposit balance",
	Flags: []cli.Flag{utils.FromFlag, toFlag, amountFlag},
	Action: func(ctx *cli.Context) error {
		to, err := utils.MakeAddress(ctx, toFlag.Name)
		if err != nil {
			return err
		}
		return submit(ctx, sysaction.ActionLedgerTransfer, &sysaction.LedgerTransferPayload{
			To:     to,
			Amount: ctx.Uint64(amountFlag.Name),
		})
	},
}
