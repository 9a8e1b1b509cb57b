package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/tos-network/gquorum/cmd/utils"
	"github.com/tos-network/gquorum/common"
	"github.com/tos-network/gquorum/delegate"
	"github.com/tos-network/gquorum/multisig"
	"github.com/tos-network/gquorum/record"
	"github.com/urfave/cli/v2"
)

var dumpFlag = &cli.BoolFlag{
	Name:  "dump",
	Usage: "also dump the raw record",
}

var commandInspect = &cli.Command{
	Name:  "inspect",
	Usage: "inspect groups, proposals, memberships and balances",
	Subcommands: []*cli.Command{
		{
			Name:      "group",
			Usage:     "show a quorum group",
			ArgsUsage: "<group>",
			Flags:     []cli.Flag{dumpFlag},
			Action:    inspectGroup,
		},
		{
			Name:      "proposal",
			Usage:     "show a proposal and its approvals",
			ArgsUsage: "<proposal>",
			Flags:     []cli.Flag{dumpFlag, ownersFlag},
			Action:    inspectProposal,
		},
		{
			Name:      "member",
			Usage:     "check whether an address owns a group",
			ArgsUsage: "<group> <owner>",
			Action:    inspectMember,
		},
		{
			Name:      "balance",
			Usage:     "show the deposit balance of an address",
			ArgsUsage: "<address>",
			Action:    inspectBalance,
		},
	},
}

func inspectGroup(ctx *cli.Context) error {
	addr, err := utils.ParseAddress(ctx.Args().First())
	if err != nil {
		return err
	}
	return withStore(ctx, true, func(store *record.Store) error {
		registry := multisig.NewRegistry(store)
		g, err := registry.Group(addr)
		if err != nil {
			return err
		}
		authority := delegate.Seed{Group: addr, Nonce: g.Nonce}.Authority()
		balance, err := store.Balance(authority)
		if err != nil {
			return err
		}
		next, err := multisig.NewTracker(registry).NextProposalAddress(addr)
		if err != nil {
			return err
		}
		w := ctx.App.Writer
		table := newTable(w, "Field", "Value")
		table.AppendBulk([][]string{
			{"Address", addr.Hex()},
			{"Name", g.Name},
			{"Threshold", fmt.Sprintf("%d of %d", g.Threshold, g.MembershipCount)},
			{"Membership epoch", strconv.FormatUint(uint64(g.MembershipEpoch), 10)},
			{"Authority", authority.Hex()},
			{"Authority nonce", strconv.Itoa(int(g.Nonce))},
			{"Authority balance", balance.ToBig().String()},
			{"Proposals", strconv.FormatUint(g.ProposalSeq, 10)},
			{"Next proposal", next.Hex()},
		})
		table.Render()
		return dumpRecord(ctx, store, addr)
	})
}

func inspectProposal(ctx *cli.Context) error {
	addr, err := utils.ParseAddress(ctx.Args().First())
	if err != nil {
		return err
	}
	owners, err := utils.ParseAddressList(ctx.String(ownersFlag.Name))
	if err != nil {
		return err
	}
	return withStore(ctx, true, func(store *record.Store) error {
		registry := multisig.NewRegistry(store)
		p, err := multisig.NewTracker(registry).Proposal(addr)
		if err != nil {
			return err
		}
		g, err := registry.Group(p.Group)
		if err != nil {
			return err
		}
		w := ctx.App.Writer
		table := newTable(w, "Field", "Value")
		table.AppendBulk([][]string{
			{"Address", addr.Hex()},
			{"Group", p.Group.Hex()},
			{"Name", p.Name},
			{"Proposer", p.Proposer.Hex()},
			{"Program", p.Action.Program.Hex()},
			{"Data", fmt.Sprintf("%d bytes", len(p.Action.Data))},
			{"Approvals", fmt.Sprintf("%d of %d", len(p.Approvals), g.Threshold)},
			{"Epoch", fmt.Sprintf("%d (group %d)", p.EpochSnapshot, g.MembershipEpoch)},
			{"Status", proposalStatus(p, g)},
		})
		table.Render()

		if len(p.Action.Accounts) > 0 {
			accounts := newTable(w, "Account", "Signer", "Writable")
			for _, acc := range p.Action.Accounts {
				accounts.Append([]string{acc.Address.Hex(), strconv.FormatBool(acc.IsSigner), strconv.FormatBool(acc.IsWritable)})
			}
			accounts.Render()
		}
		if len(owners) > 0 {
			approvals := newTable(w, "Owner", "Approved")
			for _, owner := range owners {
				approvals.Append([]string{owner.Hex(), strconv.FormatBool(p.HasApproved(owner))})
			}
			approvals.Render()
		}
		return dumpRecord(ctx, store, addr)
	})
}

func inspectMember(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return fmt.Errorf("expected <group> <owner>")
	}
	group, err := utils.ParseAddress(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	owner, err := utils.ParseAddress(ctx.Args().Get(1))
	if err != nil {
		return err
	}
	return withStore(ctx, true, func(store *record.Store) error {
		ok, err := multisig.NewRegistry(store).IsOwner(group, owner)
		if err != nil {
			return err
		}
		status := color.RedString("not an owner")
		if ok {
			status = color.GreenString("owner")
		}
		fmt.Fprintf(ctx.App.Writer, "%s %s (record %s)\n", owner.Hex(), status, multisig.MembershipAddress(group, owner).Hex())
		return nil
	})
}

func inspectBalance(ctx *cli.Context) error {
	addr, err := utils.ParseAddress(ctx.Args().First())
	if err != nil {
		return err
	}
	return withStore(ctx, true, func(store *record.Store) error {
		balance, err := store.Balance(addr)
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, balance.ToBig().String())
		return nil
	})
}

func proposalStatus(p *multisig.Proposal, g *multisig.Group) string {
	status := p.Status(g)
	switch status {
	case multisig.StatusExecuted:
		return color.GreenString(status.String())
	case multisig.StatusStale:
		return color.RedString(status.String())
	case multisig.StatusReady:
		return color.CyanString(status.String())
	}
	return color.YellowString(status.String())
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func dumpRecord(ctx *cli.Context, store *record.Store, addr common.Address) error {
	if !ctx.Bool(dumpFlag.Name) {
		return nil
	}
	rec, err := store.Get(addr)
	if err != nil {
		return err
	}
	spew.Fdump(ctx.App.Writer, rec)
	return nil
}
