package multisig

import (
	"fmt"

	"github.com/tos-network/gquorum/common"
	"github.com/tos-network/gquorum/delegate"
	"github.com/tos-network/gquorum/log"
	"github.com/tos-network/gquorum/sysaction"
)

// Engine executes approved proposals under their group's authority.
type Engine struct {
	registry *Registry
	tracker  *Tracker
	invoker  delegate.Invoker
	log      log.Logger
}

// NewEngine returns an engine running actions through invoker.
func NewEngine(tracker *Tracker, invoker delegate.Invoker) *Engine {
	return &Engine{
		registry: tracker.registry,
		tracker:  tracker,
		invoker:  invoker,
		log:      log.New("module", "multisig"),
	}
}

// Execute runs the proposal at addr once. Anyone may trigger execution; the
// approvals are what authorize it.
//
// The proposal is marked executed before the action is invoked, so the action
// cannot execute its own proposal again. A failed invocation undoes the mark
// along with everything the action wrote.
func (e *Engine) Execute(ctx *sysaction.Context, group, addr common.Address) error {
	// ── Validation phase (no store writes) ───────────────────────────────────

	p, err := e.tracker.Proposal(addr)
	if err != nil {
		return err
	}
	if p.Group != group {
		return fmt.Errorf("%w: proposal %s group %s", ErrGroupMismatch, addr, p.Group)
	}
	g, err := e.registry.Group(group)
	if err != nil {
		return err
	}
	if p.Executed {
		return ErrAlreadyExecuted
	}
	if g.MembershipEpoch != p.EpochSnapshot {
		return fmt.Errorf("%w: proposal epoch %d, group epoch %d", ErrStaleMembershipEpoch, p.EpochSnapshot, g.MembershipEpoch)
	}
	if uint64(len(p.Approvals)) < g.Threshold {
		return fmt.Errorf("%w: have %d, need %d", ErrNotEnoughSigners, len(p.Approvals), g.Threshold)
	}

	// ── Mutation phase ───────────────────────────────────────────────────────

	seed := delegate.Seed{Group: group, Nonce: g.Nonce}
	action := authorize(p.Action, seed.Authority())

	store := e.tracker.store
	err = atomically(store, func() error {
		p.Executed = true
		if err := e.tracker.writeProposal(addr, p); err != nil {
			return err
		}
		return e.invoker.Invoke(ctx, action, seed)
	})
	if err != nil {
		e.log.Debug("Proposal execution failed", "group", group, "proposal", addr, "err", err)
		return err
	}
	e.log.Info("Executed proposal", "group", group, "proposal", addr, "program", action.Program, "approvals", len(p.Approvals))
	return nil
}

// authorize returns a copy of action with every account equal to authority
// marked as a signer.
func authorize(action sysaction.Action, authority common.Address) sysaction.Action {
	cpy := action.Copy()
	for i := range cpy.Accounts {
		if cpy.Accounts[i].Address == authority {
			cpy.Accounts[i].IsSigner = true
		}
	}
	return cpy
}
