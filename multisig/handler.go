package multisig

import (
	"fmt"

	"github.com/tos-network/gquorum/delegate"
	"github.com/tos-network/gquorum/sysaction"
)

func init() {
	sysaction.DefaultRegistry.Register(&multisigHandler{invoker: delegate.DefaultRouter})
}

// multisigHandler implements sysaction.Handler for quorum group actions.
type multisigHandler struct {
	invoker delegate.Invoker
}

func (h *multisigHandler) CanHandle(kind sysaction.ActionKind) bool {
	switch kind {
	case sysaction.ActionMultisigCreate,
		sysaction.ActionMultisigPropose,
		sysaction.ActionMultisigApprove,
		sysaction.ActionMultisigExecute,
		sysaction.ActionMultisigSetOwners:
		return true
	}
	return false
}

func (h *multisigHandler) Handle(ctx *sysaction.Context, sa *sysaction.SysAction) error {
	registry := NewRegistry(ctx.Store)
	switch sa.Action {
	case sysaction.ActionMultisigCreate:
		return h.handleCreate(ctx, registry, sa)
	case sysaction.ActionMultisigPropose:
		return h.handlePropose(ctx, NewTracker(registry), sa)
	case sysaction.ActionMultisigApprove:
		return h.handleApprove(ctx, NewTracker(registry), sa)
	case sysaction.ActionMultisigExecute:
		return h.handleExecute(ctx, NewEngine(NewTracker(registry), h.invoker), sa)
	case sysaction.ActionMultisigSetOwners:
		return h.handleSetOwners(ctx, registry, sa)
	}
	return nil
}

func (h *multisigHandler) handleCreate(ctx *sysaction.Context, registry *Registry, sa *sysaction.SysAction) error {
	var p sysaction.MultisigCreatePayload
	if err := decodePayload(sa, &p); err != nil {
		return err
	}
	if p.Group.IsZero() {
		return fmt.Errorf("%w: missing group address", ErrInvalidPayload)
	}
	if !ctx.IsSigner(ctx.From) {
		return ErrUnauthorized
	}
	return registry.CreateGroup(p.Group, ctx.From, CreateGroupArgs{
		Name:      p.Name,
		Salt:      p.Salt,
		Owners:    p.Owners,
		Threshold: p.Threshold,
		Nonce:     p.Nonce,
	})
}

func (h *multisigHandler) handlePropose(ctx *sysaction.Context, tracker *Tracker, sa *sysaction.SysAction) error {
	var p sysaction.MultisigProposePayload
	if err := decodePayload(sa, &p); err != nil {
		return err
	}
	if !ctx.IsSigner(ctx.From) {
		return ErrUnauthorized
	}
	_, err := tracker.Propose(p.Group, ctx.From, ProposeArgs{Name: p.Name, Action: p.Action})
	return err
}

func (h *multisigHandler) handleApprove(ctx *sysaction.Context, tracker *Tracker, sa *sysaction.SysAction) error {
	var p sysaction.MultisigProposalPayload
	if err := decodePayload(sa, &p); err != nil {
		return err
	}
	if !ctx.IsSigner(ctx.From) {
		return ErrUnauthorized
	}
	return tracker.Approve(p.Group, p.Proposal, ctx.From)
}

func (h *multisigHandler) handleExecute(ctx *sysaction.Context, engine *Engine, sa *sysaction.SysAction) error {
	var p sysaction.MultisigProposalPayload
	if err := decodePayload(sa, &p); err != nil {
		return err
	}
	return engine.Execute(ctx, p.Group, p.Proposal)
}

func (h *multisigHandler) handleSetOwners(ctx *sysaction.Context, registry *Registry, sa *sysaction.SysAction) error {
	var p sysaction.MultisigSetOwnersPayload
	if err := decodePayload(sa, &p); err != nil {
		return err
	}
	return registry.UpdateOwnersAndThreshold(ctx, p.Group, UpdateOwnersArgs{
		Owners:    p.Owners,
		Threshold: p.Threshold,
	})
}

func decodePayload(sa *sysaction.SysAction, dst interface{}) error {
	if len(sa.Payload) == 0 {
		return fmt.Errorf("%w: empty payload for %s", ErrInvalidPayload, sa.Action)
	}
	if err := sysaction.DecodePayload(sa, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
