package sysaction

import (
	"errors"
	"fmt"

	"github.com/tos-network/gquorum/common"
	"github.com/tos-network/gquorum/log"
	"github.com/tos-network/gquorum/record"
)

// ErrUnknownAction is returned when no handler accepts an action kind.
var ErrUnknownAction = errors.New("unknown system action")

// Context carries information available to a system-action handler.
type Context struct {
	// From is the authenticated caller, or the delegated authority when the
	// action is being invoked on a group's behalf.
	From common.Address

	// Signers are the identities that authorized this action.
	Signers []common.Address

	// Accounts lists the accounts of a delegated action. Nil for top-level requests.
	Accounts []AccountMeta

	Delegated bool
	Depth     int

	Store *record.Store
}

// NewContext returns a top-level context for an authenticated caller.
func NewContext(from common.Address, store *record.Store) *Context {
	return &Context{
		From:    from,
		Signers: []common.Address{from},
		Store:   store,
	}
}

// IsSigner reports whether addr authorized the action.
func (c *Context) IsSigner(addr common.Address) bool {
	for _, s := range c.Signers {
		if s == addr {
			return true
		}
	}
	return false
}

// IsWritable reports whether a delegated action declared addr writable.
// Top-level requests carry no account list and may write anything their
// handler allows.
func (c *Context) IsWritable(addr common.Address) bool {
	if !c.Delegated {
		return true
	}
	for _, acc := range c.Accounts {
		if acc.Address == addr && acc.IsWritable {
			return true
		}
	}
	return false
}

// Handler is implemented by the multisig and ledger sub-systems.
type Handler interface {
	CanHandle(kind ActionKind) bool
	Handle(ctx *Context, sa *SysAction) error
}

// Registry holds registered handlers.
type Registry struct{ handlers []Handler }

// DefaultRegistry is the process-wide handler registry.
var DefaultRegistry = &Registry{}

// Register adds a handler to the registry.
func (r *Registry) Register(h Handler) { r.handlers = append(r.handlers, h) }

// Dispatch runs sa through the first handler that accepts it. A failed
// handler leaves no trace in the store.
func (r *Registry) Dispatch(ctx *Context, sa *SysAction) error {
	for _, h := range r.handlers {
		if !h.CanHandle(sa.Action) {
			continue
		}
		snap := ctx.Store.Snapshot()
		if err := h.Handle(ctx, sa); err != nil {
			ctx.Store.RevertToSnapshot(snap)
			log.Debug("System action failed", "action", sa.Action, "from", ctx.From, "delegated", ctx.Delegated, "err", err)
			return err
		}
		log.Trace("System action applied", "action", sa.Action, "from", ctx.From, "delegated", ctx.Delegated)
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownAction, sa.Action)
}

// Msg is the minimal request interface for Execute.
type Msg interface {
	From() common.Address
	Data() []byte
}

// Request is a plain Msg.
type Request struct {
	Sender  common.Address
	Payload []byte
}

func (r Request) From() common.Address { return r.Sender }
func (r Request) Data() []byte         { return r.Payload }

// Execute processes a system action from msg and dispatches it to a
// registered handler. The caller commits the store on success.
func Execute(msg Msg, store *record.Store) error {
	sa, err := Decode(msg.Data())
	if err != nil {
		return err
	}
	return DefaultRegistry.Dispatch(NewContext(msg.From(), store), sa)
}

// ExecuteWithContext dispatches using a pre-built Context (used for delegated
// invocations and tests).
func ExecuteWithContext(ctx *Context, data []byte) error {
	sa, err := Decode(data)
	if err != nil {
		return err
	}
	return DefaultRegistry.Dispatch(ctx, sa)
}
