// Package delegate invokes actions under an authority derived from a seed.
//
// The authority has no key. An action may only claim it as a signer when the
// invoker is handed the seed it derives from; any other signer in the action
// is rejected. Programs are looked up by address.
package delegate

import (
	"errors"
	"fmt"

	"github.com/tos-network/gquorum/common"
	"github.com/tos-network/gquorum/crypto"
	"github.com/tos-network/gquorum/params"
	"github.com/tos-network/gquorum/sysaction"
)

var (
	ErrUnknownProgram     = errors.New("delegate: unknown program")
	ErrUnauthorizedSigner = errors.New("delegate: signer not derivable from seed")
	ErrInvokeDepth        = errors.New("delegate: invoke depth exceeded")
)

var authoritySeedTag = []byte("authority")

// Seed fixes the authority identity of a group.
type Seed struct {
	Group common.Address
	Nonce uint8
}

// Authority returns the address derived from the seed.
func (s Seed) Authority() common.Address {
	return crypto.CreateProgramAddress(authoritySeedTag, s.Group[:], []byte{s.Nonce})
}

// Invoker executes an action as the authority derived from seed.
type Invoker interface {
	Invoke(parent *sysaction.Context, action sysaction.Action, seed Seed) error
}

// Program is the target of an action.
type Program interface {
	Invoke(ctx *sysaction.Context, action sysaction.Action) error
}

// ProgramFunc adapts a function to Program.
type ProgramFunc func(ctx *sysaction.Context, action sysaction.Action) error

// Invoke calls f.
func (f ProgramFunc) Invoke(ctx *sysaction.Context, action sysaction.Action) error {
	return f(ctx, action)
}

// Router is an Invoker that dispatches on the action's program address.
type Router struct {
	programs map[common.Address]Program
}

// NewRouter returns a router with no programs.
func NewRouter() *Router {
	return &Router{programs: make(map[common.Address]Program)}
}

// DefaultRouter routes the system action program into sysaction.DefaultRegistry.
// Other packages register their programs from init.
var DefaultRouter = newDefaultRouter()

func newDefaultRouter() *Router {
	r := NewRouter()
	r.Register(params.SystemActionAddress, SystemProgram(sysaction.DefaultRegistry))
	return r
}

// Register binds a program to an address, replacing any previous binding.
func (r *Router) Register(addr common.Address, p Program) {
	r.programs[addr] = p
}

// Invoke runs action once under the authority derived from seed. Errors from
// the program are returned wrapped, never retried.
func (r *Router) Invoke(parent *sysaction.Context, action sysaction.Action, seed Seed) error {
	depth := parent.Depth + 1
	if depth > params.MaxInvokeDepth {
		return fmt.Errorf("%w: depth %d", ErrInvokeDepth, depth)
	}
	program, ok := r.programs[action.Program]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProgram, action.Program)
	}
	authority := seed.Authority()

	var signers []common.Address
	for _, acc := range action.Accounts {
		if !acc.IsSigner {
			continue
		}
		if acc.Address != authority {
			return fmt.Errorf("%w: %s", ErrUnauthorizedSigner, acc.Address)
		}
		if len(signers) == 0 {
			signers = append(signers, authority)
		}
	}
	ctx := &sysaction.Context{
		From:      authority,
		Signers:   signers,
		Accounts:  action.Accounts,
		Delegated: true,
		Depth:     depth,
		Store:     parent.Store,
	}
	if err := program.Invoke(ctx, action); err != nil {
		return fmt.Errorf("program %s: %w", action.Program, err)
	}
	return nil
}

// SystemProgram decodes the action data as a SysAction and dispatches it
// through reg.
func SystemProgram(reg *sysaction.Registry) Program {
	return ProgramFunc(func(ctx *sysaction.Context, action sysaction.Action) error {
		sa, err := sysaction.Decode(action.Data)
		if err != nil {
			return err
		}
		return reg.Dispatch(ctx, sa)
	})
}
