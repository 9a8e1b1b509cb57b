// Package ledger moves deposit balances between accounts. It is reachable
// both as a top-level system action and as a program invoked under a
// delegated authority, which is how a group spends from its authority.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/tos-network/gquorum/common"
	"github.com/tos-network/gquorum/delegate"
	"github.com/tos-network/gquorum/log"
	"github.com/tos-network/gquorum/params"
	"github.com/tos-network/gquorum/sysaction"
)

var (
	ErrUnauthorized    = errors.New("ledger: sender did not sign")
	ErrReadonlyAccount = errors.New("ledger: account not writable")
	ErrZeroAmount      = errors.New("ledger: zero amount")
	ErrInvalidPayload  = errors.New("ledger: invalid payload")
)

func init() {
	sysaction.DefaultRegistry.Register(&ledgerHandler{})
	delegate.DefaultRouter.Register(params.LedgerAddress, delegate.ProgramFunc(invoke))
}

// Transfer moves amount from ctx.From to to. The sender must have signed and,
// under a delegated authority, both accounts must be declared writable.
func Transfer(ctx *sysaction.Context, to common.Address, amount *uint256.Int) error {
	if !ctx.IsSigner(ctx.From) {
		return ErrUnauthorized
	}
	if !ctx.IsWritable(ctx.From) {
		return fmt.Errorf("%w: %s", ErrReadonlyAccount, ctx.From)
	}
	if !ctx.IsWritable(to) {
		return fmt.Errorf("%w: %s", ErrReadonlyAccount, to)
	}
	if amount.IsZero() {
		return ErrZeroAmount
	}
	if err := ctx.Store.SubBalance(ctx.From, amount); err != nil {
		return err
	}
	if err := ctx.Store.AddBalance(to, amount); err != nil {
		return err
	}
	log.Trace("Ledger transfer", "from", ctx.From, "to", to, "amount", amount.ToBig(), "delegated", ctx.Delegated)
	return nil
}

// TransferAction builds the descriptor of a transfer from a delegated
// authority, for use in a proposal.
func TransferAction(authority, to common.Address, amount uint64) (sysaction.Action, error) {
	data, err := json.Marshal(&sysaction.LedgerTransferPayload{To: to, Amount: amount})
	if err != nil {
		return sysaction.Action{}, err
	}
	return sysaction.Action{
		Program: params.LedgerAddress,
		Accounts: []sysaction.AccountMeta{
			{Address: authority, IsSigner: true, IsWritable: true},
			{Address: to, IsWritable: true},
		},
		Data: data,
	}, nil
}

// invoke is the ledger program. Its data is a bare LedgerTransferPayload.
func invoke(ctx *sysaction.Context, action sysaction.Action) error {
	var p sysaction.LedgerTransferPayload
	if err := json.Unmarshal(action.Data, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return Transfer(ctx, p.To, uint256.NewInt(p.Amount))
}

// ledgerHandler implements sysaction.Handler for LEDGER_TRANSFER.
type ledgerHandler struct{}

func (h *ledgerHandler) CanHandle(kind sysaction.ActionKind) bool {
	return kind == sysaction.ActionLedgerTransfer
}

func (h *ledgerHandler) Handle(ctx *sysaction.Context, sa *sysaction.SysAction) error {
	var p sysaction.LedgerTransferPayload
	if len(sa.Payload) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}
	if err := sysaction.DecodePayload(sa, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return Transfer(ctx, p.To, uint256.NewInt(p.Amount))
}
