// Package sysaction implements the gquorum system action protocol.
//
// A request carries a JSON-encoded SysAction. Execute decodes it and
// dispatches it to the handler registered for its kind (e.g. multisig,
// ledger). The same dispatcher is reachable as a program from delegated
// actions, which is how a quorum-approved proposal reaches privileged
// handlers.
package sysaction

import (
	"encoding/json"

	"github.com/tos-network/gquorum/common"
)

// ActionKind identifies the type of system action.
type ActionKind string

const (
	// Quorum group lifecycle
	ActionMultisigCreate    ActionKind = "MULTISIG_CREATE"
	ActionMultisigPropose   ActionKind = "MULTISIG_PROPOSE"
	ActionMultisigApprove   ActionKind = "MULTISIG_APPROVE"
	ActionMultisigExecute   ActionKind = "MULTISIG_EXECUTE"
	ActionMultisigSetOwners ActionKind = "MULTISIG_SET_OWNERS_AND_THRESHOLD"

	// Deposit balances
	ActionLedgerTransfer ActionKind = "LEDGER_TRANSFER"
)

// SysAction is the top-level envelope carried in a request.
type SysAction struct {
	Action  ActionKind      `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AccountMeta is one account referenced by an Action.
type AccountMeta struct {
	Address    common.Address `json:"address"`
	IsSigner   bool           `json:"isSigner"`
	IsWritable bool           `json:"isWritable"`
}

// Action describes an operation on a program: the program address, the
// accounts it touches and opaque program data.
type Action struct {
	Program  common.Address `json:"program"`
	Accounts []AccountMeta  `json:"accounts"`
	Data     []byte         `json:"data"`
}

// Copy returns a deep copy of a.
func (a Action) Copy() Action {
	cpy := Action{Program: a.Program}
	if a.Accounts != nil {
		cpy.Accounts = make([]AccountMeta, len(a.Accounts))
		copy(cpy.Accounts, a.Accounts)
	}
	if a.Data != nil {
		cpy.Data = make([]byte, len(a.Data))
		copy(cpy.Data, a.Data)
	}
	return cpy
}

// MultisigCreatePayload is the payload for MULTISIG_CREATE. Group must be
// the address derived from the sender and Salt.
type MultisigCreatePayload struct {
	Group     common.Address   `json:"group"`
	Salt      common.Hash      `json:"salt"`
	Name      string           `json:"name"`
	Owners    []common.Address `json:"owners"`
	Threshold uint64           `json:"threshold"`
	Nonce     uint8            `json:"nonce"`
}

// MultisigProposePayload is the payload for MULTISIG_PROPOSE.
type MultisigProposePayload struct {
	Group  common.Address `json:"group"`
	Name   string         `json:"name"`
	Action Action         `json:"action"`
}

// MultisigProposalPayload is the payload for MULTISIG_APPROVE / MULTISIG_EXECUTE.
type MultisigProposalPayload struct {
	Group    common.Address `json:"group"`
	Proposal common.Address `json:"proposal"`
}

// MultisigSetOwnersPayload is the payload for MULTISIG_SET_OWNERS_AND_THRESHOLD.
// Owners lists membership toggles: present owners are removed, absent ones added.
type MultisigSetOwnersPayload struct {
	Group     common.Address   `json:"group"`
	Owners    []common.Address `json:"owners"`
	Threshold uint64           `json:"threshold"`
}

// LedgerTransferPayload is the payload for LEDGER_TRANSFER.
type LedgerTransferPayload struct {
	To     common.Address `json:"to"`
	Amount uint64         `json:"amount"`
}
