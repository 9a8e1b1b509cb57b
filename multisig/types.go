// Package multisig implements quorum groups.
//
// A group is a set of owners sharing one approval threshold. Owners propose
// actions, approve them, and once enough approvals are collected the action
// runs under an authority derived from the group. Membership changes are
// themselves actions run through the same path, so the owner set can only
// be modified with the approval of the current owners.
package multisig

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tos-network/gquorum/common"
	"github.com/tos-network/gquorum/crypto"
	"github.com/tos-network/gquorum/params"
	"github.com/tos-network/gquorum/record"
	"github.com/tos-network/gquorum/sysaction"
)

// Sentinel errors returned by the quorum registry, tracker and engine.
var (
	ErrInvalidOwnersLen     = errors.New("multisig: owners must not be empty")
	ErrDuplicateOwner       = errors.New("multisig: duplicate owner")
	ErrInvalidThreshold     = errors.New("multisig: threshold out of range")
	ErrInvalidOwner         = errors.New("multisig: caller is not an owner of the group")
	ErrGroupMismatch        = errors.New("multisig: proposal belongs to another group")
	ErrAlreadySigned        = errors.New("multisig: owner already approved")
	ErrNotEnoughSigners     = errors.New("multisig: not enough approvals")
	ErrAlreadyExecuted      = errors.New("multisig: proposal already executed")
	ErrStaleMembershipEpoch = errors.New("multisig: proposal predates current membership")
	ErrUnauthorized         = errors.New("multisig: group authority did not sign")
	ErrGroupNotFound        = errors.New("multisig: group not found")
	ErrProposalNotFound     = errors.New("multisig: proposal not found")
	ErrInvalidPayload       = errors.New("multisig: invalid payload")
	ErrNameTooLong          = errors.New("multisig: name too long")

	// ErrRecordNotFound matches record.ErrRecordNotFound as well.
	ErrRecordNotFound = fmt.Errorf("multisig: membership %w", record.ErrRecordNotFound)
)

// Group is the root record of a quorum.
type Group struct {
	Name      string `json:"name"`
	Threshold uint64 `json:"threshold"`

	// Nonce fixes the derived authority. It never changes after creation.
	Nonce uint8 `json:"nonce"`

	// MembershipEpoch is bumped once per non-empty membership change batch.
	MembershipEpoch uint32 `json:"membershipEpoch"`
	MembershipCount uint64 `json:"membershipCount"`

	// ProposalSeq numbers the next proposal.
	ProposalSeq uint64 `json:"proposalSeq"`
}

// Membership is the content of a membership record. The record's existence
// is what grants membership.
type Membership struct {
	Group common.Address `json:"group"`
	Owner common.Address `json:"owner"`
}

// Proposal is a pending or executed action of a group.
type Proposal struct {
	Group         common.Address   `json:"group"`
	Proposer      common.Address   `json:"proposer"`
	Action        sysaction.Action `json:"action"`
	Name          string           `json:"name"`
	Executed      bool             `json:"executed"`
	EpochSnapshot uint32           `json:"epochSnapshot"`
	Approvals     []common.Hash    `json:"approvals"`
}

// HasApproved reports whether owner's approval is recorded.
func (p *Proposal) HasApproved(owner common.Address) bool {
	fp := Fingerprint(owner)
	for _, a := range p.Approvals {
		if a == fp {
			return true
		}
	}
	return false
}

var (
	groupSeedTag     = []byte("group")
	ownershipSeedTag = []byte("ownership")
	proposalSeedTag  = []byte("proposal")
	approvalTag      = []byte("gtos.quorum.approval")
)

// Fingerprint is the value stored in a proposal's approval set for owner.
func Fingerprint(owner common.Address) common.Hash {
	return crypto.Keccak256Hash(approvalTag, owner[:])
}

func groupSeeds(creator common.Address, salt common.Hash) [][]byte {
	return [][]byte{groupSeedTag, creator[:], salt[:]}
}

// GroupAddress returns the address of the group creator makes with salt.
func GroupAddress(creator common.Address, salt common.Hash) common.Address {
	return crypto.CreateProgramAddress(groupSeeds(creator, salt)...)
}

func membershipSeeds(group, owner common.Address) [][]byte {
	return [][]byte{ownershipSeedTag, group[:], owner[:]}
}

// MembershipAddress returns the address of owner's membership record in group.
func MembershipAddress(group, owner common.Address) common.Address {
	return crypto.CreateProgramAddress(membershipSeeds(group, owner)...)
}

func proposalSeeds(group common.Address, seq uint64) [][]byte {
	var enc [8]byte
	binary.BigEndian.PutUint64(enc[:], seq)
	return [][]byte{proposalSeedTag, group[:], enc[:]}
}

// ProposalAddress returns the address of the seq-th proposal of group.
func ProposalAddress(group common.Address, seq uint64) common.Address {
	return crypto.CreateProgramAddress(proposalSeeds(group, seq)...)
}

func groupRecordSize(name string) uint64 {
	return params.GroupRecordBaseSize + uint64(len(name))*params.NameByteSize
}

// proposalRecordSize reserves room for one approval per current member. Any
// membership change makes the proposal stale, so it can never collect more.
func proposalRecordSize(name string, action sysaction.Action, members uint64) uint64 {
	data := uint64(len(action.Data)+2) / 3 * 4
	return params.ProposalRecordBaseSize +
		uint64(len(name))*params.NameByteSize +
		uint64(len(action.Accounts))*params.AccountMetaSize +
		data +
		members*params.ApprovalSize
}

func decodeGroup(rec *record.Record) (*Group, error) {
	var g Group
	if err := json.Unmarshal(rec.Data, &g); err != nil {
		return nil, fmt.Errorf("multisig: corrupt group %s: %v", rec.Address, err)
	}
	return &g, nil
}

func decodeProposal(rec *record.Record) (*Proposal, error) {
	var p Proposal
	if err := json.Unmarshal(rec.Data, &p); err != nil {
		return nil, fmt.Errorf("multisig: corrupt proposal %s: %v", rec.Address, err)
	}
	return &p, nil
}

// atomically runs fn and undoes its store writes if it fails.
func atomically(store *record.Store, fn func() error) error {
	snap := store.Snapshot()
	if err := fn(); err != nil {
		store.RevertToSnapshot(snap)
		return err
	}
	return nil
}

// Status is the derived lifecycle state of a proposal.
type Status uint8

const (
	StatusPending  Status = iota // collecting approvals
	StatusReady                  // approvals reach the threshold
	StatusExecuted               // terminal
	StatusStale                  // membership changed since creation, terminal
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusExecuted:
		return "executed"
	case StatusStale:
		return "stale"
	}
	return "unknown"
}

// Status derives the proposal's state against its group's current state.
func (p *Proposal) Status(g *Group) Status {
	switch {
	case p.Executed:
		return StatusExecuted
	case p.EpochSnapshot != g.MembershipEpoch:
		return StatusStale
	case uint64(len(p.Approvals)) >= g.Threshold:
		return StatusReady
	}
	return StatusPending
}
