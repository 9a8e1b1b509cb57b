package multisig

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tos-network/gquorum/common"
	"github.com/tos-network/gquorum/log"
	"github.com/tos-network/gquorum/params"
	"github.com/tos-network/gquorum/record"
	"github.com/tos-network/gquorum/sysaction"
)

// ProposeArgs describe a new proposal.
type ProposeArgs struct {
	Name   string
	Action sysaction.Action
}

// Tracker owns proposals and their approvals.
type Tracker struct {
	registry *Registry
	store    *record.Store
	log      log.Logger
}

// NewTracker returns a tracker sharing the registry's store.
func NewTracker(registry *Registry) *Tracker {
	return &Tracker{
		registry: registry,
		store:    registry.store,
		log:      log.New("module", "multisig"),
	}
}

// Proposal loads the proposal at addr.
func (t *Tracker) Proposal(addr common.Address) (*Proposal, error) {
	rec, err := t.store.Get(addr)
	if errors.Is(err, record.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProposalNotFound, addr)
	}
	if err != nil {
		return nil, err
	}
	if rec.Kind != record.KindProposal {
		return nil, fmt.Errorf("%w: %s holds a %s record", ErrProposalNotFound, addr, rec.Kind)
	}
	return decodeProposal(rec)
}

// NextProposalAddress returns the address the next proposal of group will
// be created at.
func (t *Tracker) NextProposalAddress(group common.Address) (common.Address, error) {
	g, err := t.registry.Group(group)
	if err != nil {
		return common.Address{}, err
	}
	return ProposalAddress(group, g.ProposalSeq), nil
}

// Propose creates a proposal in group on behalf of proposer, who must be an
// owner. The proposer's approval is recorded and the proposer pays the
// record deposit.
func (t *Tracker) Propose(group, proposer common.Address, args ProposeArgs) (common.Address, error) {
	// ── Validation phase (no store writes) ───────────────────────────────────

	g, err := t.registry.Group(group)
	if err != nil {
		return common.Address{}, err
	}
	ok, err := t.registry.IsOwner(group, proposer)
	if err != nil {
		return common.Address{}, err
	}
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s", ErrInvalidOwner, proposer)
	}
	if len(args.Name) > params.MaxGroupNameLen {
		return common.Address{}, ErrNameTooLong
	}

	// ── Mutation phase ───────────────────────────────────────────────────────

	seq := g.ProposalSeq
	addr := ProposalAddress(group, seq)
	p := &Proposal{
		Group:         group,
		Proposer:      proposer,
		Action:        args.Action.Copy(),
		Name:          args.Name,
		EpochSnapshot: g.MembershipEpoch,
		Approvals:     []common.Hash{Fingerprint(proposer)},
	}
	size := proposalRecordSize(p.Name, p.Action, g.MembershipCount)
	err = atomically(t.store, func() error {
		if _, err := t.store.Allocate(record.KindProposal, addr, size, proposer, proposalSeeds(group, seq)...); err != nil {
			return err
		}
		if err := t.writeProposal(addr, p); err != nil {
			return err
		}
		g.ProposalSeq++
		return t.registry.writeGroup(group, g)
	})
	if err != nil {
		return common.Address{}, err
	}
	t.log.Debug("Created proposal", "group", group, "proposal", addr, "proposer", proposer, "epoch", p.EpochSnapshot)
	return addr, nil
}

// Approve records approver's approval of the proposal at addr.
func (t *Tracker) Approve(group, addr, approver common.Address) error {
	// ── Validation phase (no store writes) ───────────────────────────────────

	p, err := t.Proposal(addr)
	if err != nil {
		return err
	}
	if p.Group != group {
		return fmt.Errorf("%w: proposal %s group %s", ErrGroupMismatch, addr, p.Group)
	}
	g, err := t.registry.Group(group)
	if err != nil {
		return err
	}
	ok, err := t.registry.IsOwner(group, approver)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidOwner, approver)
	}
	if p.Executed {
		return ErrAlreadyExecuted
	}
	if g.MembershipEpoch != p.EpochSnapshot {
		return fmt.Errorf("%w: proposal epoch %d, group epoch %d", ErrStaleMembershipEpoch, p.EpochSnapshot, g.MembershipEpoch)
	}
	if p.HasApproved(approver) {
		return ErrAlreadySigned
	}

	// ── Mutation phase ───────────────────────────────────────────────────────

	p.Approvals = append(p.Approvals, Fingerprint(approver))
	if err := t.writeProposal(addr, p); err != nil {
		return err
	}
	t.log.Debug("Approved proposal", "proposal", addr, "approver", approver, "approvals", len(p.Approvals), "threshold", g.Threshold)
	return nil
}

func (t *Tracker) writeProposal(addr common.Address, p *Proposal) error {
	blob, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return t.store.Write(addr, blob)
}
