package multisig

import (
	"encoding/json"
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set"
	"github.com/tos-network/gquorum/common"
	"github.com/tos-network/gquorum/delegate"
	"github.com/tos-network/gquorum/log"
	"github.com/tos-network/gquorum/params"
	"github.com/tos-network/gquorum/record"
	"github.com/tos-network/gquorum/sysaction"
)

// CreateGroupArgs are the parameters of a new group.
type CreateGroupArgs struct {
	Name      string
	Salt      common.Hash
	Owners    []common.Address
	Threshold uint64
	Nonce     uint8
}

// UpdateOwnersArgs is one membership change batch. Each listed owner is
// removed if currently a member and added otherwise.
type UpdateOwnersArgs struct {
	Owners    []common.Address
	Threshold uint64
}

// Registry owns group records and membership changes.
type Registry struct {
	store   *record.Store
	members *Memberships
	log     log.Logger
}

// NewRegistry returns a registry over store.
func NewRegistry(store *record.Store) *Registry {
	return &Registry{
		store:   store,
		members: NewMemberships(store),
		log:     log.New("module", "multisig"),
	}
}

// Group loads the group at addr.
func (r *Registry) Group(addr common.Address) (*Group, error) {
	rec, err := r.store.Get(addr)
	if errors.Is(err, record.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, addr)
	}
	if err != nil {
		return nil, err
	}
	if rec.Kind != record.KindGroup {
		return nil, fmt.Errorf("%w: %s holds a %s record", ErrGroupNotFound, addr, rec.Kind)
	}
	return decodeGroup(rec)
}

// Authority returns the derived authority of the group at addr.
func (r *Registry) Authority(addr common.Address) (common.Address, error) {
	g, err := r.Group(addr)
	if err != nil {
		return common.Address{}, err
	}
	return delegate.Seed{Group: addr, Nonce: g.Nonce}.Authority(), nil
}

// IsOwner reports whether owner is a member of group.
func (r *Registry) IsOwner(group, owner common.Address) (bool, error) {
	return r.members.Exists(group, owner)
}

// CreateGroup creates a group at addr with one membership record per owner.
// addr must be GroupAddress(payer, args.Salt). payer funds every record
// deposit.
func (r *Registry) CreateGroup(addr, payer common.Address, args CreateGroupArgs) error {
	// ── Validation phase (no store writes) ───────────────────────────────────

	if len(args.Owners) == 0 {
		return ErrInvalidOwnersLen
	}
	if err := uniqueOwners(args.Owners); err != nil {
		return err
	}
	if args.Threshold == 0 || args.Threshold > uint64(len(args.Owners)) {
		return fmt.Errorf("%w: %d of %d", ErrInvalidThreshold, args.Threshold, len(args.Owners))
	}
	if len(args.Name) > params.MaxGroupNameLen {
		return ErrNameTooLong
	}

	// ── Mutation phase ───────────────────────────────────────────────────────

	g := &Group{
		Name:            args.Name,
		Threshold:       args.Threshold,
		Nonce:           args.Nonce,
		MembershipCount: uint64(len(args.Owners)),
	}
	err := atomically(r.store, func() error {
		if _, err := r.store.Allocate(record.KindGroup, addr, groupRecordSize(g.Name), payer, groupSeeds(payer, args.Salt)...); err != nil {
			return err
		}
		if err := r.writeGroup(addr, g); err != nil {
			return err
		}
		for _, owner := range args.Owners {
			if err := r.members.Create(addr, owner, payer); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.log.Debug("Created quorum group", "group", addr, "owners", len(args.Owners), "threshold", g.Threshold)
	return nil
}

// UpdateOwnersAndThreshold applies a membership change batch to the group at
// addr and sets its threshold. It may only run under the group's own
// authority, i.e. as an executed proposal of the group. Deposits of new
// membership records are paid by the authority and released ones are
// refunded to it.
func (r *Registry) UpdateOwnersAndThreshold(ctx *sysaction.Context, addr common.Address, args UpdateOwnersArgs) error {
	// ── Validation phase (no store writes) ───────────────────────────────────

	g, err := r.Group(addr)
	if err != nil {
		return err
	}
	authority := delegate.Seed{Group: addr, Nonce: g.Nonce}.Authority()
	if !ctx.Delegated || !ctx.IsSigner(authority) || !ctx.IsWritable(addr) {
		return ErrUnauthorized
	}
	if err := uniqueOwners(args.Owners); err != nil {
		return err
	}
	// Resolve every toggle up front so the threshold is checked against the
	// post-batch count.
	present := make([]bool, len(args.Owners))
	count := g.MembershipCount
	for i, owner := range args.Owners {
		ok, err := r.members.Exists(addr, owner)
		if err != nil {
			return err
		}
		present[i] = ok
		if ok {
			count--
		} else {
			count++
		}
	}
	if args.Threshold == 0 || args.Threshold > count {
		return fmt.Errorf("%w: %d of %d", ErrInvalidThreshold, args.Threshold, count)
	}

	// ── Mutation phase ───────────────────────────────────────────────────────

	// Removals run first so their refunds can pay for the additions.
	err = atomically(r.store, func() error {
		for i, owner := range args.Owners {
			if !present[i] {
				continue
			}
			if err := r.members.Destroy(addr, owner, authority); err != nil {
				return err
			}
		}
		for i, owner := range args.Owners {
			if present[i] {
				continue
			}
			if err := r.members.Create(addr, owner, authority); err != nil {
				return err
			}
		}
		if len(args.Owners) > 0 {
			g.MembershipEpoch++
		}
		g.MembershipCount = count
		g.Threshold = args.Threshold
		return r.writeGroup(addr, g)
	})
	if err != nil {
		return err
	}
	r.log.Debug("Updated quorum membership", "group", addr, "changes", len(args.Owners),
		"members", count, "threshold", g.Threshold, "epoch", g.MembershipEpoch)
	return nil
}

func (r *Registry) writeGroup(addr common.Address, g *Group) error {
	blob, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return r.store.Write(addr, blob)
}

func uniqueOwners(owners []common.Address) error {
	seen := mapset.NewThreadUnsafeSet()
	for _, owner := range owners {
		if !seen.Add(owner) {
			return fmt.Errorf("%w: %s", ErrDuplicateOwner, owner)
		}
	}
	return nil
}
