package multisig

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tos-network/gquorum/common"
	"github.com/tos-network/gquorum/params"
	"github.com/tos-network/gquorum/record"
)

// Memberships stores one record per (group, owner) pair at a derived address.
type Memberships struct {
	store *record.Store
}

// NewMemberships returns the membership store over store.
func NewMemberships(store *record.Store) *Memberships {
	return &Memberships{store: store}
}

// Exists reports whether owner is a member of group.
func (m *Memberships) Exists(group, owner common.Address) (bool, error) {
	rec, err := m.store.Get(MembershipAddress(group, owner))
	if errors.Is(err, record.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rec.Kind == record.KindMembership, nil
}

// Create allocates owner's membership record, paid by payer.
func (m *Memberships) Create(group, owner, payer common.Address) error {
	addr := MembershipAddress(group, owner)
	if _, err := m.store.Allocate(record.KindMembership, addr, params.MembershipRecordSize, payer, membershipSeeds(group, owner)...); err != nil {
		return err
	}
	blob, err := json.Marshal(&Membership{Group: group, Owner: owner})
	if err != nil {
		return err
	}
	return m.store.Write(addr, blob)
}

// Destroy releases owner's membership record and refunds its deposit to
// beneficiary. It fails with ErrRecordNotFound for a non-member.
func (m *Memberships) Destroy(group, owner, beneficiary common.Address) error {
	ok, err := m.Exists(group, owner)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: owner %s group %s", ErrRecordNotFound, owner, group)
	}
	return m.store.Release(MembershipAddress(group, owner), beneficiary)
}
