// Package record implements the typed record store the quorum engine keeps its
// state in.
//
// Records live at 32-byte addresses derived from seeds. The store re-derives
// the address on allocation and refuses a mismatch, so no record can occupy
// an address derived for another. Allocating a record debits a size-proportional deposit
// from the payer; releasing it credits the deposit to a beneficiary.
//
// Writes go to an in-memory overlay that can be snapshotted and reverted, and
// are flushed to the backing tosdb database in a single batch on Commit.
package record

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/tos-network/gquorum/common"
)

// Kind identifies the type of a stored record.
type Kind uint8

const (
	KindNone Kind = iota
	KindGroup
	KindMembership
	KindProposal
)

func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindMembership:
		return "membership"
	case KindProposal:
		return "proposal"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

var (
	ErrRecordNotFound      = errors.New("record: not found")
	ErrRecordExists        = errors.New("record: address already allocated")
	ErrAddressMismatch     = errors.New("record: address does not match derivation seeds")
	ErrUnboundAddress      = errors.New("record: allocation without derivation seeds")
	ErrInsufficientDeposit = errors.New("record: payer balance below deposit")
	ErrInsufficientBalance = errors.New("record: balance below amount")
	ErrRecordTooLarge      = errors.New("record: data exceeds allocated size")
)

// Record is one allocated record.
type Record struct {
	Address common.Address
	Kind    Kind
	Size    uint64
	Deposit *uint256.Int
	Data    []byte
}

// Copy returns a deep copy of r.
func (r *Record) Copy() *Record {
	cpy := &Record{
		Address: r.Address,
		Kind:    r.Kind,
		Size:    r.Size,
		Deposit: new(uint256.Int).Set(r.Deposit),
	}
	if r.Data != nil {
		cpy.Data = make([]byte, len(r.Data))
		copy(cpy.Data, r.Data)
	}
	return cpy
}

// storedRecord is the persisted form of a Record. The address is the key.
type storedRecord struct {
	Kind    Kind   `json:"kind"`
	Size    uint64 `json:"size"`
	Deposit []byte `json:"deposit"`
	Data    []byte `json:"data"`
}
