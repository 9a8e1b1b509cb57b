package record

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"github.com/tos-network/gquorum/common"
	"github.com/tos-network/gquorum/crypto"
	"github.com/tos-network/gquorum/tosdb"
	"github.com/tos-network/gquorum/tosdb/memorydb"
)

var (
	payer = common.HexToAddress("0xe8b0087eec10090b15f4fc4bc96aaa54e2d44c299564da76e1cd3184a2386b8d")
	other = common.HexToAddress("0xd0c8d1bb01b01528cd7fa3145d46ac553a974ef992a08eeef0a05990802f01f6")
)

// seeded returns an address derived from name together with its seeds.
func seeded(name string) (common.Address, [][]byte) {
	seeds := [][]byte{[]byte("test"), []byte(name)}
	return crypto.CreateProgramAddress(seeds...), seeds
}

func newTestStore(t *testing.T) (*Store, *memorydb.Database) {
	t.Helper()
	db := memorydb.New()
	s, err := New(db, Config{ByteDeposit: 2, CacheSize: 16})
	require.NoError(t, err)
	return s, db
}

func TestAllocateChargesDeposit(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.AddBalance(payer, uint256.NewInt(100)))

	addr, seeds := seeded("group")
	rec, err := s.Allocate(KindGroup, addr, 30, payer, seeds...)
	require.NoError(t, err)
	require.Equal(t, uint64(60), rec.Deposit.Uint64())

	balance, err := s.Balance(payer)
	require.NoError(t, err)
	require.Equal(t, uint64(40), balance.Uint64())

	_, err = s.Allocate(KindGroup, addr, 1, payer, seeds...)
	require.ErrorIs(t, err, ErrRecordExists)

	big, bigSeeds := seeded("big")
	_, err = s.Allocate(KindGroup, big, 21, payer, bigSeeds...)
	require.ErrorIs(t, err, ErrInsufficientDeposit)
}

func TestAllocateVerifiesSeeds(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.AddBalance(payer, uint256.NewInt(1000)))

	seeds := [][]byte{[]byte("ownership"), payer[:], other[:]}
	derived := crypto.CreateProgramAddress(seeds...)

	_, err := s.Allocate(KindMembership, other, 10, payer, seeds...)
	require.ErrorIs(t, err, ErrAddressMismatch)

	_, err = s.Allocate(KindMembership, derived, 10, payer, seeds...)
	require.NoError(t, err)
	exists, err := s.Exists(derived)
	require.NoError(t, err)
	require.True(t, exists)

	// Addresses not derived from seeds cannot be allocated at all.
	_, err = s.Allocate(KindGroup, other, 10, payer)
	require.ErrorIs(t, err, ErrUnboundAddress)
	exists, err = s.Exists(other)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestWriteRespectsSize(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.AddBalance(payer, uint256.NewInt(1000)))
	addr, seeds := seeded("proposal")
	_, err := s.Allocate(KindProposal, addr, 4, payer, seeds...)
	require.NoError(t, err)

	require.NoError(t, s.Write(addr, []byte("abcd")))
	require.ErrorIs(t, s.Write(addr, []byte("abcde")), ErrRecordTooLarge)

	rec, err := s.Get(addr)
	require.NoError(t, err)
	require.Equal(t, []byte("abcd"), rec.Data)

	// Mutating the returned copy must not leak into the store.
	rec.Data[0] = 'X'
	again, err := s.Get(addr)
	require.NoError(t, err)
	require.Equal(t, []byte("abcd"), again.Data)

	require.ErrorIs(t, s.Write(common.HexToAddress("0x04"), nil), ErrRecordNotFound)
}

func TestReleaseRefundsBeneficiary(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.AddBalance(payer, uint256.NewInt(100)))
	addr, seeds := seeded("membership")
	_, err := s.Allocate(KindMembership, addr, 10, payer, seeds...)
	require.NoError(t, err)

	require.NoError(t, s.Release(addr, other))
	exists, err := s.Exists(addr)
	require.NoError(t, err)
	require.False(t, exists)

	balance, err := s.Balance(other)
	require.NoError(t, err)
	require.Equal(t, uint64(20), balance.Uint64())

	require.ErrorIs(t, s.Release(addr, other), ErrRecordNotFound)
}

func TestRevertToSnapshot(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.AddBalance(payer, uint256.NewInt(100)))
	keep, keepSeeds := seeded("keep")
	_, err := s.Allocate(KindGroup, keep, 5, payer, keepSeeds...)
	require.NoError(t, err)
	require.NoError(t, s.Write(keep, []byte("v1")))

	snap := s.Snapshot()
	require.NoError(t, s.Write(keep, []byte("v2")))
	dropped, droppedSeeds := seeded("dropped")
	_, err = s.Allocate(KindGroup, dropped, 5, payer, droppedSeeds...)
	require.NoError(t, err)
	require.NoError(t, s.Release(keep, other))

	s.RevertToSnapshot(snap)

	rec, err := s.Get(keep)
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), rec.Data)
	exists, err := s.Exists(dropped)
	require.NoError(t, err)
	require.False(t, exists)

	balance, err := s.Balance(payer)
	require.NoError(t, err)
	require.Equal(t, uint64(90), balance.Uint64())
	balance, err = s.Balance(other)
	require.NoError(t, err)
	require.True(t, balance.IsZero())

	require.Panics(t, func() { s.RevertToSnapshot(snap + 100) })
}

func TestCommitPersists(t *testing.T) {
	s, db := newTestStore(t)
	require.NoError(t, s.AddBalance(payer, uint256.NewInt(100)))
	addr, seeds := seeded("committed")
	_, err := s.Allocate(KindProposal, addr, 8, payer, seeds...)
	require.NoError(t, err)
	require.NoError(t, s.Write(addr, []byte("payload")))
	require.NoError(t, s.Commit())

	// A fresh store over the same database sees the committed state.
	fresh, err := New(db, Config{ByteDeposit: 2})
	require.NoError(t, err)
	rec, err := fresh.Get(addr)
	require.NoError(t, err)
	require.Equal(t, KindProposal, rec.Kind)
	require.Equal(t, uint64(8), rec.Size)
	require.Equal(t, uint64(16), rec.Deposit.Uint64())
	require.Equal(t, []byte("payload"), rec.Data)
	balance, err := fresh.Balance(payer)
	require.NoError(t, err)
	require.Equal(t, uint64(84), balance.Uint64())

	// Releasing and committing removes the entry and the cached copy.
	require.NoError(t, s.Release(addr, payer))
	require.NoError(t, s.Commit())
	exists, err := s.Exists(addr)
	require.NoError(t, err)
	require.False(t, exists)
	has, err := db.Has(recordKey(addr))
	require.NoError(t, err)
	require.False(t, has)
}

var errBatchWrite = errors.New("batch write failed")

// failingDB refuses every batch write while failing is set.
type failingDB struct {
	*memorydb.Database
	failing bool
}

func (db *failingDB) NewBatch() tosdb.Batch {
	return &failingBatch{Batch: db.Database.NewBatch(), db: db}
}

type failingBatch struct {
	tosdb.Batch
	db *failingDB
}

func (b *failingBatch) Write() error {
	if b.db.failing {
		return errBatchWrite
	}
	return b.Batch.Write()
}

func TestFailedCommitDiscardsOverlay(t *testing.T) {
	db := &failingDB{Database: memorydb.New()}
	s, err := New(db, Config{ByteDeposit: 2, CacheSize: 16})
	require.NoError(t, err)
	require.NoError(t, s.AddBalance(payer, uint256.NewInt(100)))
	require.NoError(t, s.Commit())

	lost, seeds := seeded("lost")
	_, err = s.Allocate(KindGroup, lost, 10, payer, seeds...)
	require.NoError(t, err)
	db.failing = true
	require.ErrorIs(t, s.Commit(), errBatchWrite)

	// The failed mutations are gone and a later commit does not resurrect them.
	db.failing = false
	require.NoError(t, s.AddBalance(other, uint256.NewInt(1)))
	require.NoError(t, s.Commit())

	exists, err := s.Exists(lost)
	require.NoError(t, err)
	require.False(t, exists)
	balance, err := s.Balance(payer)
	require.NoError(t, err)
	require.Equal(t, uint64(100), balance.Uint64())
	balance, err = s.Balance(other)
	require.NoError(t, err)
	require.Equal(t, uint64(1), balance.Uint64())
}

func TestKindString(t *testing.T) {
	require.Equal(t, "membership", KindMembership.String())
	require.Equal(t, "kind(9)", Kind(9).String())
}
