package record

import (
	"encoding/json"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/holiman/uint256"
	"github.com/tos-network/gquorum/common"
	"github.com/tos-network/gquorum/crypto"
	"github.com/tos-network/gquorum/log"
	"github.com/tos-network/gquorum/params"
	"github.com/tos-network/gquorum/tosdb"
)

var (
	recordPrefix  = []byte("r") // recordPrefix + address -> json(storedRecord)
	balancePrefix = []byte("b") // balancePrefix + address -> 32-byte big-endian balance
)

// Config holds the store's tunables.
type Config struct {
	ByteDeposit uint64 // deposit charged per allocated byte
	CacheSize   int    // committed records kept decoded in memory
}

// DefaultConfig is used by New when no config is supplied.
var DefaultConfig = Config{
	ByteDeposit: params.DefaultByteDeposit,
	CacheSize:   1024,
}

// Store is the record store. It is not safe for concurrent use; the caller
// applies one request at a time.
type Store struct {
	db    tosdb.KeyValueStore
	clean *lru.ARCCache // address -> *Record, committed state only

	records  map[common.Address]*Record      // dirty records, nil means released
	balances map[common.Address]*uint256.Int // dirty balances
	journal  []journalEntry

	byteDeposit *uint256.Int
	log         log.Logger
}

// journalEntry remembers the dirty-overlay value an address had before one
// mutation, so the mutation can be undone.
type journalEntry struct {
	addr    common.Address
	balance bool
	existed bool

	prevRecord  *Record
	prevBalance *uint256.Int
}

// New opens a store over db.
func New(db tosdb.KeyValueStore, config Config) (*Store, error) {
	if config.CacheSize <= 0 {
		config.CacheSize = DefaultConfig.CacheSize
	}
	clean, err := lru.NewARC(config.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Store{
		db:          db,
		clean:       clean,
		records:     make(map[common.Address]*Record),
		balances:    make(map[common.Address]*uint256.Int),
		byteDeposit: uint256.NewInt(config.ByteDeposit),
		log:         log.New("module", "record"),
	}, nil
}

// DepositFor returns the deposit charged for a record of the given size.
func (s *Store) DepositFor(size uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(size), s.byteDeposit)
}

// Allocate creates a record of the given kind and size at addr, charging the
// deposit to payer. addr must equal the program address derived from seeds.
func (s *Store) Allocate(kind Kind, addr common.Address, size uint64, payer common.Address, seeds ...[]byte) (*Record, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnboundAddress, addr)
	}
	if derived := crypto.CreateProgramAddress(seeds...); derived != addr {
		return nil, fmt.Errorf("%w: have %s, derived %s", ErrAddressMismatch, addr, derived)
	}
	exists, err := s.Exists(addr)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrRecordExists, addr)
	}
	deposit := s.DepositFor(size)
	balance, err := s.loadBalance(payer)
	if err != nil {
		return nil, err
	}
	if balance.Lt(deposit) {
		return nil, fmt.Errorf("%w: payer %s has %s, need %s", ErrInsufficientDeposit, payer, balance.ToBig(), deposit.ToBig())
	}
	s.setBalance(payer, new(uint256.Int).Sub(balance, deposit))

	rec := &Record{
		Address: addr,
		Kind:    kind,
		Size:    size,
		Deposit: deposit,
	}
	s.setRecord(addr, rec)
	s.log.Trace("Allocated record", "kind", kind, "addr", addr, "size", size, "payer", payer)
	return rec.Copy(), nil
}

// Get returns a copy of the record at addr.
func (s *Store) Get(addr common.Address) (*Record, error) {
	rec, err := s.loadRecord(addr)
	if err != nil {
		return nil, err
	}
	return rec.Copy(), nil
}

// Exists reports whether a record is allocated at addr.
func (s *Store) Exists(addr common.Address) (bool, error) {
	_, err := s.loadRecord(addr)
	if errors.Is(err, ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Write replaces the data of the record at addr.
func (s *Store) Write(addr common.Address, data []byte) error {
	rec, err := s.loadRecord(addr)
	if err != nil {
		return err
	}
	if uint64(len(data)) > rec.Size {
		return fmt.Errorf("%w: %d > %d at %s", ErrRecordTooLarge, len(data), rec.Size, addr)
	}
	updated := rec.Copy()
	updated.Data = make([]byte, len(data))
	copy(updated.Data, data)
	s.setRecord(addr, updated)
	return nil
}

// Release frees the record at addr and credits its deposit to beneficiary.
func (s *Store) Release(addr common.Address, beneficiary common.Address) error {
	rec, err := s.loadRecord(addr)
	if err != nil {
		return err
	}
	balance, err := s.loadBalance(beneficiary)
	if err != nil {
		return err
	}
	s.setBalance(beneficiary, new(uint256.Int).Add(balance, rec.Deposit))
	s.setRecord(addr, nil)
	s.log.Trace("Released record", "kind", rec.Kind, "addr", addr, "beneficiary", beneficiary)
	return nil
}

// Balance returns the deposit balance of addr.
func (s *Store) Balance(addr common.Address) (*uint256.Int, error) {
	balance, err := s.loadBalance(addr)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(balance), nil
}

// AddBalance credits amount to addr.
func (s *Store) AddBalance(addr common.Address, amount *uint256.Int) error {
	balance, err := s.loadBalance(addr)
	if err != nil {
		return err
	}
	s.setBalance(addr, new(uint256.Int).Add(balance, amount))
	return nil
}

// SubBalance debits amount from addr.
func (s *Store) SubBalance(addr common.Address, amount *uint256.Int) error {
	balance, err := s.loadBalance(addr)
	if err != nil {
		return err
	}
	if balance.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, need %s", ErrInsufficientBalance, addr, balance.ToBig(), amount.ToBig())
	}
	s.setBalance(addr, new(uint256.Int).Sub(balance, amount))
	return nil
}

// Snapshot returns an identifier for the current overlay revision.
func (s *Store) Snapshot() int {
	return len(s.journal)
}

// RevertToSnapshot undoes every mutation made after the given snapshot.
func (s *Store) RevertToSnapshot(id int) {
	if id < 0 || id > len(s.journal) {
		panic(fmt.Errorf("revision id %v cannot be reverted", id))
	}
	for i := len(s.journal) - 1; i >= id; i-- {
		entry := s.journal[i]
		switch {
		case entry.balance && entry.existed:
			s.balances[entry.addr] = entry.prevBalance
		case entry.balance:
			delete(s.balances, entry.addr)
		case entry.existed:
			s.records[entry.addr] = entry.prevRecord
		default:
			delete(s.records, entry.addr)
		}
	}
	s.journal = s.journal[:id]
}

// Commit flushes the overlay to the database in one batch and resets it. If
// the flush fails the overlay is discarded, leaving the committed state as it
// was.
func (s *Store) Commit() error {
	if err := s.flush(); err != nil {
		s.log.Warn("Discarding uncommitted records", "records", len(s.records), "balances", len(s.balances), "err", err)
		s.Discard()
		return err
	}
	return nil
}

// Discard drops every uncommitted mutation.
func (s *Store) Discard() {
	s.records = make(map[common.Address]*Record)
	s.balances = make(map[common.Address]*uint256.Int)
	s.journal = s.journal[:0]
}

func (s *Store) flush() error {
	batch := s.db.NewBatch()
	for addr, rec := range s.records {
		if rec == nil {
			if err := batch.Delete(recordKey(addr)); err != nil {
				return err
			}
			continue
		}
		blob, err := encodeRecord(rec)
		if err != nil {
			return err
		}
		if err := batch.Put(recordKey(addr), blob); err != nil {
			return err
		}
	}
	for addr, balance := range s.balances {
		var err error
		if balance.IsZero() {
			err = batch.Delete(balanceKey(addr))
		} else {
			word := balance.Bytes32()
			err = batch.Put(balanceKey(addr), word[:])
		}
		if err != nil {
			return err
		}
	}
	if err := batch.Write(); err != nil {
		return err
	}
	for addr, rec := range s.records {
		if rec == nil {
			s.clean.Remove(addr)
		} else {
			s.clean.Add(addr, rec)
		}
	}
	s.log.Debug("Committed records", "records", len(s.records), "balances", len(s.balances))

	s.Discard()
	return nil
}

func (s *Store) setRecord(addr common.Address, rec *Record) {
	prev, existed := s.records[addr]
	s.journal = append(s.journal, journalEntry{addr: addr, existed: existed, prevRecord: prev})
	s.records[addr] = rec
}

func (s *Store) setBalance(addr common.Address, balance *uint256.Int) {
	prev, existed := s.balances[addr]
	s.journal = append(s.journal, journalEntry{addr: addr, balance: true, existed: existed, prevBalance: prev})
	s.balances[addr] = balance
}

// loadRecord returns the live record at addr. The result is shared and must
// not be mutated.
func (s *Store) loadRecord(addr common.Address) (*Record, error) {
	if rec, ok := s.records[addr]; ok {
		if rec == nil {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, addr)
		}
		return rec, nil
	}
	if cached, ok := s.clean.Get(addr); ok {
		return cached.(*Record), nil
	}
	blob, err := s.db.Get(recordKey(addr))
	if errors.Is(err, tosdb.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, addr)
	}
	if err != nil {
		return nil, err
	}
	rec, err := decodeRecord(addr, blob)
	if err != nil {
		return nil, err
	}
	s.clean.Add(addr, rec)
	return rec, nil
}

func (s *Store) loadBalance(addr common.Address) (*uint256.Int, error) {
	if balance, ok := s.balances[addr]; ok {
		return balance, nil
	}
	blob, err := s.db.Get(balanceKey(addr))
	if errors.Is(err, tosdb.ErrNotFound) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(blob), nil
}

func recordKey(addr common.Address) []byte {
	return append(append([]byte{}, recordPrefix...), addr[:]...)
}

func balanceKey(addr common.Address) []byte {
	return append(append([]byte{}, balancePrefix...), addr[:]...)
}

func encodeRecord(rec *Record) ([]byte, error) {
	deposit := rec.Deposit.Bytes32()
	return json.Marshal(storedRecord{
		Kind:    rec.Kind,
		Size:    rec.Size,
		Deposit: deposit[:],
		Data:    rec.Data,
	})
}

func decodeRecord(addr common.Address, blob []byte) (*Record, error) {
	var stored storedRecord
	if err := json.Unmarshal(blob, &stored); err != nil {
		return nil, fmt.Errorf("record: corrupt entry at %s: %v", addr, err)
	}
	return &Record{
		Address: addr,
		Kind:    stored.Kind,
		Size:    stored.Size,
		Deposit: new(uint256.Int).SetBytes(stored.Deposit),
		Data:    stored.Data,
	}, nil
}
