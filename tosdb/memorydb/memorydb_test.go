package memorydb

import (
	"testing"

	"github.com/tos-network/gquorum/tosdb"
	"github.com/tos-network/gquorum/tosdb/dbtest"
)

func TestMemoryDB(t *testing.T) {
	t.Run("DatabaseSuite", func(t *testing.T) {
		dbtest.TestDatabaseSuite(t, func() tosdb.KeyValueStore {
			return New()
		})
	})
}

func TestClosedDatabaseRejectsAccess(t *testing.T) {
	db := New()
	if err := db.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	db.Close()
	if _, err := db.Get([]byte("k")); err != errMemorydbClosed {
		t.Fatalf("get after close: want errMemorydbClosed, got %v", err)
	}
	if err := db.NewBatch().Write(); err != errMemorydbClosed {
		t.Fatalf("batch after close: want errMemorydbClosed, got %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	db := New()
	db.Put([]byte("k"), []byte("value"))
	got, _ := db.Get([]byte("k"))
	got[0] = 'X'
	again, _ := db.Get([]byte("k"))
	if string(again) != "value" {
		t.Fatalf("stored value mutated through returned slice: %q", again)
	}
}
