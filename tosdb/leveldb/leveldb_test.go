package leveldb

import (
	"path/filepath"
	"testing"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/tos-network/gquorum/log"
	"github.com/tos-network/gquorum/tosdb"
	"github.com/tos-network/gquorum/tosdb/dbtest"
)

func TestLevelDB(t *testing.T) {
	t.Run("DatabaseSuite", func(t *testing.T) {
		dbtest.TestDatabaseSuite(t, func() tosdb.KeyValueStore {
			db, err := leveldb.Open(storage.NewMemStorage(), nil)
			if err != nil {
				t.Fatal(err)
			}
			return &Database{
				db:  db,
				log: log.New("database", "memory"),
			}
		})
	})
}

func TestReopenKeepsData(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "records")
	db, err := New(dir, 0, 0, false)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Put([]byte("group"), []byte("payload")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("second close must be a no-op: %v", err)
	}

	db, err = New(dir, 0, 0, true)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	got, err := db.Get([]byte("group"))
	if err != nil || string(got) != "payload" {
		t.Fatalf("reopened value: have %q, %v", got, err)
	}
	if db.Path() != dir {
		t.Fatalf("path: have %s want %s", db.Path(), dir)
	}
}
