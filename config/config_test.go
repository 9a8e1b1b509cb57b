package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tos-network/gquorum/tosdb/memorydb"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
Engine = "memory"
ByteDeposit = 3

[Log]
Level = "debug"
JSON = true

[API]
Addr = "0.0.0.0:9000"
CorsOrigins = ["https://wallet.example"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, EngineMemory, cfg.Engine)
	require.Equal(t, uint64(3), cfg.ByteDeposit)
	require.Equal(t, "debug", cfg.Log.Level)
	require.True(t, cfg.Log.JSON)
	require.Equal(t, Defaults.RecordCache, cfg.RecordCache)
	require.Equal(t, uint64(3), cfg.RecordConfig().ByteDeposit)
	require.Equal(t, "0.0.0.0:9000", cfg.API.Addr)
	require.Equal(t, []string{"https://wallet.example"}, cfg.API.CorsOrigins)
	require.Equal(t, Defaults.API.RequestTimeout, cfg.API.RequestTimeout)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeConfig(t, "Engine = \"memory\"\nThreshold = 2\n")
	_, err := Load(path)
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), path), "error lacks file name: %v", err)
}

func TestLoadRejectsUnknownEngine(t *testing.T) {
	path := writeConfig(t, "Engine = \"pebble\"\n")
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown database engine")
}

func TestDumpRoundTrip(t *testing.T) {
	cfg := Defaults
	cfg.Engine = EngineMemory
	cfg.DataDir = "/var/lib/gquorum"

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, &cfg))
	loaded, err := Load(writeConfig(t, buf.String()))
	require.NoError(t, err)
	require.Equal(t, cfg.Engine, loaded.Engine)
	require.Equal(t, cfg.DataDir, loaded.DataDir)
	require.Equal(t, cfg.DatabaseCache, loaded.DatabaseCache)
}

func TestOpenDatabase(t *testing.T) {
	cfg := Defaults
	cfg.Engine = EngineMemory
	db, err := cfg.OpenDatabase(false)
	require.NoError(t, err)
	require.IsType(t, &memorydb.Database{}, db)
	require.NoError(t, db.Close())

	cfg.Engine = EngineLevelDB
	cfg.DataDir = t.TempDir()
	db, err = cfg.OpenDatabase(false)
	require.NoError(t, err)
	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	require.NoError(t, db.Close())
}
