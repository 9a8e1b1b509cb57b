// Package config holds the TOML configuration of a gquorum node.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"unicode"

	"github.com/naoina/toml"
	"github.com/tos-network/gquorum/log"
	"github.com/tos-network/gquorum/params"
	"github.com/tos-network/gquorum/quorumapi"
	"github.com/tos-network/gquorum/record"
	"github.com/tos-network/gquorum/tosdb"
	"github.com/tos-network/gquorum/tosdb/leveldb"
	"github.com/tos-network/gquorum/tosdb/memorydb"
)

// Database engines.
const (
	EngineLevelDB = "leveldb"
	EngineMemory  = "memory"
)

// Config is the top-level node configuration.
type Config struct {
	DataDir string

	// Database engine, one of "leveldb" or "memory".
	Engine          string
	DatabaseCache   int
	DatabaseHandles int

	// Record store tunables.
	RecordCache int
	ByteDeposit uint64

	Log log.Config
	API quorumapi.Config
}

// Defaults contains default settings.
var Defaults = Config{
	DataDir:         DefaultDataDir(),
	Engine:          EngineLevelDB,
	DatabaseCache:   512,
	DatabaseHandles: 256,
	RecordCache:     record.DefaultConfig.CacheSize,
	ByteDeposit:     params.DefaultByteDeposit,
	Log:             log.DefaultConfig(),
	API:             quorumapi.DefaultConfig,
}

// DefaultDataDir is the default data directory.
func DefaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".gquorum")
	}
	return ""
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://pkg.go.dev/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// Load reads the TOML file at path over a copy of Defaults.
func Load(path string) (Config, error) {
	cfg := Defaults
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(path + ", " + err.Error())
	}
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate checks the settings that have no usable fallback.
func (c *Config) Validate() error {
	switch c.Engine {
	case EngineLevelDB:
		if c.DataDir == "" {
			return errors.New("config: leveldb engine requires a data directory")
		}
	case EngineMemory:
	default:
		return fmt.Errorf("config: unknown database engine %q", c.Engine)
	}
	return nil
}

// Dump writes cfg as TOML.
func Dump(w io.Writer, cfg *Config) error {
	out, err := tomlSettings.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// OpenDatabase opens the configured key/value store.
func (c *Config) OpenDatabase(readonly bool) (tosdb.KeyValueStore, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Engine == EngineMemory {
		return memorydb.New(), nil
	}
	return leveldb.New(filepath.Join(c.DataDir, "records"), c.DatabaseCache, c.DatabaseHandles, readonly)
}

// RecordConfig returns the record store settings.
func (c *Config) RecordConfig() record.Config {
	return record.Config{ByteDeposit: c.ByteDeposit, CacheSize: c.RecordCache}
}
