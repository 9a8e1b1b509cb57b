// Copyright 2015 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

// Package utils contains internal helper functions for gquorum commands.
package utils

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	gopsutil "github.com/shirou/gopsutil/mem"
	"github.com/tos-network/gquorum/common"
	"github.com/tos-network/gquorum/config"
	"github.com/tos-network/gquorum/internal/flags"
	"github.com/tos-network/gquorum/log"
	"github.com/tos-network/gquorum/record"
	"github.com/tos-network/gquorum/tosdb"
	"github.com/urfave/cli/v2"
)

var (
	ConfigFileFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "TOML configuration file",
		Category: flags.MiscCategory,
	}

	// Database settings
	DataDirFlag = &cli.StringFlag{
		Name:     "datadir",
		Usage:    "Data directory for the record database",
		Value:    config.DefaultDataDir(),
		Category: flags.DatabaseCategory,
	}
	DBEngineFlag = &cli.StringFlag{
		Name:     "db.engine",
		Usage:    "Backing database implementation to use ('leveldb' or 'memory')",
		Value:    config.Defaults.Engine,
		Category: flags.DatabaseCategory,
	}
	CacheFlag = &cli.IntFlag{
		Name:     "cache",
		Usage:    "Megabytes of memory allocated to the database",
		Value:    config.Defaults.DatabaseCache,
		Category: flags.DatabaseCategory,
	}

	// Logging
	VerbosityFlag = &cli.StringFlag{
		Name:     "verbosity",
		Usage:    "Logging verbosity: crit, error, warn, info, debug, trace (or 0-5)",
		Value:    config.Defaults.Log.Level,
		Category: flags.LoggingCategory,
	}
	LogJSONFlag = &cli.BoolFlag{
		Name:     "log.json",
		Usage:    "Format logs with JSON",
		Category: flags.LoggingCategory,
	}

	// Request identity
	FromFlag = &cli.StringFlag{
		Name:     "from",
		Usage:    "Authenticated address the request is sent from",
		Category: flags.QuorumCategory,
	}
)

// DatabaseFlags configure the record database.
var DatabaseFlags = []cli.Flag{
	ConfigFileFlag,
	DataDirFlag,
	DBEngineFlag,
	CacheFlag,
}

// LoggingFlags configure the root logger.
var LoggingFlags = []cli.Flag{
	VerbosityFlag,
	LogJSONFlag,
}

// Fatalf formats a message to standard error and exits the program.
// The message is also printed to standard output if standard error
// is redirected to a different file.
func Fatalf(format string, args ...interface{}) {
	w := io.MultiWriter(os.Stdout, os.Stderr)
	if runtime.GOOS == "windows" {
		// The SameFile check below doesn't work on Windows.
		// stdout is unlikely to get redirected though, so just print there.
		w = os.Stdout
	} else {
		outf, _ := os.Stdout.Stat()
		errf, _ := os.Stderr.Stat()
		if outf != nil && errf != nil && os.SameFile(outf, errf) {
			w = os.Stderr
		}
	}
	fmt.Fprintf(w, "Fatal: "+format+"\n", args...)
	os.Exit(1)
}

// MakeConfig loads the configuration file, if any, and applies command line
// flags on top of it.
func MakeConfig(ctx *cli.Context) (config.Config, error) {
	cfg := config.Defaults
	if file := ctx.String(ConfigFileFlag.Name); file != "" {
		loaded, err := config.Load(file)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if ctx.IsSet(DataDirFlag.Name) {
		cfg.DataDir = ctx.String(DataDirFlag.Name)
	}
	if ctx.IsSet(DBEngineFlag.Name) {
		cfg.Engine = ctx.String(DBEngineFlag.Name)
	}
	if ctx.IsSet(CacheFlag.Name) {
		cfg.DatabaseCache = ctx.Int(CacheFlag.Name)
	}
	cfg.DatabaseCache = sanitizeCache(cfg.DatabaseCache)
	if ctx.IsSet(VerbosityFlag.Name) {
		cfg.Log.Level = ctx.String(VerbosityFlag.Name)
	}
	if ctx.IsSet(LogJSONFlag.Name) {
		cfg.Log.JSON = ctx.Bool(LogJSONFlag.Name)
	}
	return cfg, cfg.Validate()
}

// sanitizeCache caps the database cache at a third of physical memory.
func sanitizeCache(cache int) int {
	mem, err := gopsutil.VirtualMemory()
	if err != nil {
		return cache
	}
	if 32<<(^uintptr(0)>>63) == 32 && mem.Total > 2*1024*1024*1024 {
		log.Warn("Lowering memory allowance on 32bit arch", "available", mem.Total/1024/1024, "addressable", 2*1024)
		mem.Total = 2 * 1024 * 1024 * 1024
	}
	allowance := int(mem.Total / 1024 / 1024 / 3)
	if cache > allowance {
		log.Warn("Sanitizing cache to Go's GC limits", "provided", cache, "updated", allowance)
		return allowance
	}
	return cache
}

// SetupLogging installs the configured root logger.
func SetupLogging(cfg *config.Config) {
	log.Configure(cfg.Log)
}

// OpenStore opens the configured database and a record store on top of it.
func OpenStore(cfg *config.Config, readonly bool) (*record.Store, tosdb.KeyValueStore, error) {
	db, err := cfg.OpenDatabase(readonly)
	if err != nil {
		return nil, nil, err
	}
	store, err := record.New(db, cfg.RecordConfig())
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db, nil
}

// ParseAddress parses a full-length hex address.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// ParseAddressList parses a comma separated list of addresses.
func ParseAddressList(s string) ([]common.Address, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var list []common.Address
	for _, item := range strings.Split(s, ",") {
		addr, err := ParseAddress(item)
		if err != nil {
			return nil, err
		}
		list = append(list, addr)
	}
	return list, nil
}

// MakeAddress reads a required address flag.
func MakeAddress(ctx *cli.Context, name string) (common.Address, error) {
	if !ctx.IsSet(name) {
		return common.Address{}, fmt.Errorf("missing required flag --%s", name)
	}
	addr, err := ParseAddress(ctx.String(name))
	if err != nil {
		return common.Address{}, fmt.Errorf("--%s: %v", name, err)
	}
	return addr, nil
}

// ParseUint8 parses a decimal value in [0, 255].
func ParseUint8(s string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8)
	return uint8(v), err
}
