package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// EnvLogLevel overrides the configured level when set.
const EnvLogLevel = "GQUORUM_LOG_LEVEL"

// Config selects the log level and output format.
type Config struct {
	Level   string `toml:",omitempty"`
	JSON    bool   `toml:",omitempty"`
	NoColor bool   `toml:",omitempty"`

	Output io.Writer `toml:"-"`
}

// DefaultConfig logs info and above to stderr in console format.
func DefaultConfig() Config {
	return Config{Level: "info"}
}

// Configure replaces the root logger.
func Configure(cfg Config) {
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		cfg.Level = lvl
	}
	root.Store(newLogger(cfg))
}

func newLogger(cfg Config) *logger {
	out := cfg.Output
	if out == nil {
		if isatty.IsTerminal(os.Stderr.Fd()) {
			out = colorable.NewColorableStderr()
		} else {
			out = os.Stderr
			cfg.NoColor = true
		}
	}
	lvl, ok := ParseLevel(cfg.Level)
	if !ok {
		lvl = LvlInfo
	}
	l := &logger{terminal: !cfg.JSON}
	if cfg.JSON {
		l.zl = zerolog.New(out).With().Timestamp().Logger()
	} else {
		l.zl = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    cfg.NoColor,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
	l.zl = l.zl.Level(zerologLevel(lvl))
	return l
}

// ParseLevel maps a level name (or its gtos verbosity digit) to a Lvl.
func ParseLevel(raw string) (Lvl, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace", "5":
		return LvlTrace, true
	case "debug", "4":
		return LvlDebug, true
	case "info", "3":
		return LvlInfo, true
	case "warn", "warning", "2":
		return LvlWarn, true
	case "error", "1":
		return LvlError, true
	case "crit", "0":
		return LvlCrit, true
	}
	return LvlInfo, false
}

func zerologLevel(l Lvl) zerolog.Level {
	switch l {
	case LvlTrace:
		return zerolog.TraceLevel
	case LvlDebug:
		return zerolog.DebugLevel
	case LvlInfo:
		return zerolog.InfoLevel
	case LvlWarn:
		return zerolog.WarnLevel
	case LvlError:
		return zerolog.ErrorLevel
	}
	return zerolog.FatalLevel
}
