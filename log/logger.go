// Package log provides the key/value logger used throughout gquorum.
//
// Call sites follow the gtos convention:
//
//	log.Info("Executed proposal", "group", group, "approvals", n)
//
// Records are rendered by zerolog, either as console lines or as JSON.
package log

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Lvl is a logging verbosity level. Larger values are more verbose.
type Lvl int

const (
	LvlCrit Lvl = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

const errorKey = "LOG_ERROR"

// TerminalStringer is implemented by values that have a compact form for
// console output, such as addresses and hashes.
type TerminalStringer interface {
	TerminalString() string
}

// Logger writes key/value pairs at a given level.
type Logger interface {
	// New returns a child logger that always carries ctx.
	New(ctx ...interface{}) Logger

	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})
}

type logger struct {
	zl       zerolog.Logger
	terminal bool
}

var root atomic.Value // *logger

func init() {
	root.Store(newLogger(DefaultConfig()))
}

// Root returns the process-wide logger.
func Root() Logger { return root.Load().(*logger) }

// New returns a child of the root logger carrying ctx.
func New(ctx ...interface{}) Logger { return Root().New(ctx...) }

// Trace logs at LvlTrace on the root logger.
func Trace(msg string, ctx ...interface{}) { root.Load().(*logger).write(zerolog.TraceLevel, msg, ctx) }

// Debug logs at LvlDebug on the root logger.
func Debug(msg string, ctx ...interface{}) { root.Load().(*logger).write(zerolog.DebugLevel, msg, ctx) }

// Info logs at LvlInfo on the root logger.
func Info(msg string, ctx ...interface{}) { root.Load().(*logger).write(zerolog.InfoLevel, msg, ctx) }

// Warn logs at LvlWarn on the root logger.
func Warn(msg string, ctx ...interface{}) { root.Load().(*logger).write(zerolog.WarnLevel, msg, ctx) }

// Error logs at LvlError on the root logger.
func Error(msg string, ctx ...interface{}) { root.Load().(*logger).write(zerolog.ErrorLevel, msg, ctx) }

// Crit logs at LvlCrit on the root logger and terminates the process.
func Crit(msg string, ctx ...interface{}) {
	root.Load().(*logger).write(zerolog.ErrorLevel, msg, ctx)
	os.Exit(1)
}

func (l *logger) New(ctx ...interface{}) Logger {
	child := &logger{terminal: l.terminal}
	child.zl = l.zl.With().Fields(l.normalize(ctx)).Logger()
	return child
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.write(zerolog.TraceLevel, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.write(zerolog.DebugLevel, msg, ctx) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.write(zerolog.InfoLevel, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.write(zerolog.WarnLevel, msg, ctx) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.write(zerolog.ErrorLevel, msg, ctx) }

func (l *logger) Crit(msg string, ctx ...interface{}) {
	l.write(zerolog.ErrorLevel, msg, ctx)
	os.Exit(1)
}

func (l *logger) write(level zerolog.Level, msg string, ctx []interface{}) {
	ev := l.zl.WithLevel(level)
	if ev == nil {
		return
	}
	if len(ctx) > 0 {
		ev = ev.Fields(l.normalize(ctx))
	}
	ev.Msg(msg)
}

// normalize turns the alternating key/value list into zerolog fields. An odd
// trailing value is kept under errorKey rather than dropped.
func (l *logger) normalize(ctx []interface{}) []interface{} {
	if len(ctx)%2 != 0 {
		ctx = append(ctx, nil)
		ctx[len(ctx)-1], ctx[len(ctx)-2] = ctx[len(ctx)-2], errorKey
	}
	out := make([]interface{}, 0, len(ctx))
	for i := 0; i < len(ctx); i += 2 {
		key, ok := ctx[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", ctx[i])
		}
		out = append(out, key, l.formatValue(ctx[i+1]))
	}
	return out
}

func (l *logger) formatValue(v interface{}) interface{} {
	switch v := v.(type) {
	case nil:
		return nil
	case error:
		return v.Error()
	case TerminalStringer:
		if l.terminal {
			return v.TerminalString()
		}
		return fmt.Sprint(v)
	case fmt.Stringer:
		return v.String()
	}
	return v
}
