// Package core holds the ambient stack shared by every forwarding
// component: structured logging and the YAML-backed daemon configuration,
// grounded in the teacher module's std/log and fw/cmd/cmd.go patterns.
package core

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Level mirrors the teacher's std/log.Level: an ordered severity with an
// unusually wide numeric spacing (multiples of 4) so future levels can be
// inserted without renumbering everything above them.
type Level int

const (
	LevelTrace Level = -8
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
	LevelFatal Level = 12
)

// ParseLevel parses the LOG_LEVEL environment variable (spec.md §6: the
// only environment flag this forwarder recognizes).
func ParseLevel(s string) (Level, error) {
	switch s {
	case "trace", "TRACE":
		return LevelTrace, nil
	case "debug", "DEBUG":
		return LevelDebug, nil
	case "info", "INFO", "":
		return LevelInfo, nil
	case "warn", "WARN":
		return LevelWarn, nil
	case "error", "ERROR":
		return LevelError, nil
	case "fatal", "FATAL":
		return LevelFatal, nil
	}
	return LevelInfo, fmt.Errorf("invalid log level: %s", s)
}

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Loggable is any component that can identify itself in a log line — every
// table, face, and thread type in this repo implements String().
type Loggable interface {
	String() string
}

// Logger writes leveled, structured key=value log lines to stderr. Every
// call site across pkg/table, pkg/face, pkg/forwarder, pkg/mgmt follows the
// teacher's shape: Log.Warn(self, "message", "key", value, ...).
type Logger struct {
	mu  sync.Mutex
	min Level
	out *os.File
}

// Log is the package-level logger every component calls through, matching
// the teacher's `core.Log.Info(...)` call sites throughout fw/mgmt and
// fw/face.
var Log = NewLogger(levelFromEnv())

func levelFromEnv() Level {
	lvl, err := ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return LevelInfo
	}
	return lvl
}

// NewLogger constructs a Logger at the given minimum level, writing to
// stderr.
func NewLogger(min Level) *Logger {
	return &Logger{min: min, out: os.Stderr}
}

func (l *Logger) log(level Level, who Loggable, msg string, kv ...any) {
	if level < l.min {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.out, "%s [%s] %s: %s", time.Now().Format(time.RFC3339Nano), level, who.String(), msg)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(l.out, " %v=%v", kv[i], kv[i+1])
	}
	fmt.Fprintln(l.out)

	if level == LevelFatal {
		os.Exit(1)
	}
}

func (l *Logger) Trace(who Loggable, msg string, kv ...any) { l.log(LevelTrace, who, msg, kv...) }
func (l *Logger) Debug(who Loggable, msg string, kv ...any) { l.log(LevelDebug, who, msg, kv...) }
func (l *Logger) Info(who Loggable, msg string, kv ...any)  { l.log(LevelInfo, who, msg, kv...) }
func (l *Logger) Warn(who Loggable, msg string, kv ...any)  { l.log(LevelWarn, who, msg, kv...) }
func (l *Logger) Error(who Loggable, msg string, kv ...any) { l.log(LevelError, who, msg, kv...) }

// Fatal logs a diagnostic at LevelFatal and exits the process. Its only
// callers are in profiler.go (a profile file that cannot be opened or
// written); the tables do not check for CS accounting drift or PIT entries
// with no incoming faces, so nothing calls Fatal for those.
func (l *Logger) Fatal(who Loggable, msg string, kv ...any) { l.log(LevelFatal, who, msg, kv...) }

// SetLevel adjusts the minimum level at runtime (used by tests to quiet
// output, and could be wired to a future ConfigureFastPath-style RPC).
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.min = level
}
