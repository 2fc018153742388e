// Package log is the process-wide structured logger for go-sarus.
// Every subsystem logs through the slog handlers configured here, and
// each long-lived loop tags its lines with a component attribute so a
// mixed log stream can be split back out per subsystem.
package log

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu         sync.Mutex
	root       *slog.Logger
	components map[string]*slog.Logger
)

// ParseLevel maps a config string onto an slog level. Unknown values
// fall back to info so a typo in the config never silences the log.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init configures the root logger. Robots in the field run with JSON
// output so lines can be shipped and indexed; on a workbench the text
// handler is easier to read. SARUS_ENV=production selects JSON.
func Init(level string) {
	InitWriter(level, os.Stdout)
}

// InitWriter is Init with an explicit destination. Calling it again
// replaces the handler and drops any cached component loggers.
func InitWriter(level string, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	initLocked(level, w)
}

func initLocked(level string, w io.Writer) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var h slog.Handler
	if os.Getenv("SARUS_ENV") == "production" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	root = slog.New(h)
	components = make(map[string]*slog.Logger)
	slog.SetDefault(root)
}

// L returns the root logger, configuring defaults on first use.
func L() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return rootLocked()
}

func rootLocked() *slog.Logger {
	if root == nil {
		initLocked("info", os.Stdout)
	}
	return root
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}

// Component returns a logger tagged with a subsystem name. Loggers
// are cached per name so the control loops share one instance.
func Component(name string) *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if l, ok := components[name]; ok {
		return l
	}
	l := rootLocked().With("component", name)
	components[name] = l
	return l
}
