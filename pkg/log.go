package pkg

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Component identifies a subsystem for log filtering.
type Component string

// Component identifiers, one per stage of a run.
const (
	ComponentCLI     Component = "cli"     // argument handling, backend choice
	ComponentCatalog Component = "catalog" // map table parsing
	ComponentLocator Component = "locator" // enumeration and VID/PID matching
	ComponentEngine  Component = "engine"  // per-device programming sequence
	ComponentSession Component = "session" // USB subsystem lifetime
	ComponentHAL     Component = "hal"     // backend calls
)

// LogFormat specifies the output format for logging.
type LogFormat int

// Log format options.
const (
	LogFormatText LogFormat = iota // key=value lines (default)
	LogFormatJSON                  // one JSON object per line
)

// Levels used by the command line. Diagnostics stay quiet unless -v is
// given; the user-facing WARNING/ERROR/outcome lines are not log records
// and are printed regardless.
const (
	QuietLevel   = slog.LevelWarn
	VerboseLevel = slog.LevelDebug
)

var (
	logger   *slog.Logger
	logLevel = new(slog.LevelVar)
	logMutex sync.RWMutex
)

func init() {
	logLevel.Set(QuietLevel)
	logger = NewLogger(os.Stderr, nil)
}

// Configure installs the logger used by the command line: format records
// to w (os.Stderr when nil) at VerboseLevel when verbose is set and at
// QuietLevel otherwise.
func Configure(w io.Writer, verbose bool, format LogFormat) {
	if w == nil {
		w = os.Stderr
	}
	if verbose {
		SetLogLevel(VerboseLevel)
	} else {
		SetLogLevel(QuietLevel)
	}
	if format == LogFormatJSON {
		SetLogger(NewJSONLogger(w, nil))
	} else {
		SetLogger(NewLogger(w, nil))
	}
}

// SetLogLevel sets the minimum level of the shared loggers.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

// GetLogLevel returns the current minimum log level.
func GetLogLevel() slog.Level {
	return logLevel.Level()
}

// SetLogger replaces the logger used by the Log helpers.
func SetLogger(l *slog.Logger) {
	logMutex.Lock()
	defer logMutex.Unlock()
	logger = l
}

// Logger returns the logger used by the Log helpers.
func Logger() *slog.Logger {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return logger
}

// NewLogger creates a text logger writing to w. A nil opts uses the
// shared level.
func NewLogger(w io.Writer, opts *slog.HandlerOptions) *slog.Logger {
	if opts == nil {
		opts = &slog.HandlerOptions{Level: logLevel}
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewJSONLogger creates a JSON logger writing to w. A nil opts uses the
// shared level.
func NewJSONLogger(w io.Writer, opts *slog.HandlerOptions) *slog.Logger {
	if opts == nil {
		opts = &slog.HandlerOptions{Level: logLevel}
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// LogDebug logs a debug message with the given component.
func LogDebug(component Component, msg string, args ...any) {
	logAt(slog.LevelDebug, component, msg, args)
}

// LogInfo logs an info message with the given component.
func LogInfo(component Component, msg string, args ...any) {
	logAt(slog.LevelInfo, component, msg, args)
}

// LogWarn logs a warning message with the given component.
func LogWarn(component Component, msg string, args ...any) {
	logAt(slog.LevelWarn, component, msg, args)
}

// LogError logs an error message with the given component.
func LogError(component Component, msg string, args ...any) {
	logAt(slog.LevelError, component, msg, args)
}

// logAt emits one record. An "error" attribute holding an error is followed
// by its Kind, when known, and the libusb code name of transport failures.
func logAt(level slog.Level, component Component, msg string, args []any) {
	l := Logger()
	ctx := context.Background()
	if !l.Enabled(ctx, level) {
		return
	}

	attrs := make([]any, 0, len(args)+6)
	attrs = append(attrs, "component", string(component))
	for i := 0; i < len(args); i++ {
		key, ok := args[i].(string)
		if !ok || i+1 == len(args) {
			attrs = append(attrs, args[i])
			continue
		}
		i++
		attrs = append(attrs, key, args[i])
		if err, ok := args[i].(error); ok && key == "error" {
			if kind := KindOf(err); kind != KindUnknown {
				attrs = append(attrs, "kind", kind.String())
			}
			if code, ok := TransportCode(err); ok {
				attrs = append(attrs, "usb_code", code.Name())
			}
		}
	}
	l.Log(ctx, level, msg, attrs...)
}
