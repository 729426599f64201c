// Package logging provides structured logging for rollberry.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/blockberries/rollberry/types"
)

// Logger is a structured logger interface for rollberry.
// It wraps slog.Logger with convenience methods for common logging patterns.
type Logger struct {
	*slog.Logger
}

// New creates a new Logger with the given handler.
func New(handler slog.Handler) *Logger {
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a new Logger with text output format.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: false,
	}
	return New(slog.NewTextHandler(w, opts))
}

// NewJSONLogger creates a new Logger with JSON output format.
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: false,
	}
	return New(slog.NewJSONHandler(w, opts))
}

// NewDevelopmentLogger creates a logger suitable for development.
// Uses text format with debug level output to stderr.
func NewDevelopmentLogger() *Logger {
	return NewTextLogger(os.Stderr, slog.LevelDebug)
}

// NewProductionLogger creates a logger suitable for production.
// Uses JSON format with info level output to stdout.
func NewProductionLogger() *Logger {
	return NewJSONLogger(os.Stdout, slog.LevelInfo)
}

// NewNopLogger creates a logger that discards all output.
func NewNopLogger() *Logger {
	return New(nopHandler{})
}

// With returns a new Logger with the given attributes added to every log entry.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// WithComponent returns a new Logger with a component attribute.
func (l *Logger) WithComponent(name string) *Logger {
	return l.With(Component(name))
}

// WithModule returns a new Logger with a module attribute.
func (l *Logger) WithModule(name string) *Logger {
	return l.With(Module(name))
}

// Common attribute constructors for rollup-specific fields.

// Component creates a component attribute for identifying the source package.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Slot creates a slot number attribute.
func Slot(s types.Slot) slog.Attr {
	return slog.Int64("slot", s.Int64())
}

// Module creates a module name attribute.
func Module(name string) slog.Attr {
	return slog.String("module", name)
}

// Field creates a state field name attribute.
func Field(name string) slog.Attr {
	return slog.String("field", name)
}

// Method creates an operation method attribute.
func Method(name string) slog.Attr {
	return slog.String("method", name)
}

// Root creates a commitment root attribute (hex-encoded).
func Root(r types.Root) slog.Attr {
	return slog.String("root", r.String())
}

// Key creates a storage key attribute (hex-encoded).
func Key(k types.StorageKey) slog.Attr {
	return slog.String("key", k.String())
}

// Hash creates a hash attribute (hex-encoded).
func Hash(h types.Hash) slog.Attr {
	return slog.String("hash", h.String())
}

// Mode creates an execution mode attribute ("native" or "verify").
func Mode(m string) slog.Attr {
	return slog.String("mode", m)
}

// Duration creates a duration attribute in milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Float64("duration_ms", float64(d.Nanoseconds())/1e6)
}

// Count creates a count attribute.
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

// Size creates a size attribute in bytes.
func Size(n int) slog.Attr {
	return slog.Int("size_bytes", n)
}

// Version creates a store version attribute.
func Version(v int64) slog.Attr {
	return slog.Int64("version", v)
}

// ChainID creates a chain ID attribute.
func ChainID(id string) slog.Attr {
	return slog.String("chain_id", id)
}

// Index creates an index attribute.
func Index(n int) slog.Attr {
	return slog.Int("index", n)
}

// Error creates an error attribute.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

// Reason creates a reason attribute.
func Reason(r string) slog.Attr {
	return slog.String("reason", r)
}

// nopHandler is a slog.Handler that discards all logs.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }
