// ABOUTME: Level-gated printf logger over slog levels, one instance per engine
// ABOUTME: Debug toggle is passed at construction instead of living in a package global

package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

// Level constants matching slog levels.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Logger writes prefixed lines to a writer when the level allows it.
// Safe for concurrent use; the level can change while workers are logging.
type Logger struct {
	mu     *sync.Mutex
	out    io.Writer
	prefix string
	level  *atomic.Int64
}

// New creates a logger writing to out at the given minimum level.
// A nil writer means stderr.
func New(out io.Writer, level slog.Level) *Logger {
	if out == nil {
		out = os.Stderr
	}
	l := &Logger{out: out, mu: &sync.Mutex{}, level: &atomic.Int64{}}
	l.level.Store(int64(level))
	return l
}

// ForDebug returns LevelDebug when debug is set and LevelInfo otherwise.
func ForDebug(debug bool) slog.Level {
	if debug {
		return LevelDebug
	}
	return LevelInfo
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, LevelError+1)
}

// With returns a logger sharing the writer and level with l, with an extra tag
// printed after the level marker. SetLevel on either affects both.
func (l *Logger) With(tag string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{out: l.out, mu: l.mu, level: l.level, prefix: l.prefix + "[" + tag + "] "}
}

// WithLevel returns a logger sharing the writer and prefix with l but holding
// its own level. SetLevel on l no longer reaches it, and the reverse.
func (l *Logger) WithLevel(level slog.Level) *Logger {
	if l == nil {
		return nil
	}
	c := &Logger{out: l.out, mu: l.mu, prefix: l.prefix, level: &atomic.Int64{}}
	c.level.Store(int64(level))
	return c
}

// SetLevel changes the minimum level.
func (l *Logger) SetLevel(level slog.Level) {
	l.level.Store(int64(level))
}

// GetLevel returns the current minimum level.
func (l *Logger) GetLevel() slog.Level {
	return slog.Level(l.level.Load())
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level slog.Level) bool {
	return level >= slog.Level(l.level.Load())
}

// Debug logs a debug message if the level allows it.
func (l *Logger) Debug(format string, args ...any) {
	l.emit(LevelDebug, "[DEBUG] ", format, args)
}

// Info logs an info message if the level allows it.
func (l *Logger) Info(format string, args ...any) {
	l.emit(LevelInfo, "[INFO] ", format, args)
}

// Warn logs a warning message if the level allows it.
func (l *Logger) Warn(format string, args ...any) {
	l.emit(LevelWarn, "[WARN] ", format, args)
}

// Error logs an error message if the level allows it.
func (l *Logger) Error(format string, args ...any) {
	l.emit(LevelError, "[ERROR] ", format, args)
}

func (l *Logger) emit(level slog.Level, marker, format string, args []any) {
	if l == nil || !l.Enabled(level) {
		return
	}
	line := marker + l.prefix + fmt.Sprintf(format, args...) + "\n"
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.out, line)
}
