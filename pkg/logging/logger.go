// Package logging provides the leveled diagnostic logger used across distdash.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Level orders log severities; higher values are more verbose.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// String returns the label printed in front of each line.
func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "", "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Logger writes "LEVEL | component | message" lines through a log.Logger.
type Logger struct {
	name  string
	base  *log.Logger
	mu    *sync.RWMutex
	level *Level
}

// New creates a root logger writing to w.
func New(w io.Writer, level Level) *Logger {
	lvl := level
	return &Logger{
		name:  "distdash",
		base:  log.New(w, "", log.LstdFlags),
		mu:    &sync.RWMutex{},
		level: &lvl,
	}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	return New(io.Discard, LevelError)
}

// Default logs to stderr at info level.
func Default() *Logger {
	return New(os.Stderr, LevelInfo)
}

// Named returns a child logger sharing output and level.
func (l *Logger) Named(name string) *Logger {
	return &Logger{name: name, base: l.base, mu: l.mu, level: l.level}
}

// SetLevel changes the level for this logger and all its children.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.level = level
}

func (l *Logger) enabled(level Level) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level <= *l.level
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.logf(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.logf(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.logf(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.logf(LevelError, format, args...) }

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	if l == nil || !l.enabled(level) {
		return
	}
	l.base.Printf("%-5s | %-10s | %s", level, l.name, fmt.Sprintf(format, args...))
}
