// Package logging writes leveled diagnostic logs to a size-rotated file.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// ParseLevel accepts a level name (debug, info, warn, error) or its number.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < int(LevelDebug) || n > int(LevelError) {
		return LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return Level(n), nil
}

// Options configures a file logger.
type Options struct {
	Filename   string
	Level      Level
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
	Compress   bool
}

// Logger is a leveled wrapper around log.Logger. A nil *Logger discards
// everything, so components can hold one unconditionally.
type Logger struct {
	l      *log.Logger
	level  Level
	closer io.Closer
}

// New opens a rotating log file described by opts.
func New(opts Options) (*Logger, error) {
	if opts.Filename == "" {
		return nil, fmt.Errorf("log file name is required")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Filename), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	lj := &lumberjack.Logger{
		Filename:   opts.Filename,
		MaxSize:    opts.MaxSizeMB,
		MaxAge:     opts.MaxAgeDays,
		MaxBackups: opts.MaxBackups,
		Compress:   opts.Compress,
	}

	return &Logger{
		l:      log.New(lj, "", log.LstdFlags),
		level:  opts.Level,
		closer: lj,
	}, nil
}

// NewWriter logs to w. Useful for tests and for --verbose stderr logging.
func NewWriter(w io.Writer, level Level) *Logger {
	return &Logger{
		l:     log.New(w, "", log.LstdFlags),
		level: level,
	}
}

// Discard returns a logger that drops every message.
func Discard() *Logger {
	return NewWriter(io.Discard, LevelError+1)
}

// Close releases the underlying log file, if any.
func (lg *Logger) Close() error {
	if lg == nil || lg.closer == nil {
		return nil
	}
	return lg.closer.Close()
}

// Enabled reports whether messages at level would be written.
func (lg *Logger) Enabled(level Level) bool {
	return lg != nil && level >= lg.level
}

func (lg *Logger) logf(level Level, format string, args ...any) {
	if !lg.Enabled(level) {
		return
	}
	lg.l.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
}

func (lg *Logger) Debugf(format string, args ...any) { lg.logf(LevelDebug, format, args...) }
func (lg *Logger) Infof(format string, args ...any)  { lg.logf(LevelInfo, format, args...) }
func (lg *Logger) Warnf(format string, args ...any)  { lg.logf(LevelWarn, format, args...) }
func (lg *Logger) Errorf(format string, args ...any) { lg.logf(LevelError, format, args...) }
