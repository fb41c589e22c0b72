// Package logger provides a small leveled logger shared by all voxsay
// components. Three levels: off, normal (info/warn/error), and verbose
// (adds debug). Safe for concurrent use.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Level controls logger verbosity.
type Level int

const (
	// LevelOff disables all output.
	LevelOff Level = iota
	// LevelNormal enables info, warn, and error output.
	LevelNormal
	// LevelVerbose enables everything, including debug.
	LevelVerbose
)

// Logger is a leveled logger. An optional component tag is prepended to
// every line so interleaved output from the pipeline, the synthesizer
// subprocess, and the subscriber stays readable.
type Logger struct {
	mu    sync.RWMutex
	level Level
	tag   string
	out   *log.Logger
}

// New creates a logger writing to out. A nil out falls back to stderr.
func New(level Level, out io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}
	return &Logger{
		level: level,
		out:   log.New(out, "", log.Ltime),
	}
}

// Named returns a child logger that tags every line with the given
// component name. The child shares the parent's output and level.
func (l *Logger) Named(tag string) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return &Logger{level: l.level, tag: tag, out: l.out}
}

// SetLevel changes the log level at runtime.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

// Level returns the current log level.
func (l *Logger) Level() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// Debug logs at debug level. Only visible in verbose mode.
func (l *Logger) Debug(format string, args ...any) { l.emit(LevelVerbose, "DBG", format, args...) }

// Info logs at info level.
func (l *Logger) Info(format string, args ...any) { l.emit(LevelNormal, "INF", format, args...) }

// Warn logs at warn level.
func (l *Logger) Warn(format string, args ...any) { l.emit(LevelNormal, "WRN", format, args...) }

// Error logs at error level.
func (l *Logger) Error(format string, args ...any) { l.emit(LevelNormal, "ERR", format, args...) }

func (l *Logger) emit(min Level, label, format string, args ...any) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.level < min {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.tag != "" {
		msg = l.tag + ": " + msg
	}
	l.out.Output(3, "["+label+"] "+msg)
}
