package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// Logger provides leveled logging throughout the application. Debug output
// is dropped unless enabled.
type Logger struct {
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
	debug *log.Logger

	debugEnabled bool
}

// NewLogger creates a Logger writing to stdout/stderr with debug disabled.
func NewLogger() *Logger {
	return NewLoggerTo(os.Stdout, os.Stderr, false)
}

// NewLoggerTo creates a Logger with explicit sinks. Errors go to errOut,
// everything else to out.
func NewLoggerTo(out, errOut io.Writer, debug bool) *Logger {
	return &Logger{
		info:         log.New(out, "", 0),
		warn:         log.New(out, "", 0),
		err:          log.New(errOut, "", 0),
		debug:        log.New(out, "", 0),
		debugEnabled: debug,
	}
}

// NewDiscardLogger returns a Logger that writes nowhere. Used by tests.
func NewDiscardLogger() *Logger {
	return NewLoggerTo(io.Discard, io.Discard, false)
}

// SetDebug toggles debug output.
func (l *Logger) SetDebug(on bool) {
	l.debugEnabled = on
}

func (l *Logger) timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func (l *Logger) Info(format string, args ...any) {
	l.info.Printf(fmt.Sprintf("[%s] \033[32mINFO\033[0m  %s\n", l.timestamp(), format), args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.warn.Printf(fmt.Sprintf("[%s] \033[33mWARN\033[0m  %s\n", l.timestamp(), format), args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.err.Printf(fmt.Sprintf("[%s] \033[31mERROR\033[0m %s\n", l.timestamp(), format), args...)
}

func (l *Logger) Debug(format string, args ...any) {
	if !l.debugEnabled {
		return
	}
	l.debug.Printf(fmt.Sprintf("[%s] \033[36mDEBUG\033[0m %s\n", l.timestamp(), format), args...)
}
