// Package obslog is a thin structured-logging wrapper around the standard
// library's log.Logger, with an optional secondary cloud sink. Kernel and
// adapter code log through a *Logger rather than calling log.Printf
// directly so a session can redirect or duplicate output without every
// caller knowing about it.
package obslog

import (
	"fmt"
	"io"
	"log"
	"os"
)

// CloudSink is the minimal surface a remote log sink must implement.
// internal/cloudsecrets provides a Cloud Logging-backed implementation;
// tests and local-only runs pass nil.
type CloudSink interface {
	Info(msg string)
	Warning(msg string)
	Error(msg string)
}

// Logger writes to a local log.Logger and, if set, mirrors Warning/Error
// (and Info, at the caller's discretion) to a CloudSink.
type Logger struct {
	local *log.Logger
	cloud CloudSink
}

// New creates a Logger writing to w with the given prefix. cloud may be
// nil.
func New(w io.Writer, prefix string, cloud CloudSink) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{
		local: log.New(w, prefix, log.LstdFlags),
		cloud: cloud,
	}
}

// Info logs at INFO level.
func (l *Logger) Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.local.Printf("%s", msg)
	if l.cloud != nil {
		l.cloud.Info(msg)
	}
}

// Warning logs at WARNING level.
func (l *Logger) Warning(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.local.Printf("Warning: %s", msg)
	if l.cloud != nil {
		l.cloud.Warning(msg)
	}
}

// Error logs at ERROR level.
func (l *Logger) Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.local.Printf("Error: %s", msg)
	if l.cloud != nil {
		l.cloud.Error(msg)
	}
}
