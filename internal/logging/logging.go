// Package logging provides the structured logger used throughout the
// runtime. It wraps logrus the way the host project's own logging helpers
// do, but never forces callers onto a process-wide global.
package logging

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Fields is a set of structured key/value pairs attached to a log line.
type Fields map[string]interface{}

// Logger is the logging contract consumed by every package in this module.
// Embedders that don't want output can supply NoOp().
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	WithFields(fields Fields) Logger
}

type logrusLogger struct {
	entry *logrus.Entry
}

// New builds a Logger backed by a *logrus.Logger at the given level name
// ("debug", "info", "warn", "error"; unknown values default to "info").
func New(level string) Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(parseLevel(level))
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

func parseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

func (l *logrusLogger) Debug(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l *logrusLogger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *logrusLogger) Warn(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

func (l *logrusLogger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

func (l *logrusLogger) WithFields(fields Fields) Logger {
	return &logrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

// noopLogger discards everything. Used as the default for embedders that
// never configured a logger.
type noopLogger struct{}

// NoOp returns a Logger that discards all output.
func NoOp() Logger { return noopLogger{} }

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (n noopLogger) WithFields(Fields) Logger   { return n }

var (
	mu     sync.RWMutex
	global Logger = NoOp()
)

// Get returns the process-wide default logger.
func Get() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Set replaces the process-wide default logger. Constructors also accept an
// explicit Logger so embedders are never forced onto this global.
func Set(l Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = NoOp()
	}
	global = l
}
