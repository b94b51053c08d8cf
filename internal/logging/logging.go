// Package logging configures the structured logger used across tasksync.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is the logging interface accepted by stores and the dispatcher.
// Both *logrus.Logger and *logrus.Entry implement it.
type Logger = logrus.FieldLogger

// New creates a text logger writing to w.
// debug lowers the level from warn to debug.
func New(w io.Writer, debug bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: !debug,
	})
	l.SetLevel(logrus.WarnLevel)
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l Logger) Logger {
	if l == nil {
		return Discard()
	}
	return l
}
