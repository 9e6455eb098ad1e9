package xv6fs

import (
	"log"
	"os"
)

// StderrLogger is the default [Logger], writing every level to stderr with a
// level prefix. Fatalf logs then exits the process, for unrecoverable setup
// failures such as a corrupted on-disk structure discovered mid-mount.
type StderrLogger struct {
	warn *log.Logger
	err  *log.Logger
}

func NewStderrLogger() *StderrLogger {
	return &StderrLogger{
		warn: log.New(os.Stderr, "warning: ", 0),
		err:  log.New(os.Stderr, "error: ", 0),
	}
}

func (l *StderrLogger) Warnf(format string, args ...any) {
	l.warn.Printf(format, args...)
}

func (l *StderrLogger) Errorf(format string, args ...any) {
	l.err.Printf(format, args...)
}

func (l *StderrLogger) Fatalf(format string, args ...any) {
	l.err.Fatalf(format, args...)
}
