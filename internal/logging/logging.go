// Package logging creates the per-component loggers used by the daemon.
//
// Every component logs through a standard *log.Logger with a bracketed
// prefix ("[daemon] ", "[watch] ", ...). All loggers share one sink: stderr,
// or a size-rotated file when a log file is configured.
package logging

import (
	"io"
	"log"
	"os"

	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the log sink.
type Options struct {
	// File is the log file path. Empty means stderr.
	File string

	// MaxSizeMB is the size at which the file is rotated
	MaxSizeMB int

	// MaxBackups is how many rotated files are kept
	MaxBackups int

	// MaxAgeDays is how long rotated files are kept
	MaxAgeDays int
}

// Sink is the destination shared by every component logger.
type Sink struct {
	out      io.Writer
	closer   io.Closer
	terminal bool
}

// Open creates the sink described by opts.
func Open(opts Options) *Sink {
	if opts.File == "" {
		return &Sink{
			out:      os.Stderr,
			terminal: term.IsTerminal(int(os.Stderr.Fd())),
		}
	}

	rotator := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}
	return &Sink{out: rotator, closer: rotator}
}

// NewSink wraps an arbitrary writer. terminal selects the short
// time-of-day timestamps used for interactive output.
func NewSink(w io.Writer, terminal bool) *Sink {
	return &Sink{out: w, terminal: terminal}
}

// Discard returns a sink that drops everything.
func Discard() *Sink {
	return &Sink{out: io.Discard}
}

// Logger returns a logger for component, prefixed "[component] ".
func (s *Sink) Logger(component string) *log.Logger {
	flags := log.LstdFlags
	if s.terminal {
		flags = log.Ltime
	}
	return log.New(s.out, "["+component+"] ", flags)
}

// Rotate closes the current log file and starts a new one. It is a no-op
// when logging to stderr.
func (s *Sink) Rotate() error {
	if r, ok := s.closer.(*lumberjack.Logger); ok {
		return r.Rotate()
	}
	return nil
}

// Close flushes and closes the log file, if any.
func (s *Sink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
