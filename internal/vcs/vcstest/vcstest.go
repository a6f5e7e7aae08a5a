// Package vcstest provides a recording vcs.Backend for tests.
package vcstest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/lifebuddy/gofetch/internal/vcs"
)

// Call is one recorded backend invocation.
type Call struct {
	Dir  string
	Args []string
	// Start and End bracket the invocation
	Start, End time.Time
}

// Command returns the args joined with spaces, e.g. "commit -m Autocommit".
func (c Call) Command() string {
	return strings.Join(c.Args, " ")
}

// Responder produces the result for an invocation. Returning a nil result
// and nil error falls through to the next responder, and finally to the
// default (exit 0, no output).
type Responder func(dir string, args []string) (*vcs.Result, error)

// Backend records every invocation and answers from Responders.
type Backend struct {
	// Delay is slept inside every invocation, to widen race windows
	Delay time.Duration

	mu         sync.Mutex
	calls      []Call
	responders []Responder
}

// New creates a recording backend.
func New() *Backend {
	return &Backend{}
}

// Name returns vcs.TypeGit so units built on the fake behave like git ones.
func (b *Backend) Name() vcs.Type { return vcs.TypeGit }

// MetadataDir returns ".git".
func (b *Backend) MetadataDir() string { return ".git" }

// Respond adds a responder; later responders take precedence.
func (b *Backend) Respond(r Responder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.responders = append(b.responders, r)
}

// On answers every invocation whose command starts with prefix.
func (b *Backend) On(prefix string, res vcs.Result) {
	b.Respond(func(dir string, args []string) (*vcs.Result, error) {
		if strings.HasPrefix(strings.Join(args, " "), prefix) {
			return &res, nil
		}
		return nil, nil
	})
}

// Dirty makes status report a modified file.
func (b *Backend) Dirty() {
	b.On("status", vcs.Result{Output: []byte(" M file.txt\n")})
}

// Run records the call and returns the scripted result.
func (b *Backend) Run(ctx context.Context, dir string, opts vcs.Options, args ...string) (vcs.Result, error) {
	start := time.Now()
	if b.Delay > 0 {
		select {
		case <-time.After(b.Delay):
		case <-ctx.Done():
			return vcs.Result{ExitCode: -1}, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	call := Call{Dir: dir, Args: append([]string(nil), args...), Start: start, End: time.Now()}
	b.calls = append(b.calls, call)

	for i := len(b.responders) - 1; i >= 0; i-- {
		res, err := b.responders[i](dir, args)
		if err != nil {
			return vcs.Result{ExitCode: -1}, err
		}
		if res != nil {
			return *res, nil
		}
	}
	return vcs.Result{}, nil
}

// Calls returns a copy of the recorded invocations.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// Commands returns the recorded invocations as strings.
func (b *Backend) Commands() []string {
	calls := b.Calls()
	cmds := make([]string, len(calls))
	for i, c := range calls {
		cmds[i] = c.Command()
	}
	return cmds
}

// CommandsIn returns the recorded commands run in dir.
func (b *Backend) CommandsIn(dir string) []string {
	var cmds []string
	for _, c := range b.Calls() {
		if c.Dir == dir {
			cmds = append(cmds, c.Command())
		}
	}
	return cmds
}

// Count returns how many recorded commands start with prefix.
func (b *Backend) Count(prefix string) int {
	n := 0
	for _, cmd := range b.Commands() {
		if strings.HasPrefix(cmd, prefix) {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls but keeps responders.
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}
