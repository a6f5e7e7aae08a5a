package workspace

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/lifebuddy/gofetch/internal/vcs"
)

// Unit keeps one working directory in sync with its remote.
type Unit struct {
	path    string
	options vcs.Options
	backend vcs.Backend
	policy  RejectPolicy
	message string
	logger  *log.Logger

	// mu guards every backend invocation for path
	mu sync.Mutex
}

// Option configures a Unit.
type Option func(*Unit)

// WithRejectPolicy sets the push rejection policy (default RejectRetry).
func WithRejectPolicy(p RejectPolicy) Option {
	return func(u *Unit) {
		u.policy = p
	}
}

// WithLogger sets the unit logger.
func WithLogger(l *log.Logger) Option {
	return func(u *Unit) {
		if l != nil {
			u.logger = l
		}
	}
}

// WithCommitMessage overrides the autocommit message.
func WithCommitMessage(msg string) Option {
	return func(u *Unit) {
		if msg != "" {
			u.message = msg
		}
	}
}

// New creates a Unit for the working directory at path.
// The path is made absolute; options are copied.
func New(path string, backend vcs.Backend, options vcs.Options, opts ...Option) (*Unit, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}
	if backend == nil {
		return nil, fmt.Errorf("backend cannot be nil")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	u := &Unit{
		path:    abs,
		options: options.Clone(),
		backend: backend,
		policy:  RejectRetry,
		message: vcs.AutocommitMessage,
		logger:  log.New(os.Stderr, "[unit] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

// Path returns the absolute working directory path.
func (u *Unit) Path() string {
	return u.path
}

// Options returns a copy of the unit's backend options.
func (u *Unit) Options() vcs.Options {
	return u.options.Clone()
}

// Backend returns the backend the unit runs commands with.
func (u *Unit) Backend() vcs.Backend {
	return u.backend
}

func (u *Unit) String() string {
	return u.path
}

// Pull merges the remote into the working directory, resolving conflicts in
// favor of the remote, then pushes the merge result upstream.
func (u *Unit) Pull(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.pullLocked(ctx)
}

// Autopush commits and pushes pending changes.
//
// Returns Skipped with a nil error when the working tree is clean; no
// mutating command is issued in that case.
func (u *Unit) Autopush(ctx context.Context) (Outcome, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	status, err := u.run(ctx, vcs.ArgsStatus...)
	if err != nil {
		return Failed, err
	}
	if status.Empty() {
		return Skipped, nil
	}

	if _, err := u.run(ctx, vcs.ArgsAddAll...); err != nil {
		return Failed, err
	}
	if _, err := u.run(ctx, vcs.ArgsCommit(u.message)...); err != nil {
		return Failed, err
	}

	err = u.pushLocked(ctx)
	if err == nil {
		return Applied, nil
	}
	if !errors.Is(err, vcs.ErrPushRejected) || u.policy != RejectRetry {
		return Failed, err
	}

	u.logger.Printf("%s: push rejected, pulling before retry", u.path)
	if err := u.pullLocked(ctx); err != nil {
		return Failed, fmt.Errorf("retry after rejected push: %w", err)
	}
	return Applied, nil
}

// Remotes lists the remote bindings of the working directory.
//
// The listing command runs when iteration starts and again on every new
// iteration. The lock is released before bindings are yielded, so the
// caller may invoke Pull or Autopush from the loop body. A malformed line
// is yielded as an error and ends the iteration.
func (u *Unit) Remotes(ctx context.Context) iter.Seq2[vcs.RemoteBinding, error] {
	return func(yield func(vcs.RemoteBinding, error) bool) {
		lines, err := u.listRemotes(ctx)
		if err != nil {
			yield(vcs.RemoteBinding{}, err)
			return
		}

		for _, line := range lines {
			binding, err := vcs.ParseRemoteLine(line)
			if err != nil {
				yield(vcs.RemoteBinding{}, fmt.Errorf("%s: %w", u.path, err))
				return
			}
			if !yield(binding, nil) {
				return
			}
		}
	}
}

func (u *Unit) listRemotes(ctx context.Context) ([]string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	res, err := u.run(ctx, vcs.ArgsRemotes...)
	if err != nil {
		return nil, err
	}
	return vcs.ParseLines(res.Output), nil
}

func (u *Unit) pullLocked(ctx context.Context) error {
	if _, err := u.run(ctx, vcs.ArgsPull...); err != nil {
		return err
	}
	return u.pushLocked(ctx)
}

func (u *Unit) pushLocked(ctx context.Context) error {
	_, err := u.run(ctx, vcs.ArgsPush...)
	return err
}

// run invokes the backend and converts a non-zero exit into a
// *vcs.VersioningError. Callers must hold u.mu.
func (u *Unit) run(ctx context.Context, args ...string) (vcs.Result, error) {
	res, err := u.backend.Run(ctx, u.path, u.options, args...)
	if err != nil {
		return res, fmt.Errorf("%s: %w", u.path, err)
	}
	if !res.OK() {
		return res, vcs.NewVersioningError(u.path, args, res)
	}
	return res, nil
}
