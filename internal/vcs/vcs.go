// Package vcs provides the versioning backend used to keep working
// directories in sync with their remotes.
//
// The sync engine never talks to a version control binary directly. It
// hands argument lists to a Backend, which runs them in a working directory
// (optionally as another OS user) and reports the exit status together with
// the captured output. Pass/fail decisions are made on the exit code alone;
// output is only inspected for emptiness (status) and for push rejection.
//
// # Usage
//
//	b, err := vcs.New(vcs.TypeGit)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := b.Run(ctx, "/srv/site", vcs.Options{"user": "www-data"}, "status", "--porcelain")
//
// # Implementations
//
//   - internal/vcs/git: git implementation using os/exec
package vcs

import (
	"context"
	"strings"
)

// Type represents the VCS backend type
type Type string

const (
	// TypeGit indicates a git backend
	TypeGit Type = "git"
)

// String returns the string representation of the VCS type
func (t Type) String() string {
	return string(t)
}

// Option keys understood by backends. Any other key is carried along
// untouched so that backends can grow new knobs without config changes.
const (
	// OptionUser is the name of the OS user the command runs as
	OptionUser = "user"

	// OptionGroup is the name of the OS group the command runs as
	OptionGroup = "group"

	// OptionVCS selects the backend type for a workspace
	OptionVCS = "vcs"

	// OptionQuiet overrides the quiet period for a workspace
	OptionQuiet = "quiet"
)

// Options is the per-workspace key/value set forwarded to the backend.
type Options map[string]string

// Clone returns a copy of o that can be modified independently.
func (o Options) Clone() Options {
	c := make(Options, len(o))
	for k, v := range o {
		c[k] = v
	}
	return c
}

// Get returns the value for key, or def when the key is unset or empty.
func (o Options) Get(key, def string) string {
	if v, ok := o[key]; ok && v != "" {
		return v
	}
	return def
}

// Backend executes versioning commands against a working directory.
//
// Run returns a non-nil error only when the command could not be started
// or waited for (missing binary, unknown user, cancelled context). A command
// that ran and exited non-zero is reported through Result.ExitCode.
type Backend interface {
	// Name returns the backend type
	Name() Type

	// MetadataDir returns the name of the metadata directory kept inside
	// every working directory (".git" for git).
	MetadataDir() string

	// Run executes the backend binary with args in dir.
	Run(ctx context.Context, dir string, opts Options, args ...string) (Result, error)
}

// Result is the outcome of a single backend invocation.
type Result struct {
	// ExitCode is the process exit status
	ExitCode int

	// Output is the combined stdout and stderr of the command
	Output []byte
}

// OK reports whether the command exited zero.
func (r Result) OK() bool {
	return r.ExitCode == 0
}

// Empty reports whether the command produced no output beyond whitespace.
func (r Result) Empty() bool {
	return TrimOutput(r.Output) == ""
}

// Rejected reports whether a failed push was refused by the remote because
// the histories have diverged.
func (r Result) Rejected() bool {
	if r.OK() {
		return false
	}
	out := string(r.Output)
	return strings.Contains(out, "rejected") || strings.Contains(out, "non-fast-forward")
}

// Direction is the direction of a remote binding as reported by the backend.
type Direction string

const (
	DirectionFetch Direction = "fetch"
	DirectionPush  Direction = "push"
)

// RemoteBinding associates a working directory with an upstream location.
type RemoteBinding struct {
	// Name is the remote name (e.g., "origin")
	Name string

	// URL is the remote URL; it is also the identifier used by the trigger channel
	URL string

	// Direction is fetch or push
	Direction Direction
}

// Common argument lists. They are kept here so tests and the workspace
// policy agree on the exact command sequence.
var (
	ArgsStatus  = []string{"status", "--porcelain"}
	ArgsAddAll  = []string{"add", "."}
	ArgsPush    = []string{"push"}
	ArgsPull    = []string{"pull", "--no-rebase", "--no-edit", "--commit", "-X", "theirs"}
	ArgsRemotes = []string{"remote", "-v"}
)

// AutocommitMessage is the fixed message used for automatic commits.
const AutocommitMessage = "Autocommit"

// ArgsCommit returns the argument list for committing staged changes.
func ArgsCommit(message string) []string {
	return []string{"commit", "-m", message}
}
