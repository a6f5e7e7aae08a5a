// Package git provides a Git implementation of the vcs.Backend interface.
//
// Every call execs the git binary in the workspace directory, optionally
// under another OS identity, and reports the exit status with combined
// output. No repository state is cached between calls.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/lifebuddy/gofetch/internal/vcs"
)

// Git implements the vcs.Backend interface for git working directories.
type Git struct {
	// binary is the git executable name or path
	binary string

	// lookup resolves user and group names; replaced in tests
	lookup credentialLookup
}

// New creates a Git backend that runs the git binary found in PATH.
func New() *Git {
	return NewWithBinary("git")
}

// NewWithBinary creates a Git backend using the given executable.
func NewWithBinary(binary string) *Git {
	return &Git{
		binary: binary,
		lookup: osLookup{},
	}
}

// Name returns the VCS type (git)
func (g *Git) Name() vcs.Type {
	return vcs.TypeGit
}

// MetadataDir returns ".git"
func (g *Git) MetadataDir() string {
	return ".git"
}

// Binary returns the git executable used by this backend
func (g *Git) Binary() string {
	return g.binary
}

// Run executes git with args in dir.
//
// The "user" and "group" options switch the OS identity of the child
// process; this normally requires the daemon to run as root.
func (g *Git) Run(ctx context.Context, dir string, opts vcs.Options, args ...string) (vcs.Result, error) {
	cmd := exec.CommandContext(ctx, g.binary, args...)
	cmd.Dir = dir

	if err := g.applyIdentity(cmd, opts); err != nil {
		return vcs.Result{ExitCode: -1}, err
	}

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	if err != nil {
		if code := vcs.GetExitCode(err); code >= 0 {
			return vcs.Result{ExitCode: code, Output: output.Bytes()}, nil
		}
		if errors.Is(err, exec.ErrNotFound) {
			return vcs.Result{ExitCode: -1}, fmt.Errorf("%w: %s", vcs.ErrVCSNotAvailable, g.binary)
		}
		return vcs.Result{ExitCode: -1, Output: output.Bytes()},
			fmt.Errorf("git %s failed to run: %w", strings.Join(args, " "), err)
	}

	return vcs.Result{Output: output.Bytes()}, nil
}

// Version returns the git version string
func (g *Git) Version(ctx context.Context) (string, error) {
	res, err := g.Run(ctx, "", nil, "--version")
	if err != nil {
		return "", fmt.Errorf("failed to get git version: %w", err)
	}
	if !res.OK() {
		return "", fmt.Errorf("failed to get git version: exit %d", res.ExitCode)
	}

	// Output format: "git version 2.39.0"
	return strings.TrimPrefix(vcs.TrimOutput(res.Output), "git version "), nil
}
