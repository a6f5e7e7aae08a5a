package vcs

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by VCS operations.
//
// These errors can be checked using errors.Is() for proper error handling:
//
//	if errors.Is(err, vcs.ErrPushRejected) {
//	    // Remote has diverged, pull before pushing again
//	}
var (
	// ErrNotInVCS is returned when a workspace path is not inside a
	// working directory of the selected backend.
	ErrNotInVCS = errors.New("not in a VCS repository")

	// ErrVCSNotAvailable is returned when the required VCS binary
	// is not installed or not in PATH.
	ErrVCSNotAvailable = errors.New("VCS binary not available")

	// ErrUnknownBackend is returned when no backend is registered for a type.
	ErrUnknownBackend = errors.New("unknown VCS backend")

	// ErrPushRejected is returned when a push is rejected by the remote,
	// typically due to non-fast-forward updates.
	ErrPushRejected = errors.New("push rejected by remote")
)

// VersioningError reports a backend command that exited non-zero.
type VersioningError struct {
	// Dir is the working directory the command ran in
	Dir string

	// Args is the argument list passed to the backend
	Args []string

	// ExitCode is the exit status of the command
	ExitCode int

	// Output is the captured output of the command
	Output []byte

	// Err is an optional classification such as ErrPushRejected
	Err error
}

// NewVersioningError builds a VersioningError from a failed result.
// Rejected pushes are classified as ErrPushRejected.
func NewVersioningError(dir string, args []string, res Result) *VersioningError {
	e := &VersioningError{
		Dir:      dir,
		Args:     args,
		ExitCode: res.ExitCode,
		Output:   res.Output,
	}
	if len(args) > 0 && args[0] == "push" && res.Rejected() {
		e.Err = ErrPushRejected
	}
	return e
}

func (e *VersioningError) Error() string {
	msg := fmt.Sprintf("%s: %s exited %d", e.Dir, strings.Join(e.Args, " "), e.ExitCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if out := TrimOutput(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

// Unwrap returns the classification error, if any.
func (e *VersioningError) Unwrap() error {
	return e.Err
}

// MalformedRemoteLineError is returned when a remote listing line does not
// match the "name<TAB>url (direction)" format.
type MalformedRemoteLineError struct {
	Line string
}

func (e *MalformedRemoteLineError) Error() string {
	return fmt.Sprintf("malformed remote line: %q", e.Line)
}

// IsRetryable returns true if the error is likely to succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Push rejections might succeed after a pull
	return errors.Is(err, ErrPushRejected)
}

// IsFatal returns true if the error indicates a non-recoverable state
// that requires manual intervention or re-initialization.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	// Not in VCS means we can't do anything
	if errors.Is(err, ErrNotInVCS) {
		return true
	}

	// Binary not available means we can't execute commands
	if errors.Is(err, ErrVCSNotAvailable) {
		return true
	}

	return errors.Is(err, ErrUnknownBackend)
}
