package workspace

import "fmt"

// Outcome is the result of an autopush.
type Outcome int

const (
	// Skipped means there was nothing to commit
	Skipped Outcome = iota
	// Applied means changes were committed and pushed
	Applied
	// Failed means a command failed; the accompanying error says which
	Failed
)

// String returns a human-readable representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Applied:
		return "applied"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// RejectPolicy decides what Autopush does when the remote rejects a push.
type RejectPolicy int

const (
	// RejectRetry pulls (favoring the remote) and pushes once more
	RejectRetry RejectPolicy = iota
	// RejectSurface returns the rejection to the caller
	RejectSurface
)

// String returns the config spelling of the policy.
func (p RejectPolicy) String() string {
	switch p {
	case RejectRetry:
		return "retry"
	case RejectSurface:
		return "surface"
	default:
		return "unknown"
	}
}

// ParseRejectPolicy parses "retry" or "surface".
func ParseRejectPolicy(s string) (RejectPolicy, error) {
	switch s {
	case "", "retry":
		return RejectRetry, nil
	case "surface":
		return RejectSurface, nil
	default:
		return 0, fmt.Errorf("invalid reject policy %q (want retry or surface)", s)
	}
}
