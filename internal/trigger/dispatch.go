package trigger

import (
	"context"
	"log"
	"os"

	"github.com/lifebuddy/gofetch/internal/workspace"
)

// PullFunc pulls one unit on behalf of the trigger loop.
type PullFunc func(ctx context.Context, u *workspace.Unit) error

// Dispatch returns a Handler that pulls the unit registered for each
// identifier. Unknown identifiers are ignored: the registry may lag behind
// remotes added after startup. Pull failures are logged, never returned.
func Dispatch(reg *workspace.Registry, logger *log.Logger) Handler {
	return DispatchFunc(reg, logger, func(ctx context.Context, u *workspace.Unit) error {
		return u.Pull(ctx)
	})
}

// DispatchFunc is Dispatch with a custom pull, used by callers that track
// the outcome of every pull.
func DispatchFunc(reg *workspace.Registry, logger *log.Logger, pull PullFunc) Handler {
	if logger == nil {
		logger = log.New(os.Stderr, "[trigger] ", log.LstdFlags)
	}
	return func(ctx context.Context, id string) {
		u, ok := reg.Lookup(id)
		if !ok {
			logger.Printf("Ignoring unknown identifier %q", id)
			return
		}

		logger.Printf("Pull requested for %s via %s", u.Path(), id)
		if err := pull(ctx, u); err != nil {
			logger.Printf("Error: pull of %s failed: %v", u.Path(), err)
		}
	}
}
