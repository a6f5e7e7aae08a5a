package config

import (
	"context"
	"fmt"
	"log"

	"github.com/lifebuddy/gofetch/internal/vcs"
	"github.com/lifebuddy/gofetch/internal/workspace"
)

// BuildUnits creates a unit for every entry.
//
// An unknown backend type is a configuration error. A directory that is not
// a working copy of its backend is logged and skipped so one bad entry does
// not keep the others from syncing. It is an error for no unit to remain.
// Workspaces nested inside each other are allowed but logged.
func BuildUnits(entries []Entry, s *Settings, logger *log.Logger) ([]*workspace.Unit, error) {
	backends := make(map[vcs.Type]vcs.Backend)
	var units []*workspace.Unit

	for _, e := range entries {
		t := vcs.Type(e.Options.Get(vcs.OptionVCS, vcs.TypeGit.String()))
		backend, ok := backends[t]
		if !ok {
			if !vcs.IsRegistered(t) {
				return nil, fmt.Errorf("workspace %s: %w: %q (available: %v)",
					e.Path, vcs.ErrUnknownBackend, t, vcs.RegisteredTypes())
			}
			b, err := vcs.New(t)
			if err != nil {
				return nil, fmt.Errorf("workspace %s: %w", e.Path, err)
			}
			backend = b
			backends[t] = b
		}

		metaDir := s.MetadataDir
		if metaDir == "" {
			metaDir = backend.MetadataDir()
		}
		if _, err := vcs.Detect(e.Path, metaDir); err != nil {
			if !vcs.IsFatal(err) {
				return nil, fmt.Errorf("workspace %s: %w", e.Path, err)
			}
			logger.Printf("Warning: skipping %s: %v", e.Path, err)
			continue
		}

		u, err := workspace.New(e.Path, backend, e.Options,
			workspace.WithRejectPolicy(s.RejectPolicy),
			workspace.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}

	if len(units) == 0 {
		return nil, fmt.Errorf("no usable workspaces configured")
	}
	warnNested(units, logger)
	return units, nil
}

// warnNested logs every unit that lies inside another unit's tree. The
// outer observer sees the inner unit's files and the outer autopush would
// record them as an embedded repository.
func warnNested(units []*workspace.Unit, logger *log.Logger) {
	for _, inner := range units {
		for _, outer := range units {
			if inner != outer && vcs.IsSubPath(outer.Path(), inner.Path()) {
				logger.Printf("Warning: workspace %s is inside workspace %s", inner.Path(), outer.Path())
			}
		}
	}
}

// BuildRegistry loads the workspace list named by s, builds its units and
// maps every remote URL to its unit.
func BuildRegistry(ctx context.Context, s *Settings, logger *log.Logger) (*workspace.Registry, error) {
	entries, err := LoadWorkspaces(s.Workspaces)
	if err != nil {
		return nil, err
	}
	units, err := BuildUnits(entries, s, logger)
	if err != nil {
		return nil, err
	}
	return workspace.Build(ctx, units, logger)
}
