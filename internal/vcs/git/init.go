package git

import "github.com/lifebuddy/gofetch/internal/vcs"

// init registers the git backend with the vcs registry.
// This is called automatically when the package is imported.
func init() {
	vcs.Register(vcs.TypeGit, func() (vcs.Backend, error) {
		return New(), nil
	})
}
