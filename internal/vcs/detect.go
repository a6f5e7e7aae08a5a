package vcs

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DetectionResult describes the working directory containing a path.
type DetectionResult struct {
	// RepoRoot is the working directory root
	RepoRoot string

	// VCSDir is the metadata directory path (.git, or the gitdir of a worktree)
	VCSDir string

	// IsWorktree indicates this is a git worktree (not main repo)
	IsWorktree bool

	// MainRepoRoot is the main repo root (different from RepoRoot for worktrees)
	MainRepoRoot string
}

// Detect finds the working directory containing path by walking up
// parent directories until a metadata directory named metaDir (or, for
// worktrees, a ".git" file) is found.
//
// Returns ErrNotInVCS if none is found.
func Detect(path, metaDir string) (*DetectionResult, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if metaDir == "" {
		metaDir = ".git"
	}

	current := absPath
	for {
		marker := filepath.Join(current, metaDir)

		if info, err := os.Stat(marker); err == nil {
			result := &DetectionResult{RepoRoot: current, MainRepoRoot: current, VCSDir: marker}
			if info.Mode().IsRegular() {
				// .git is a file - this is a worktree
				result.IsWorktree = true
				result.MainRepoRoot, result.VCSDir = resolveGitWorktreeRoot(current, marker)
			}
			return result, nil
		}

		// Move to parent directory
		parent := filepath.Dir(current)
		if parent == current {
			// Reached filesystem root without finding VCS
			return nil, ErrNotInVCS
		}
		current = parent
	}
}

// resolveGitWorktreeRoot resolves the main repository root from a worktree's .git file.
// Returns (mainRepoRoot, worktreeGitDir).
//
// Git worktrees have a .git file (not directory) containing:
//
//	gitdir: /path/to/main/.git/worktrees/worktree-name
func resolveGitWorktreeRoot(worktreePath, gitFile string) (string, string) {
	content, err := os.ReadFile(gitFile)
	if err != nil {
		return worktreePath, gitFile
	}

	line := strings.TrimSpace(string(content))
	if !strings.HasPrefix(line, "gitdir: ") {
		return worktreePath, gitFile
	}

	gitDir := strings.TrimPrefix(line, "gitdir: ")

	// Handle relative paths
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(worktreePath, gitDir)
	}
	gitDir = filepath.Clean(gitDir)

	// gitdir points to: /main/.git/worktrees/name
	// We want: /main
	if idx := strings.Index(gitDir, string(filepath.Separator)+"worktrees"+string(filepath.Separator)); idx > 0 {
		mainGitDir := gitDir[:idx]
		return filepath.Dir(mainGitDir), gitDir
	}

	return worktreePath, gitDir
}

// IsAvailable checks if the named binary can be found in PATH.
func IsAvailable(binary string) bool {
	_, err := exec.LookPath(binary)
	return err == nil
}
