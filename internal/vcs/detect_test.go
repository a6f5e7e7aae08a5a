package vcs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDetect(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".git"), 0755); err != nil {
		t.Fatalf("failed to create .git: %v", err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("failed to create nested dir: %v", err)
	}

	result, err := Detect(nested, ".git")
	if err != nil {
		t.Fatalf("Detect() failed: %v", err)
	}
	if result.RepoRoot != root {
		t.Errorf("RepoRoot = %q, want %q", result.RepoRoot, root)
	}
	if result.IsWorktree {
		t.Error("plain repo reported as worktree")
	}
}

func TestDetectWorktree(t *testing.T) {
	tmp := t.TempDir()
	main := filepath.Join(tmp, "main")
	wt := filepath.Join(tmp, "wt")
	if err := os.MkdirAll(filepath.Join(main, ".git", "worktrees", "wt"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.MkdirAll(wt, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	gitFile := "gitdir: " + filepath.Join(main, ".git", "worktrees", "wt") + "\n"
	if err := os.WriteFile(filepath.Join(wt, ".git"), []byte(gitFile), 0644); err != nil {
		t.Fatalf("write .git file: %v", err)
	}

	result, err := Detect(wt, "")
	if err != nil {
		t.Fatalf("Detect() failed: %v", err)
	}
	if !result.IsWorktree {
		t.Error("expected worktree")
	}
	if result.MainRepoRoot != main {
		t.Errorf("MainRepoRoot = %q, want %q", result.MainRepoRoot, main)
	}
}

func TestDetectNotInVCS(t *testing.T) {
	_, err := Detect(t.TempDir(), ".no-such-metadata-dir")
	if !errors.Is(err, ErrNotInVCS) {
		t.Errorf("Detect() error = %v, want ErrNotInVCS", err)
	}
}
