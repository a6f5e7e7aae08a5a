package workspace

import (
	"context"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lifebuddy/gofetch/internal/vcs/git"
)

// gitT runs git in dir and fails the test on error.
func gitT(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return string(out)
}

// setupRemote creates a bare remote with one commit and two clones of it.
func setupRemote(t *testing.T) (bare, first, second string) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	if testing.Short() {
		t.Skip("skipping git integration test in short mode")
	}

	tmp := t.TempDir()
	bare = filepath.Join(tmp, "remote.git")
	first = filepath.Join(tmp, "first")
	second = filepath.Join(tmp, "second")

	gitT(t, tmp, "init", "--bare", "-b", "main", bare)
	gitT(t, tmp, "clone", bare, first)
	for _, dir := range []string{first} {
		gitT(t, dir, "config", "user.name", "Test User")
		gitT(t, dir, "config", "user.email", "test@example.com")
		gitT(t, dir, "checkout", "-B", "main")
	}
	if err := os.WriteFile(filepath.Join(first, "README"), []byte("hello\n"), 0644); err != nil {
		t.Fatalf("write README: %v", err)
	}
	gitT(t, first, "add", ".")
	gitT(t, first, "commit", "-m", "initial")
	gitT(t, first, "push", "-u", "origin", "main")

	gitT(t, tmp, "clone", bare, second)
	gitT(t, second, "config", "user.name", "Test User")
	gitT(t, second, "config", "user.email", "test@example.com")
	return bare, first, second
}

func TestGitAutopushThenPull(t *testing.T) {
	bare, first, second := setupRemote(t)
	ctx := context.Background()
	quiet := WithLogger(log.New(io.Discard, "", 0))

	a, err := New(first, git.New(), nil, quiet)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	b, err := New(second, git.New(), nil, quiet)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if outcome, err := a.Autopush(ctx); err != nil || outcome != Skipped {
		t.Fatalf("clean Autopush() = %v, %v; want skipped", outcome, err)
	}

	if err := os.WriteFile(filepath.Join(first, "notes.txt"), []byte("from first\n"), 0644); err != nil {
		t.Fatalf("write notes: %v", err)
	}
	if outcome, err := a.Autopush(ctx); err != nil || outcome != Applied {
		t.Fatalf("Autopush() = %v, %v; want applied", outcome, err)
	}

	if err := b.Pull(ctx); err != nil {
		t.Fatalf("Pull() failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(second, "notes.txt"))
	if err != nil || string(data) != "from first\n" {
		t.Fatalf("pulled notes.txt = %q, %v", data, err)
	}

	var urls []string
	for binding, err := range b.Remotes(ctx) {
		if err != nil {
			t.Fatalf("Remotes() error: %v", err)
		}
		urls = append(urls, binding.URL)
	}
	if len(urls) != 2 || urls[0] != bare {
		t.Errorf("Remotes() urls = %v, want [%s %s]", urls, bare, bare)
	}
}

func TestGitRejectedPushIsRetried(t *testing.T) {
	_, first, second := setupRemote(t)
	ctx := context.Background()
	quiet := WithLogger(log.New(io.Discard, "", 0))

	a, _ := New(first, git.New(), nil, quiet)
	b, _ := New(second, git.New(), nil, quiet)

	if err := os.WriteFile(filepath.Join(first, "a.txt"), []byte("a\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := a.Autopush(ctx); err != nil {
		t.Fatalf("first Autopush() failed: %v", err)
	}

	// second has not pulled, so its push is rejected and must be retried.
	if err := os.WriteFile(filepath.Join(second, "b.txt"), []byte("b\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	outcome, err := b.Autopush(ctx)
	if err != nil || outcome != Applied {
		t.Fatalf("Autopush() after divergence = %v, %v; want applied", outcome, err)
	}

	if err := a.Pull(ctx); err != nil {
		t.Fatalf("Pull() failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(first, "b.txt")); err != nil {
		t.Errorf("b.txt not propagated: %v", err)
	}
}
