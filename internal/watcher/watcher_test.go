package watcher

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// setupTree creates a working directory with a metadata subtree.
func setupTree(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	for _, dir := range []string{".git/objects", "src"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
	}
	return root
}

// startObserver runs an observer over root and returns a change counter.
func startObserver(t *testing.T, root string) (*Observer, *atomic.Int64) {
	t.Helper()

	var count atomic.Int64
	o, err := New(root, func() { count.Add(1) }, WithLogger(log.New(io.Discard, "", 0)))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run() returned error: %v", err)
		}
	})

	select {
	case <-o.Ready():
	case err := <-done:
		t.Fatalf("Run() exited early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("observer not ready")
	}
	return o, &count
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNew(t *testing.T) {
	if _, err := New(t.TempDir(), nil); err == nil {
		t.Error("New() with nil callback should fail")
	}

	o, err := New(".", func() {})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if !filepath.IsAbs(o.root) {
		t.Errorf("root = %q, want absolute path", o.root)
	}
}

func TestObserver_FileCreated(t *testing.T) {
	root := setupTree(t)
	_, count := startObserver(t, root)

	if err := os.WriteFile(filepath.Join(root, "index.html"), []byte("hi"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	waitFor(t, "change callback", func() bool { return count.Load() > 0 })
}

func TestObserver_MetadataIgnored(t *testing.T) {
	root := setupTree(t)
	_, count := startObserver(t, root)

	if err := os.WriteFile(filepath.Join(root, ".git", "index"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(root, ".git", "objects", "ab"), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, ".git", "objects", "ab", "cdef"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if n := count.Load(); n != 0 {
		t.Errorf("metadata changes produced %d callbacks, want 0", n)
	}
}

func TestObserver_NestedFileModified(t *testing.T) {
	root := setupTree(t)
	path := filepath.Join(root, "src", "main.go")
	if err := os.WriteFile(path, []byte("package main"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	_, count := startObserver(t, root)

	if err := os.WriteFile(path, []byte("package main\n"), 0644); err != nil {
		t.Fatalf("Failed to modify file: %v", err)
	}
	waitFor(t, "modify callback", func() bool { return count.Load() > 0 })
}

func TestObserver_NewDirectoryIsWatched(t *testing.T) {
	root := setupTree(t)
	o, count := startObserver(t, root)

	before := o.Watched()
	newDir := filepath.Join(root, "assets", "img")
	if err := os.MkdirAll(newDir, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	waitFor(t, "new directories to be watched", func() bool { return o.Watched() >= before+2 })

	seen := count.Load()
	if err := os.WriteFile(filepath.Join(newDir, "logo.png"), []byte("png"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	waitFor(t, "callback from new directory", func() bool { return count.Load() > seen })
}

func TestObserver_RemoveAndRename(t *testing.T) {
	root := setupTree(t)
	path := filepath.Join(root, "a.txt")
	if err := os.WriteFile(path, []byte("a"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	_, count := startObserver(t, root)

	if err := os.Rename(path, filepath.Join(root, "b.txt")); err != nil {
		t.Fatalf("Failed to rename: %v", err)
	}
	waitFor(t, "rename callback", func() bool { return count.Load() > 0 })

	seen := count.Load()
	if err := os.Remove(filepath.Join(root, "b.txt")); err != nil {
		t.Fatalf("Failed to remove: %v", err)
	}
	waitFor(t, "remove callback", func() bool { return count.Load() > seen })
}

func TestObserver_RunTwice(t *testing.T) {
	root := setupTree(t)
	o, _ := startObserver(t, root)

	if err := o.Run(context.Background()); err == nil {
		t.Error("second Run() should fail while running")
	}
}

func TestExcluded(t *testing.T) {
	o, err := New("/srv/site", func() {})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	tests := []struct {
		path string
		want bool
	}{
		{"/srv/site/index.html", false},
		{"/srv/site/.gitignore", false},
		{"/srv/site/.git", true},
		{"/srv/site/.git/refs/heads/main", true},
		{"/srv/site/vendor/lib/.git/HEAD", true},
		{"/srv/other/file", true},
	}

	for _, tt := range tests {
		if got := o.excluded(filepath.FromSlash(tt.path)); got != tt.want {
			t.Errorf("excluded(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
