package main

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lifebuddy/gofetch/internal/config"
	"github.com/lifebuddy/gofetch/internal/vcs/git"
)

// captureStdout returns what fn prints to stdout.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe() failed: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	done := make(chan string)
	go func() {
		out, _ := io.ReadAll(r)
		done <- string(out)
	}()
	fn()
	w.Close()
	return <-done
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"daemon", "pull", "sync", "remotes", "check"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("Find(%s) = %v, %v", name, cmd, err)
		}
	}
}

func TestFlagsOverrideSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gofetch.toml")
	if err := os.WriteFile(path, []byte("quiet_period = \"30s\"\nfifo = \"/tmp/from-file.fifo\"\n"), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	var err error
	v, err = config.NewViper(path)
	if err != nil {
		t.Fatalf("NewViper() failed: %v", err)
	}
	if err := daemonCmd.Flags().Set("quiet-period", "2s"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if err := bindFlags(daemonCmd); err != nil {
		t.Fatalf("bindFlags() failed: %v", err)
	}

	s, err := config.Load(v)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if s.QuietPeriod != 2*time.Second {
		t.Errorf("QuietPeriod = %v, want flag value 2s", s.QuietPeriod)
	}
	if s.FIFO != "/tmp/from-file.fifo" {
		t.Errorf("FIFO = %q, want the config file value", s.FIFO)
	}
}

func TestPrintGitStatus(t *testing.T) {
	out := captureStdout(t, func() { printGitStatus(git.NewWithBinary("gofetch-no-such-git")) })
	if !strings.Contains(out, "gofetch-no-such-git not found on PATH") {
		t.Errorf("output = %q, want missing binary report", out)
	}

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	out = captureStdout(t, func() { printGitStatus(git.New()) })
	if !strings.Contains(out, "git ") || strings.Contains(out, "not found") {
		t.Errorf("output = %q, want git version", out)
	}
}
