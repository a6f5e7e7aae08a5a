package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"testing"

	"github.com/lifebuddy/gofetch/internal/vcs"
)

// setupTestRepo creates a temporary git repository for testing
func setupTestRepo(t *testing.T) string {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	tmpDir := t.TempDir()

	cmd := exec.Command("git", "init")
	cmd.Dir = tmpDir
	if err := cmd.Run(); err != nil {
		t.Fatalf("failed to init git repo: %v", err)
	}

	// Configure git user for commits
	exec.Command("git", "-C", tmpDir, "config", "user.name", "Test User").Run()
	exec.Command("git", "-C", tmpDir, "config", "user.email", "test@example.com").Run()

	return tmpDir
}

func TestName(t *testing.T) {
	g := New()
	if g.Name() != vcs.TypeGit {
		t.Errorf("Name() = %v, want %v", g.Name(), vcs.TypeGit)
	}
	if g.MetadataDir() != ".git" {
		t.Errorf("MetadataDir() = %q, want .git", g.MetadataDir())
	}
}

func TestRegistered(t *testing.T) {
	b, err := vcs.New(vcs.TypeGit)
	if err != nil {
		t.Fatalf("vcs.New(git) failed: %v", err)
	}
	if _, ok := b.(*Git); !ok {
		t.Errorf("vcs.New(git) returned %T, want *Git", b)
	}
}

func TestVersion(t *testing.T) {
	setupTestRepo(t)

	version, err := New().Version(context.Background())
	if err != nil {
		t.Fatalf("Version() failed: %v", err)
	}
	if version == "" {
		t.Error("Version() returned empty string")
	}
}

func TestRunStatus(t *testing.T) {
	repoPath := setupTestRepo(t)
	g := New()
	ctx := context.Background()

	res, err := g.Run(ctx, repoPath, nil, vcs.ArgsStatus...)
	if err != nil {
		t.Fatalf("Run(status) failed: %v", err)
	}
	if !res.OK() || !res.Empty() {
		t.Errorf("clean repo status = %d %q, want 0 and empty", res.ExitCode, res.Output)
	}

	if err := os.WriteFile(filepath.Join(repoPath, "test.txt"), []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	res, err = g.Run(ctx, repoPath, nil, vcs.ArgsStatus...)
	if err != nil {
		t.Fatalf("Run(status) failed: %v", err)
	}
	if res.Empty() {
		t.Error("status should report the untracked file")
	}
}

func TestRunNonZeroExit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	res, err := New().Run(context.Background(), t.TempDir(), nil, "rev-parse", "--verify", "no-such-ref")
	if err != nil {
		t.Fatalf("Run() returned start error: %v", err)
	}
	if res.OK() {
		t.Error("expected non-zero exit")
	}
}

func TestRunMissingBinary(t *testing.T) {
	g := NewWithBinary("gofetch-no-such-git-binary")
	_, err := g.Run(context.Background(), t.TempDir(), nil, "status")
	if !errors.Is(err, vcs.ErrVCSNotAvailable) {
		t.Errorf("Run() error = %v, want ErrVCSNotAvailable", err)
	}
}

// fakeLookup resolves a fixed set of users and groups.
type fakeLookup struct {
	users  map[string]*user.User
	groups map[string]*user.Group
}

func (f fakeLookup) LookupUser(name string) (*user.User, error) {
	if u, ok := f.users[name]; ok {
		return u, nil
	}
	return nil, user.UnknownUserError(name)
}

func (f fakeLookup) LookupGroup(name string) (*user.Group, error) {
	if g, ok := f.groups[name]; ok {
		return g, nil
	}
	return nil, user.UnknownGroupError(name)
}

func TestApplyIdentity(t *testing.T) {
	g := New()
	g.lookup = fakeLookup{
		users: map[string]*user.User{
			"www": {Uid: "33", Gid: "33", HomeDir: "/var/www"},
			"bad": {Uid: "x", Gid: "1"},
		},
		groups: map[string]*user.Group{
			"deploy": {Gid: "1001"},
		},
	}

	tests := []struct {
		name     string
		opts     vcs.Options
		wantUID  uint32
		wantGID  uint32
		wantNone bool
		wantErr  bool
	}{
		{name: "no identity", opts: vcs.Options{"vcs": "git"}, wantNone: true},
		{name: "user only", opts: vcs.Options{"user": "www"}, wantUID: 33, wantGID: 33},
		{name: "user and group", opts: vcs.Options{"user": "www", "group": "deploy"}, wantUID: 33, wantGID: 1001},
		{name: "unknown user", opts: vcs.Options{"user": "nobody-here"}, wantErr: true},
		{name: "unknown group", opts: vcs.Options{"group": "nope"}, wantErr: true},
		{name: "bad uid", opts: vcs.Options{"user": "bad"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := exec.Command("git")
			err := g.applyIdentity(cmd, tt.opts)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("applyIdentity() failed: %v", err)
			}
			if tt.wantNone {
				if cmd.SysProcAttr != nil {
					t.Error("SysProcAttr should be unset without identity options")
				}
				return
			}
			cred := cmd.SysProcAttr.Credential
			if cred.Uid != tt.wantUID || cred.Gid != tt.wantGID {
				t.Errorf("credential = %d:%d, want %d:%d", cred.Uid, cred.Gid, tt.wantUID, tt.wantGID)
			}
		})
	}
}
