package workspace

import (
	"context"
	"io"
	"log"
	"reflect"
	"testing"

	"github.com/lifebuddy/gofetch/internal/vcs"
	"github.com/lifebuddy/gofetch/internal/vcs/vcstest"
)

func TestRegistryAddLookup(t *testing.T) {
	reg := NewRegistry()
	a, _ := New("/a", vcstest.New(), nil)
	b, _ := New("/b", vcstest.New(), nil)

	if prev := reg.Add("origin-foo", a); prev != nil {
		t.Errorf("Add() returned previous %v on empty registry", prev)
	}
	if prev := reg.Add("origin-foo", b); prev != a {
		t.Errorf("Add() previous = %v, want %v", prev, a)
	}

	got, ok := reg.Lookup("origin-foo")
	if !ok || got != b {
		t.Errorf("Lookup() = %v, %v; want %v", got, ok, b)
	}
	if _, ok := reg.Lookup("missing"); ok {
		t.Error("Lookup(missing) should miss")
	}
}

func TestRegistryUnitsDistinct(t *testing.T) {
	reg := NewRegistry()
	a, _ := New("/a", vcstest.New(), nil)
	b, _ := New("/b", vcstest.New(), nil)
	reg.Add("x", b)
	reg.Add("y", a)
	reg.Add("z", a)

	units := reg.Units()
	if len(units) != 2 || units[0] != a || units[1] != b {
		t.Errorf("Units() = %v, want [/a /b]", units)
	}
	if !reflect.DeepEqual(reg.IDs(), []string{"x", "y", "z"}) {
		t.Errorf("IDs() = %v", reg.IDs())
	}
	if reg.Len() != 3 {
		t.Errorf("Len() = %d, want 3", reg.Len())
	}
}

func TestBuild(t *testing.T) {
	backend := vcstest.New()
	backend.Respond(func(dir string, args []string) (*vcs.Result, error) {
		if args[0] != "remote" {
			return nil, nil
		}
		switch dir {
		case "/a":
			return &vcs.Result{Output: []byte("origin\tgit@host:a.git (fetch)\norigin\tgit@host:a.git (push)\n")}, nil
		case "/b":
			return &vcs.Result{Output: []byte("origin\tgit@host:b.git (fetch)\nmirror\t/srv/b.git (push)\n")}, nil
		case "/broken":
			return &vcs.Result{ExitCode: 128, Output: []byte("fatal: not a git repository")}, nil
		}
		return nil, nil
	})

	var units []*Unit
	for _, p := range []string{"/a", "/b", "/broken", "/lonely"} {
		u, err := New(p, backend, nil)
		if err != nil {
			t.Fatalf("New(%s) failed: %v", p, err)
		}
		units = append(units, u)
	}

	reg, err := Build(context.Background(), units, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	want := []string{"/srv/b.git", "git@host:a.git", "git@host:b.git"}
	if got := reg.IDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
	if u, _ := reg.Lookup("/srv/b.git"); u != units[1] {
		t.Errorf("Lookup(/srv/b.git) = %v, want /b", u)
	}
	// Units without remotes are still supervised.
	if got := reg.Units(); len(got) != 4 {
		t.Errorf("Units() = %v, want all 4 units", got)
	}
}

func TestRegistryTrack(t *testing.T) {
	reg := NewRegistry()
	a, _ := New("/a", vcstest.New(), nil)
	reg.Track(a)
	reg.Track(a)

	if units := reg.Units(); len(units) != 1 || units[0] != a {
		t.Errorf("Units() = %v, want [/a]", units)
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
}

func TestBuildCancelled(t *testing.T) {
	u, _ := New("/a", vcstest.New(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Build(ctx, []*Unit{u}, log.New(io.Discard, "", 0)); err == nil {
		t.Error("Build() with cancelled context should fail")
	}
}
