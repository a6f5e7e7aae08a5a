package daemon

import (
	"sync"
	"time"

	"github.com/lifebuddy/gofetch/internal/workspace"
)

// Operation names a sync operation run by the supervisor.
type Operation string

const (
	OpPull     Operation = "pull"
	OpAutopush Operation = "autopush"
)

// Source names what caused an operation.
type Source string

const (
	SourceStartup  Source = "startup"
	SourceChange   Source = "change"
	SourceTrigger  Source = "trigger"
	SourceInterval Source = "interval"
)

// Event describes one finished sync operation.
type Event struct {
	Path     string
	Op       Operation
	Source   Source
	Outcome  workspace.Outcome
	Err      error
	Started  time.Time
	Duration time.Duration
}

// UnitStats is a snapshot of one unit's activity.
type UnitStats struct {
	Path      string    `json:"path"`
	Pulls     uint64    `json:"pulls"`
	Pushes    uint64    `json:"pushes"`
	Failures  uint64    `json:"failures"`
	Changes   uint64    `json:"changes"`
	Pending   bool      `json:"pending"`
	Watched   int       `json:"watched"`
	LastPull  time.Time `json:"last_pull,omitzero"`
	LastPush  time.Time `json:"last_push,omitzero"`
	LastError string    `json:"last_error,omitempty"`
}

// activity records the outcome of a unit's operations.
type activity struct {
	mu        sync.Mutex
	pulls     uint64
	pushes    uint64
	failures  uint64
	lastPull  time.Time
	lastPush  time.Time
	lastError string
}

func (a *activity) record(e Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if e.Err != nil {
		a.failures++
		a.lastError = e.Err.Error()
		return
	}
	a.lastError = ""
	switch {
	case e.Op == OpPull:
		a.pulls++
		a.lastPull = e.Started
	case e.Outcome == workspace.Applied:
		a.pushes++
		a.lastPush = e.Started
	}
}

func (a *activity) fill(s *UnitStats) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s.Pulls = a.pulls
	s.Pushes = a.pushes
	s.Failures = a.failures
	s.LastPull = a.lastPull
	s.LastPush = a.lastPush
	s.LastError = a.lastError
}
