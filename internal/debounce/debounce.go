// Package debounce coalesces bursts of change notifications into a single
// delayed action.
//
// A Scheduler owns one worker goroutine. Schedule may be called from any
// goroutine to set (or push back) the time at which the action runs; the
// worker sleeps until that time or until it is woken by a newer schedule,
// so a superseded fire time is never acted upon.
package debounce

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Action is the work run when a scheduled time arrives.
type Action func(ctx context.Context) error

// Scheduler runs an Action at most once per quiet period.
type Scheduler struct {
	action Action
	logger *log.Logger
	now    func() time.Time

	mu  sync.Mutex
	due time.Time // zero means idle

	// wake has capacity 1; a pending wake-up is never lost and never doubled
	wake chan struct{}

	fired  atomic.Uint64
	failed atomic.Uint64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger used for action failures.
func WithLogger(l *log.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Scheduler for action. Run must be called to start the worker.
func New(action Action, opts ...Option) *Scheduler {
	s := &Scheduler{
		action: action,
		logger: log.New(os.Stderr, "[debounce] ", log.LstdFlags),
		now:    time.Now,
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule sets the pending fire time to at, replacing any earlier
// schedule that has not fired yet.
func (s *Scheduler) Schedule(at time.Time) {
	s.mu.Lock()
	s.due = at
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// ScheduleAfter schedules the action d from now.
func (s *Scheduler) ScheduleAfter(d time.Duration) {
	s.Schedule(s.now().Add(d))
}

// Pending returns the pending fire time, if any.
func (s *Scheduler) Pending() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.due, !s.due.IsZero()
}

// Fired returns how many times the action has run.
func (s *Scheduler) Fired() uint64 {
	return s.fired.Load()
}

// Failed returns how many runs returned an error or panicked.
func (s *Scheduler) Failed() uint64 {
	return s.failed.Load()
}

// Run is the worker loop. It blocks until ctx is cancelled and always
// returns nil; action failures are logged and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		due, pending := s.Pending()

		if !pending {
			select {
			case <-s.wake:
				continue
			case <-ctx.Done():
				return nil
			}
		}

		if wait := due.Sub(s.now()); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-s.wake:
				timer.Stop()
			case <-ctx.Done():
				timer.Stop()
				return nil
			}
			// Re-read the schedule: it may have moved while we slept.
			continue
		}

		if !s.claim(due) {
			continue
		}
		s.fire(ctx)
	}
}

// claim clears the pending time if it is still the one observed as due.
// Clearing before the action runs means a schedule made by the action's own
// side effects is kept for the next round.
func (s *Scheduler) claim(due time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.due.Equal(due) {
		return false
	}
	s.due = time.Time{}
	return true
}

func (s *Scheduler) fire(ctx context.Context) {
	s.fired.Add(1)
	if err := s.safeRun(ctx); err != nil {
		s.failed.Add(1)
		s.logger.Printf("Error: scheduled action failed: %v", err)
	}
}

func (s *Scheduler) safeRun(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.action(ctx)
}
