package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lifebuddy/gofetch/internal/debounce"
	"github.com/lifebuddy/gofetch/internal/trigger"
	"github.com/lifebuddy/gofetch/internal/vcs"
	"github.com/lifebuddy/gofetch/internal/watcher"
	"github.com/lifebuddy/gofetch/internal/workspace"
)

// ErrAlreadyRunning is returned by Run when the supervisor is already running.
var ErrAlreadyRunning = errors.New("daemon already running")

// Config holds configuration for the supervisor.
type Config struct {
	// FIFOPath is where the trigger channel is created
	FIFOPath string

	// FIFOMode is the permission of the trigger channel
	FIFOMode os.FileMode

	// QuietPeriod is how long a working directory must stay unchanged
	// before its changes are committed and pushed. A unit's "quiet"
	// option overrides it.
	QuietPeriod time.Duration

	// PullInterval enables a periodic pull of every unit when positive
	PullInterval time.Duration

	// MetadataDir is the directory name the observers ignore. Empty means
	// the unit backend's own metadata directory.
	MetadataDir string

	// OnEvent, when set, is called after every sync operation. It runs on
	// the goroutine that performed the operation and must not block.
	OnEvent func(Event)

	// Logger for supervisor activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		FIFOPath:    trigger.DefaultPath,
		FIFOMode:    trigger.DefaultMode,
		QuietPeriod: 10 * time.Second,
		Logger:      log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// worker bundles everything the supervisor runs for one unit.
type worker struct {
	unit      *workspace.Unit
	quiet     time.Duration
	scheduler *debounce.Scheduler
	observer  *watcher.Observer
	activity  activity
}

// Daemon supervises the workers of every unit and the trigger channel.
type Daemon struct {
	config   Config
	registry *workspace.Registry
	logger   *log.Logger

	workers []*worker
	byPath  map[string]*worker

	mu      sync.Mutex
	running bool

	ready     chan struct{}
	readyOnce sync.Once
}

// New creates a supervisor for every unit in the registry.
//
// Observers are created but not started; Run starts them.
func New(config Config, registry *workspace.Registry, logger *log.Logger) (*Daemon, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	defaults := DefaultConfig()
	if config.FIFOPath == "" {
		config.FIFOPath = defaults.FIFOPath
	}
	if config.FIFOMode == 0 {
		config.FIFOMode = defaults.FIFOMode
	}
	if config.QuietPeriod <= 0 {
		config.QuietPeriod = defaults.QuietPeriod
	}
	if logger == nil {
		logger = config.Logger
	}
	if logger == nil {
		logger = defaults.Logger
	}
	config.Logger = logger

	d := &Daemon{
		config:   config,
		registry: registry,
		logger:   logger,
		byPath:   make(map[string]*worker),
		ready:    make(chan struct{}),
	}

	for _, u := range registry.Units() {
		w, err := d.newWorker(u)
		if err != nil {
			return nil, err
		}
		d.workers = append(d.workers, w)
		d.byPath[u.Path()] = w
	}

	return d, nil
}

func (d *Daemon) newWorker(u *workspace.Unit) (*worker, error) {
	w := &worker{unit: u, quiet: d.config.QuietPeriod}

	if raw := u.Options().Get(vcs.OptionQuiet, ""); raw != "" {
		quiet, err := time.ParseDuration(raw)
		if err != nil || quiet <= 0 {
			d.logger.Printf("Warning: %s: invalid quiet period %q, using %v", u.Path(), raw, w.quiet)
		} else {
			w.quiet = quiet
		}
	}

	w.scheduler = debounce.New(func(ctx context.Context) error {
		return d.autopush(ctx, w, SourceChange)
	}, debounce.WithLogger(d.logger))

	ignore := d.config.MetadataDir
	if ignore == "" {
		ignore = u.Backend().MetadataDir()
	}
	observer, err := watcher.New(u.Path(), func() {
		w.scheduler.ScheduleAfter(w.quiet)
	}, watcher.WithIgnore(ignore), watcher.WithLogger(d.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create observer for %s: %w", u.Path(), err)
	}
	w.observer = observer

	return w, nil
}

// Units returns the supervised units sorted by path.
func (d *Daemon) Units() []*workspace.Unit {
	units := make([]*workspace.Unit, len(d.workers))
	for i, w := range d.workers {
		units[i] = w.unit
	}
	return units
}

// Scheduler returns the debounce scheduler of the unit at path.
func (d *Daemon) Scheduler(path string) (*debounce.Scheduler, bool) {
	w, ok := d.byPath[path]
	if !ok {
		return nil, false
	}
	return w.scheduler, true
}

// Observer returns the change observer of the unit at path.
func (d *Daemon) Observer(path string) (*watcher.Observer, bool) {
	w, ok := d.byPath[path]
	if !ok {
		return nil, false
	}
	return w.observer, true
}

// Stats returns a snapshot of every unit's activity, sorted by path.
func (d *Daemon) Stats() []UnitStats {
	stats := make([]UnitStats, len(d.workers))
	for i, w := range d.workers {
		s := UnitStats{
			Path:    w.unit.Path(),
			Changes: w.observer.Changes(),
			Watched: w.observer.Watched(),
		}
		_, s.Pending = w.scheduler.Pending()
		w.activity.fill(&s)
		stats[i] = s
	}
	return stats
}

// Ready is closed once startup reconciliation is done and every observer
// has its watches in place. An observer that fails to start is logged and
// does not hold Ready back.
func (d *Daemon) Ready() <-chan struct{} {
	return d.ready
}

// Run starts the supervisor and blocks until ctx is cancelled or the trigger
// channel fails.
//
// Failing to open the trigger channel is the only fatal startup error.
// Reconciliation failures of individual units are logged.
func (d *Daemon) Run(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return ErrAlreadyRunning
	}
	d.running = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	d.logger.Printf("Starting daemon with %d units", len(d.workers))

	channel, err := trigger.Open(d.config.FIFOPath, d.config.FIFOMode, d.logger)
	if err != nil {
		return fmt.Errorf("failed to open trigger channel: %w", err)
	}
	defer func() {
		if err := channel.Close(); err != nil {
			d.logger.Printf("Error closing trigger channel: %v", err)
		}
	}()

	workCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(workCtx)

	var started []*worker
	var stopped []<-chan struct{}
	for _, w := range d.workers {
		if ctx.Err() != nil {
			break
		}
		d.reconcile(ctx, w)
		stopped = append(stopped, d.start(g, gctx, w))
		started = append(started, w)
	}
	if d.config.PullInterval > 0 {
		g.Go(func() error {
			d.pullPeriodically(gctx)
			return nil
		})
	}

	// Every observer has its watches in place, or has given up, before Ready.
	for i, w := range started {
		select {
		case <-w.observer.Ready():
		case <-stopped[i]:
		case <-ctx.Done():
		}
	}
	d.readyOnce.Do(func() { close(d.ready) })

	d.logger.Printf("Listening for pull requests on %s", channel.Path())
	serveErr := channel.Serve(ctx, trigger.DispatchFunc(d.registry, d.logger, d.pullTriggered))
	if serveErr != nil {
		d.logger.Printf("Error: trigger channel failed: %v", serveErr)
	} else {
		d.logger.Println("Shutdown signal received")
	}

	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Printf("Error: worker failed: %v", err)
	}

	d.logger.Println("Daemon stopped")
	return serveErr
}

// reconcile brings a unit up to date before its workers start.
func (d *Daemon) reconcile(ctx context.Context, w *worker) {
	if err := d.pull(ctx, w, SourceStartup); err != nil {
		d.logger.Printf("Warning: initial pull of %s failed: %v", w.unit.Path(), err)
	}
	if err := d.autopush(ctx, w, SourceStartup); err != nil {
		d.logger.Printf("Warning: initial autopush of %s failed: %v", w.unit.Path(), err)
	}
}

// start runs the scheduler and observer of w under g. Both log their own
// failures so one unit can never stop the others. The returned channel is
// closed when the observer stops.
func (d *Daemon) start(g *errgroup.Group, ctx context.Context, w *worker) <-chan struct{} {
	stopped := make(chan struct{})
	g.Go(func() error {
		return w.scheduler.Run(ctx)
	})
	g.Go(func() error {
		defer close(stopped)
		if err := w.observer.Run(ctx); err != nil && ctx.Err() == nil {
			d.logger.Printf("Error: watching %s stopped: %v", w.unit.Path(), err)
		}
		return nil
	})
	return stopped
}

func (d *Daemon) pull(ctx context.Context, w *worker, source Source) error {
	started := time.Now()
	err := w.unit.Pull(ctx)

	outcome := workspace.Applied
	if err != nil {
		outcome = workspace.Failed
	}
	d.report(w, Event{Op: OpPull, Source: source, Outcome: outcome, Err: err, Started: started})
	return err
}

func (d *Daemon) pullTriggered(ctx context.Context, u *workspace.Unit) error {
	w, ok := d.byPath[u.Path()]
	if !ok {
		return u.Pull(ctx)
	}
	return d.pull(ctx, w, SourceTrigger)
}

func (d *Daemon) autopush(ctx context.Context, w *worker, source Source) error {
	started := time.Now()
	outcome, err := w.unit.Autopush(ctx)
	switch outcome {
	case workspace.Applied:
		d.logger.Printf("Pushed changes in %s", w.unit.Path())
	case workspace.Skipped:
		d.logger.Printf("No changes in %s", w.unit.Path())
	}
	d.report(w, Event{Op: OpAutopush, Source: source, Outcome: outcome, Err: err, Started: started})
	return err
}

func (d *Daemon) report(w *worker, e Event) {
	e.Path = w.unit.Path()
	e.Duration = time.Since(e.Started)
	w.activity.record(e)
	if d.config.OnEvent != nil {
		d.config.OnEvent(e)
	}
}

func (d *Daemon) pullPeriodically(ctx context.Context) {
	ticker := time.NewTicker(d.config.PullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, w := range d.workers {
				if ctx.Err() != nil {
					return
				}
				if err := d.pull(ctx, w, SourceInterval); err != nil {
					d.logger.Printf("Warning: periodic pull of %s failed: %v", w.unit.Path(), err)
				}
			}
		}
	}
}
