// Package daemon provides the supervisor that keeps every configured working
// directory in sync with its remotes.
//
// # Architecture
//
// The supervisor wires together, per working directory (unit):
//
//   - Observer: recursive fsnotify watch of the directory, skipping the
//     version control metadata directory
//   - Scheduler: debounce worker that runs the unit's autopush once the
//     directory has been quiet for the quiet period
//   - Ticker: optional periodic pull (Config.PullInterval)
//
// and, shared by all units, the trigger channel: a named pipe on which other
// processes write remote URLs, one per line. Each URL pulls the unit it is
// routed to by the workspace.Registry.
//
// Every version control command for a unit runs under that unit's mutex, so
// the observer, the scheduler, the ticker and the trigger loop never
// interleave commands in one directory. Different units run in parallel.
//
// # Usage
//
//	reg, err := config.BuildRegistry(ctx, settings, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	d, err := daemon.New(settings.Daemon(logger), reg, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//
//	if err := d.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Startup
//
// Run opens the trigger channel first; failing to do so is the only error
// that stops the daemon from starting. Then, unit by unit in path order, it
// pulls, pushes pending local changes, and starts the unit's workers.
// Failures of individual units are logged and the daemon carries on.
//
// # Graceful Shutdown
//
// Cancelling the context passed to Run will:
//  1. Stop the trigger loop
//  2. Cancel every worker and wait for it to return
//  3. Remove the trigger channel
//
// A version control command already running is cancelled along with the
// workers' context.
package daemon
