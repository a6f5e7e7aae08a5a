package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lifebuddy/gofetch/internal/config"
	"github.com/lifebuddy/gofetch/internal/daemon"
	"github.com/lifebuddy/gofetch/internal/logging"
	"github.com/lifebuddy/gofetch/internal/status"
	"github.com/lifebuddy/gofetch/internal/ui"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the sync daemon in the foreground",
	Long: `Run the sync daemon in the foreground.

On startup every workspace is pulled and any pending local changes are
pushed. Afterwards:
  1. File changes are committed and pushed after the quiet period
  2. Identifiers written to the trigger channel pull the matching workspace
  3. With --pull-interval, every workspace is also pulled periodically

SIGINT or SIGTERM stops the daemon. SIGHUP reopens the log file.`,
	Run: func(cmd *cobra.Command, args []string) {
		settings := mustLoadSettings()

		sink := logging.Open(settings.Log)
		defer sink.Close()
		logger := sink.Logger("daemon")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go rotateOnHangup(ctx, sink)

		reg, err := config.BuildRegistry(ctx, settings, sink.Logger("unit"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading workspaces: %v\n", err)
			os.Exit(1)
		}

		daemonConfig := settings.Daemon(logger)
		var statusServer *status.Server
		if settings.StatusAddr != "" {
			statusServer = status.NewServer(status.Config{Addr: settings.StatusAddr, Logger: sink.Logger("status")})
			daemonConfig.OnEvent = statusServer.Publish
		}

		d, err := daemon.New(daemonConfig, reg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating daemon: %v\n", err)
			os.Exit(1)
		}

		if statusServer != nil {
			statusServer.SetStats(d.Stats)
			if err := statusServer.Start(); err != nil {
				fmt.Fprintf(os.Stderr, "Error starting status server: %v\n", err)
				os.Exit(1)
			}
			defer statusServer.Stop()
		}

		fmt.Printf("%s Starting gofetch daemon...\n", ui.RenderAccent("🚀"))
		fmt.Printf("   Workspaces: %d\n", len(d.Units()))
		fmt.Printf("   Identifiers: %d\n", reg.Len())
		fmt.Printf("   Trigger: %s\n", settings.FIFO)
		if statusServer != nil {
			fmt.Printf("   Status: http://%s/health\n", statusServer.Addr())
		}
		fmt.Printf("\nPress Ctrl+C to stop\n\n")

		if err := d.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Daemon stopped with error: %v\n", err)
			os.Exit(1)
		}
	},
}

func rotateOnHangup(ctx context.Context, sink *logging.Sink) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := sink.Rotate(); err != nil {
				sink.Logger("daemon").Printf("Error rotating log: %v", err)
			}
		}
	}
}

func init() {
	daemonCmd.Flags().Duration("quiet-period", 0, "how long a workspace must be unchanged before pushing")
	daemonCmd.Flags().Duration("pull-interval", 0, "pull every workspace this often (0 disables)")
	daemonCmd.Flags().String("reject-policy", "", "on rejected push: retry (pull, then push) or surface")
	daemonCmd.Flags().String("status-addr", "", "serve /health and the /ws event feed on this address")
	rootCmd.AddCommand(daemonCmd)
}
