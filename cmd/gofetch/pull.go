package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lifebuddy/gofetch/internal/trigger"
	"github.com/lifebuddy/gofetch/internal/ui"
)

var pullCmd = &cobra.Command{
	Use:   "pull <identifier>...",
	Short: "Ask the running daemon to pull",
	Long: `Write identifiers (remote URLs) to the daemon's trigger channel.

The daemon pulls every workspace with a remote matching an identifier.
Unknown identifiers are ignored by the daemon. Typically called from a
post-receive hook on the remote:

  gofetch pull git@example.com:site.git`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		settings := mustLoadSettings()

		if err := trigger.Send(settings.FIFO, args...); err != nil {
			if errors.Is(err, trigger.ErrNoDaemon) {
				fmt.Fprintf(os.Stderr, "%s No daemon is listening on %s\n", ui.RenderFail("✗"), settings.FIFO)
			} else {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			os.Exit(1)
		}

		for _, id := range args {
			fmt.Printf("%s Requested pull of %s\n", ui.RenderPass("✓"), id)
		}
	},
}

func init() {
	rootCmd.AddCommand(pullCmd)
}
