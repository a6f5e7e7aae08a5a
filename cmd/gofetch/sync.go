package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lifebuddy/gofetch/internal/config"
	"github.com/lifebuddy/gofetch/internal/logging"
	"github.com/lifebuddy/gofetch/internal/ui"
	"github.com/lifebuddy/gofetch/internal/vcs"
	"github.com/lifebuddy/gofetch/internal/workspace"
)

var syncCmd = &cobra.Command{
	Use:   "sync <dir>",
	Short: "Pull and push one working directory once",
	Long: `Synchronize a single working directory without the daemon:
  1. Pull, resolving conflicts in favor of the remote, and push the merge
  2. Commit and push any pending local changes

Do not run this on a directory the daemon is also managing.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		settings := mustLoadSettings()
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		u := mustBuildUnit(cmd, args[0], settings)

		fmt.Printf("%s Syncing %s...\n", ui.RenderAccent("🔄"), u.Path())
		if err := u.Pull(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "%s Pull failed: %v\n", ui.RenderFail("✗"), err)
			os.Exit(1)
		}
		fmt.Printf("%s Pulled\n", ui.RenderPass("✓"))

		outcome, err := u.Autopush(ctx)
		switch outcome {
		case workspace.Applied:
			fmt.Printf("%s Pushed local changes\n", ui.RenderPass("✓"))
		case workspace.Skipped:
			fmt.Printf("%s No local changes\n", ui.RenderMuted("-"))
		default:
			fmt.Fprintf(os.Stderr, "%s Push failed: %v\n", ui.RenderFail("✗"), err)
			os.Exit(1)
		}
	},
}

// mustBuildUnit creates a unit for dir from the --user, --group and --vcs
// flags of cmd, or exits.
func mustBuildUnit(cmd *cobra.Command, dir string, settings *config.Settings) *workspace.Unit {
	opts := vcs.Options{}
	for _, key := range []string{vcs.OptionUser, vcs.OptionGroup, vcs.OptionVCS} {
		if value, _ := cmd.Flags().GetString(key); value != "" {
			opts[key] = value
		}
	}

	units, err := config.BuildUnits([]config.Entry{{Path: dir, Options: opts}}, settings, logging.Discard().Logger("unit"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", dir, err)
		os.Exit(1)
	}
	return units[0]
}

func addUnitFlags(cmd *cobra.Command) {
	cmd.Flags().String(vcs.OptionUser, "", "run version control commands as this user")
	cmd.Flags().String(vcs.OptionGroup, "", "run version control commands as this group")
	cmd.Flags().String(vcs.OptionVCS, "", "backend type (default git)")
}

func init() {
	addUnitFlags(syncCmd)
	syncCmd.Flags().String("reject-policy", "", "on rejected push: retry (pull, then push) or surface")
	rootCmd.AddCommand(syncCmd)
}
