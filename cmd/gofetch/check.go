package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lifebuddy/gofetch/internal/config"
	"github.com/lifebuddy/gofetch/internal/logging"
	"github.com/lifebuddy/gofetch/internal/trigger"
	"github.com/lifebuddy/gofetch/internal/ui"
	"github.com/lifebuddy/gofetch/internal/vcs"
	"github.com/lifebuddy/gofetch/internal/vcs/git"
	"github.com/lifebuddy/gofetch/internal/workspace"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and show the routing table",
	Long: `Load the settings and the workspace list, list every workspace with the
identifiers routed to it, and report whether a daemon is listening.

Warnings about skipped workspaces are printed to stderr.`,
	Run: func(cmd *cobra.Command, args []string) {
		settings := mustLoadSettings()
		sink := logging.NewSink(os.Stderr, true)

		fmt.Printf("\n%s gofetch configuration\n\n", ui.RenderAccent("📊"))
		if used := v.ConfigFileUsed(); used != "" {
			fmt.Printf("   Config: %s\n", used)
		} else {
			fmt.Printf("   Config: %s\n", ui.RenderMuted("(defaults)"))
		}
		fmt.Printf("   Workspaces: %s\n", settings.Workspaces)
		fmt.Printf("   Quiet period: %v\n", settings.QuietPeriod)
		if settings.PullInterval > 0 {
			fmt.Printf("   Pull interval: %v\n", settings.PullInterval)
		}
		fmt.Printf("   Rejected pushes: %s\n", settings.RejectPolicy)

		printGitStatus(git.New())
		printTriggerStatus(settings.FIFO)

		reg, err := config.BuildRegistry(context.Background(), settings, sink.Logger("check"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "\n%s %v\n", ui.RenderFail("✗"), err)
			os.Exit(1)
		}

		routes := make(map[*workspace.Unit][]string)
		for _, id := range reg.IDs() {
			u, _ := reg.Lookup(id)
			routes[u] = append(routes[u], id)
		}

		fmt.Printf("\n%s\n", ui.RenderHeading("Workspaces"))
		for _, u := range reg.Units() {
			fmt.Printf("\n   %s", u.Path())
			if user := u.Options().Get(vcs.OptionUser, ""); user != "" {
				fmt.Printf(" %s", ui.RenderMuted("as "+user))
			}
			fmt.Println()
			if len(routes[u]) == 0 {
				fmt.Printf("     %s no identifiers\n", ui.RenderWarn("⚠"))
			}
			for _, id := range routes[u] {
				fmt.Printf("     %s\n", id)
			}
		}
		fmt.Println()
	},
}

func printGitStatus(g *git.Git) {
	if !vcs.IsAvailable(g.Binary()) {
		fmt.Printf("   %s %s not found on PATH\n", ui.RenderFail("✗"), g.Binary())
		return
	}
	version, err := g.Version(context.Background())
	if err != nil {
		fmt.Printf("   %s %v\n", ui.RenderFail("✗"), err)
		return
	}
	fmt.Printf("   %s git %s\n", ui.RenderPass("✓"), version)
}

func printTriggerStatus(path string) {
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeNamedPipe == 0 {
		fmt.Printf("   %s %s is not a named pipe\n", ui.RenderFail("✗"), path)
		return
	}

	err := trigger.Send(path)
	switch {
	case err == nil:
		fmt.Printf("   %s daemon listening on %s\n", ui.RenderPass("✓"), path)
	case errors.Is(err, trigger.ErrNoDaemon):
		fmt.Printf("   %s no daemon listening on %s\n", ui.RenderWarn("⚠"), path)
	default:
		fmt.Printf("   %s trigger channel %s: %v\n", ui.RenderFail("✗"), path, err)
	}
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
