package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lifebuddy/gofetch/internal/ui"
)

var remotesCmd = &cobra.Command{
	Use:   "remotes <dir>",
	Short: "List the remotes of a working directory",
	Long: `List the remote bindings of a working directory.

Each remote URL is an identifier that pulls this directory when written to
the trigger channel.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		settings := mustLoadSettings()
		u := mustBuildUnit(cmd, args[0], settings)

		fmt.Printf("\n%s Remotes of %s\n\n", ui.RenderAccent("📡"), u.Path())
		n := 0
		for binding, err := range u.Remotes(context.Background()) {
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderFail("✗"), err)
				os.Exit(1)
			}
			fmt.Printf("   %-10s %s %s\n", binding.Name, binding.URL, ui.RenderMuted("("+string(binding.Direction)+")"))
			n++
		}
		if n == 0 {
			fmt.Printf("   %s no remotes; this directory cannot be triggered\n", ui.RenderWarn("⚠"))
		}
		fmt.Println()
	},
}

func init() {
	addUnitFlags(remotesCmd)
	rootCmd.AddCommand(remotesCmd)
}
