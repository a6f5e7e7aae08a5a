// Command gofetch keeps working directories in sync with their remotes.
package main

import (
	"os"

	// Register the version control backends.
	_ "github.com/lifebuddy/gofetch/internal/vcs/git"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
