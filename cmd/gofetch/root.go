package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lifebuddy/gofetch/internal/config"
	"github.com/lifebuddy/gofetch/internal/ui"
)

var (
	cfgFile string
	noColor bool
	v       *viper.Viper
)

var rootCmd = &cobra.Command{
	Use:   "gofetch",
	Short: "Keep working directories in sync with their remotes",
	Long: `gofetch watches a set of working directories. Local changes are committed
and pushed once a directory has been quiet for a while; remote changes are
pulled when a pull request for one of the directory's remotes arrives on the
trigger channel (a named pipe).

Settings are read from gofetch.{toml,yaml} in /etc/gofetch,
$HOME/.config/gofetch or the current directory, and from GOFETCH_*
environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			ui.SetPlain()
		}
		var err error
		v, err = config.NewViper(cfgFile)
		if err != nil {
			return err
		}
		return bindFlags(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: search /etc/gofetch, $HOME/.config/gofetch, .)")
	rootCmd.PersistentFlags().String("workspaces", "", "workspace list file")
	rootCmd.PersistentFlags().String("fifo", "", "trigger channel path")
	rootCmd.PersistentFlags().String("log-file", "", "log to a rotated file instead of stderr")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// flagKeys maps flag names to setting keys. Only flags present on the
// running command are bound.
var flagKeys = map[string]string{
	"workspaces":    config.KeyWorkspaces,
	"fifo":          config.KeyFIFO,
	"log-file":      config.KeyLogFile,
	"quiet-period":  config.KeyQuietPeriod,
	"pull-interval": config.KeyPullInterval,
	"reject-policy": config.KeyRejectPolicy,
	"status-addr":   config.KeyStatusAddr,
}

func bindFlags(cmd *cobra.Command) error {
	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", name, err)
		}
	}
	return nil
}

// mustLoadSettings resolves the settings or exits.
func mustLoadSettings() *config.Settings {
	settings, err := config.Load(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}
	return settings
}
