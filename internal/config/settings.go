// Package config loads daemon settings and the list of working directories
// to keep in sync.
//
// Settings come from viper: defaults, then a gofetch.{toml,yaml} file, then
// GOFETCH_* environment variables, then command line flags bound by the CLI.
// The workspace list is a separate file named by the "workspaces" setting.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/lifebuddy/gofetch/internal/daemon"
	"github.com/lifebuddy/gofetch/internal/logging"
	"github.com/lifebuddy/gofetch/internal/trigger"
	"github.com/lifebuddy/gofetch/internal/workspace"
)

// EnvPrefix is prepended to every environment variable override.
const EnvPrefix = "GOFETCH"

// Setting keys.
const (
	KeyWorkspaces     = "workspaces"
	KeyFIFO           = "fifo"
	KeyFIFOMode       = "fifo_mode"
	KeyQuietPeriod    = "quiet_period"
	KeyPullInterval   = "pull_interval"
	KeyRejectPolicy   = "reject_policy"
	KeyMetadataDir    = "metadata_dir"
	KeyLogFile        = "log_file"
	KeyLogMaxSizeMB   = "log_max_size_mb"
	KeyLogMaxBackups  = "log_max_backups"
	KeyLogMaxAgeDays  = "log_max_age_days"
	KeyStatusAddr     = "status_addr"
	DefaultWorkspaces = "/etc/gofetch/workspaces.conf"
)

// Settings holds the resolved daemon configuration.
type Settings struct {
	Workspaces   string
	FIFO         string
	FIFOMode     os.FileMode
	QuietPeriod  time.Duration
	PullInterval time.Duration
	RejectPolicy workspace.RejectPolicy
	MetadataDir  string
	StatusAddr   string
	Log          logging.Options
}

// SetDefaults registers the default value of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyWorkspaces, DefaultWorkspaces)
	v.SetDefault(KeyFIFO, trigger.DefaultPath)
	v.SetDefault(KeyFIFOMode, "0666")
	v.SetDefault(KeyQuietPeriod, 10*time.Second)
	v.SetDefault(KeyPullInterval, time.Duration(0))
	v.SetDefault(KeyRejectPolicy, workspace.RejectRetry.String())
	v.SetDefault(KeyMetadataDir, ".git")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyLogMaxSizeMB, 10)
	v.SetDefault(KeyLogMaxBackups, 3)
	v.SetDefault(KeyLogMaxAgeDays, 28)
	v.SetDefault(KeyStatusAddr, "")
}

// NewViper returns a viper instance with defaults and environment
// overrides set up, and reads the config file.
//
// When configFile is empty, gofetch.{toml,yaml,...} is searched for in
// /etc/gofetch, $HOME/.config/gofetch and the current directory; not
// finding one is not an error. An explicit configFile must exist.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("gofetch")
		v.AddConfigPath("/etc/gofetch")
		v.AddConfigPath("$HOME/.config/gofetch")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return v, nil
}

// Load resolves and validates the settings held by v.
func Load(v *viper.Viper) (*Settings, error) {
	mode, err := parseMode(v.Get(KeyFIFOMode))
	if err != nil {
		return nil, err
	}
	policy, err := workspace.ParseRejectPolicy(v.GetString(KeyRejectPolicy))
	if err != nil {
		return nil, err
	}

	s := &Settings{
		Workspaces:   v.GetString(KeyWorkspaces),
		FIFO:         v.GetString(KeyFIFO),
		FIFOMode:     mode,
		QuietPeriod:  v.GetDuration(KeyQuietPeriod),
		PullInterval: v.GetDuration(KeyPullInterval),
		RejectPolicy: policy,
		MetadataDir:  v.GetString(KeyMetadataDir),
		StatusAddr:   v.GetString(KeyStatusAddr),
		Log: logging.Options{
			File:       v.GetString(KeyLogFile),
			MaxSizeMB:  v.GetInt(KeyLogMaxSizeMB),
			MaxBackups: v.GetInt(KeyLogMaxBackups),
			MaxAgeDays: v.GetInt(KeyLogMaxAgeDays),
		},
	}

	if s.FIFO == "" {
		return nil, fmt.Errorf("%s cannot be empty", KeyFIFO)
	}
	if s.QuietPeriod <= 0 {
		return nil, fmt.Errorf("%s must be positive, got %v", KeyQuietPeriod, s.QuietPeriod)
	}
	if s.PullInterval < 0 {
		return nil, fmt.Errorf("%s cannot be negative, got %v", KeyPullInterval, s.PullInterval)
	}
	if s.MetadataDir == "" || strings.ContainsRune(s.MetadataDir, os.PathSeparator) {
		return nil, fmt.Errorf("%s must be a single directory name, got %q", KeyMetadataDir, s.MetadataDir)
	}
	return s, nil
}

// Daemon returns the supervisor configuration for these settings.
func (s *Settings) Daemon(logger *log.Logger) daemon.Config {
	return daemon.Config{
		FIFOPath:     s.FIFO,
		FIFOMode:     s.FIFOMode,
		QuietPeriod:  s.QuietPeriod,
		PullInterval: s.PullInterval,
		MetadataDir:  s.MetadataDir,
		Logger:       logger,
	}
}

// parseMode reads a permission. Strings such as "0666", "0o660" or "660"
// are octal; numbers from TOML or YAML (fifo_mode = 0o666, or 438) are
// taken as they are.
func parseMode(raw any) (os.FileMode, error) {
	var n uint64
	switch val := raw.(type) {
	case string:
		parsed, err := strconv.ParseUint(strings.TrimPrefix(val, "0o"), 8, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q: %w", KeyFIFOMode, val, err)
		}
		n = parsed
	default:
		parsed, err := cast.ToUint32E(val)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %v: %w", KeyFIFOMode, val, err)
		}
		n = uint64(parsed)
	}
	if n > 0o777 {
		return 0, fmt.Errorf("invalid %s %v: not a permission", KeyFIFOMode, raw)
	}
	return os.FileMode(n), nil
}
