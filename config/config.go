// Package config loads retest settings from defaults, RETEST_* environment
// variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key when reading the environment.
const EnvPrefix = "RETEST"

// Config holds all retest configuration values.
type Config struct {
	// Command is the test command, split with shell quoting rules.
	Command string `mapstructure:"command"`

	// Ext is the file suffix (with leading dot) whose changes trigger a run.
	Ext string `mapstructure:"ext"`

	// Debounce is the settle window used to batch change events.
	Debounce time.Duration `mapstructure:"debounce"`

	// ClearLines is the number of blank lines printed before each run.
	ClearLines int `mapstructure:"clear_lines"`

	// OnDelete makes deletions of matching files trigger a run.
	OnDelete bool `mapstructure:"on_delete"`

	// Ignore lists glob patterns for directories skipped during enumeration.
	Ignore []string `mapstructure:"ignore"`

	// Env lists KEY=VALUE assignments added to the test command's environment.
	Env []string `mapstructure:"env"`

	// Debug enables debug messages.
	Debug bool `mapstructure:"debug"`

	// Verbose echoes each executed command.
	Verbose bool `mapstructure:"verbose"`
}

// flagKeys maps configuration keys to the flag names that set them.
//
//nolint:gochecknoglobals // lookup table
var flagKeys = map[string]string{
	"command":     "cmd",
	"ext":         "ext",
	"debounce":    "debounce",
	"clear_lines": "clear-lines",
	"on_delete":   "on-delete",
	"ignore":      "ignore",
	"env":         "env",
	"debug":       "debug",
	"verbose":     "verbose",
}

// LoadOptions configures how configuration is loaded.
type LoadOptions struct {
	// Flags are bound on top of the environment. Only flags that were
	// explicitly set override other sources.
	Flags *pflag.FlagSet

	// Stderr is where warnings are written.
	// If nil, os.Stderr is used.
	Stderr io.Writer

	// SkipEnv skips reading environment variables.
	SkipEnv bool
}

// Load reads configuration from all sources and returns a Config struct.
// Sources are applied in the following order (later sources override earlier):
//  1. Defaults
//  2. Environment variables (RETEST_COMMAND, RETEST_CLEAR_LINES, ...)
//  3. Flags
//
// If opts is nil, default options are used.
func Load(opts *LoadOptions) (*Config, error) {
	if opts == nil {
		opts = &LoadOptions{}
	}

	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	viperInstance := viper.New()
	setDefaults(viperInstance)

	if !opts.SkipEnv {
		viperInstance.SetEnvPrefix(EnvPrefix)
		viperInstance.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
		viperInstance.AutomaticEnv()
	}

	if opts.Flags != nil {
		for key, name := range flagKeys {
			flag := opts.Flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := viperInstance.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := viperInstance.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	result := cfg.Validate()
	if result.HasWarnings() {
		result.WriteWarnings(opts.Stderr)
	}
	if result.HasErrors() {
		return nil, errors.New(result.ErrorMessage())
	}

	return &cfg, nil
}

// DefaultConfig returns a Config with all default values.
func DefaultConfig() *Config {
	return &Config{
		Command:    DefaultCommand,
		Ext:        DefaultExt,
		Debounce:   DefaultDebounce,
		ClearLines: DefaultClearLines,
		OnDelete:   DefaultOnDelete,
		Debug:      DefaultDebug,
		Verbose:    DefaultVerbose,
	}
}
