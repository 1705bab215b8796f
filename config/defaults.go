package config

import (
	"github.com/spf13/viper"
	"github.com/yaklabco/retest/pkg/rerun"
	"github.com/yaklabco/retest/pkg/watch"
)

// Default configuration values.
const (
	// DefaultCommand is the test command run on every qualifying change.
	DefaultCommand = rerun.DefaultCommand

	// DefaultExt is the file suffix that triggers a run.
	DefaultExt = rerun.DefaultSuffix

	// DefaultDebounce is the default settle window.
	DefaultDebounce = watch.DefaultSettle

	// DefaultClearLines is the default number of blank lines before a run.
	DefaultClearLines = rerun.DefaultClearLines

	// DefaultOnDelete is the default delete-trigger setting.
	DefaultOnDelete = false

	// DefaultDebug is the default debug setting.
	DefaultDebug = false

	// DefaultVerbose is the default verbose setting.
	DefaultVerbose = false
)

// setDefaults configures default values in the viper instance.
func setDefaults(viperInstance *viper.Viper) {
	viperInstance.SetDefault("command", DefaultCommand)
	viperInstance.SetDefault("ext", DefaultExt)
	viperInstance.SetDefault("debounce", DefaultDebounce)
	viperInstance.SetDefault("clear_lines", DefaultClearLines)
	viperInstance.SetDefault("on_delete", DefaultOnDelete)
	viperInstance.SetDefault("ignore", []string{})
	viperInstance.SetDefault("env", []string{})
	viperInstance.SetDefault("debug", DefaultDebug)
	viperInstance.SetDefault("verbose", DefaultVerbose)
}
