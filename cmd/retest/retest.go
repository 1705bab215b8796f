package retest

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/yaklabco/retest/cmd/retest/version"
	"github.com/yaklabco/retest/config"
	"github.com/yaklabco/retest/internal/exitcode"
)

const (
	shortDescription = "Retest watches a directory tree and re-runs your tests whenever a source file changes."
)

type rootCmdOptions struct {
	runFunc func(params RunParams) error
}

type Option func(*rootCmdOptions)

// This is intentionally designed to be unusable from outside this package,
// as it exists purely for testing purposes.
func withRunFunc(fn func(params RunParams) error) Option {
	return func(opts *rootCmdOptions) {
		opts.runFunc = fn
	}
}

func NewRootCmd(ctx context.Context, opts ...Option) *cobra.Command {
	rootCmdOpts := &rootCmdOptions{
		runFunc: Run,
	}
	for _, opt := range opts {
		opt(rootCmdOpts)
	}

	rootCmd := &cobra.Command{
		Use:   "retest [flags] <path>",
		Short: shortDescription,
		Example: `	# Re-run "go test ./..." whenever a .go file under the current directory changes
	retest .

	# Use another command and suffix
	retest --cmd "cargo test" --ext .rs ~/src/project

	# Skip vendored and generated directories
	retest -i vendor -i "gen/*" .`,
		Version: version.OverallVersionStringColorized(ctx),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case len(args) == 0:
				return exitcode.Fatalf(1, "missing path to watch; usage: %s", cmd.UseLine())
			case len(args) > 1:
				return exitcode.Fatalf(1, "expected exactly one path to watch, got %d: %v", len(args), args)
			}

			cfg, err := config.Load(&config.LoadOptions{
				Flags:  cmd.Flags(),
				Stderr: cmd.ErrOrStderr(),
			})
			if err != nil {
				return exitcode.Fatalf(1, "%w", err)
			}

			cwd, err := os.Getwd()
			if err != nil {
				return exitcode.Fatalf(1, "failed to get working directory: %w", err)
			}

			return rootCmdOpts.runFunc(RunParams{
				BaseCtx: cmd.Context(),
				Config:  cfg,
				Root:    ResolveRoot(args[0], cwd),
				Stdout:  cmd.OutOrStdout(),
				Stderr:  cmd.ErrOrStderr(),
			})
		},
	}

	// Values are read back through config.Load, which layers them over
	// RETEST_* environment variables.
	flags := rootCmd.Flags()
	flags.StringP("cmd", "c", config.DefaultCommand, "test command to run on every change")
	flags.StringP("ext", "e", config.DefaultExt, "file suffix that triggers a run")
	flags.Duration("debounce", config.DefaultDebounce, "how long to keep collecting changes before running")
	flags.Int("clear-lines", config.DefaultClearLines, "blank lines printed before each run")
	flags.Bool("on-delete", config.DefaultOnDelete, "also re-run when a matching file is deleted")
	flags.StringArrayP("ignore", "i", nil, "glob of directories to skip (repeatable)")
	flags.StringArray("env", nil, "KEY=VALUE added to the test command's environment (repeatable)")
	flags.BoolP("debug", "d", config.DefaultDebug, "turn on debug messages")
	flags.BoolP("verbose", "v", config.DefaultVerbose, "echo each executed command")

	return rootCmd
}

// ExecuteWithFang runs the root Cobra command with Fang-specific options.
// It accepts a context and a root Cobra command as input parameters.
// Returns an error if the command execution fails.
func ExecuteWithFang(ctx context.Context, rootCmd *cobra.Command) error {
	//nolint:wrapcheck // top-level error from cobra, wrapping not needed
	return fang.Execute(
		ctx, rootCmd, fang.WithVersion(rootCmd.Version), fang.WithoutManpage())
}
