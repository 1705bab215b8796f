package rerun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/yaklabco/retest/internal/log"
)

const (
	// DefaultCommand is the test command used when none is configured.
	DefaultCommand = "go test ./..."

	// DefaultClearLines is how many blank lines are printed before a run to
	// push the previous run's output off screen.
	DefaultClearLines = 40

	// RootEnvVar is set in the child's environment to the watched root.
	RootEnvVar = "RETEST_ROOT"

	keyValueParts = 2
)

// LaunchError reports a test command that could not be started.
type LaunchError struct {
	Cmd  string
	Args []string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf(`failed to run "%s %s": %v`, e.Cmd, strings.Join(e.Args, " "), e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// ProcessRunner launches the test command as a child process with inherited
// stdio. It implements Runner.
type ProcessRunner struct {
	cmd        string
	args       []string
	env        map[string]string
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	clearLines int
	verbose    bool
	console    func(...any)
	logger     *slog.Logger
}

// ProcessOption configures a ProcessRunner.
type ProcessOption func(*ProcessRunner)

// WithOutput sets the writers the child's stdout and stderr go to.
func WithOutput(stdout, stderr io.Writer) ProcessOption {
	return func(r *ProcessRunner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// WithStdin sets the child's stdin.
func WithStdin(stdin io.Reader) ProcessOption {
	return func(r *ProcessRunner) {
		r.stdin = stdin
	}
}

// WithEnv adds variables to the child's environment. They also take part in
// $VAR expansion of the command line.
func WithEnv(env map[string]string) ProcessOption {
	return func(r *ProcessRunner) {
		r.env = env
	}
}

// WithClearLines sets how many blank lines precede each run.
func WithClearLines(n int) ProcessOption {
	return func(r *ProcessRunner) {
		r.clearLines = max(n, 0)
	}
}

// WithVerbose echoes each executed command to the console logger.
func WithVerbose(verbose bool) ProcessOption {
	return func(r *ProcessRunner) {
		r.verbose = verbose
	}
}

// WithProcessLogger sets the runner's structured logger.
func WithProcessLogger(logger *slog.Logger) ProcessOption {
	return func(r *ProcessRunner) {
		r.logger = logger
	}
}

// NewProcessRunner parses command with shell quoting rules.
func NewProcessRunner(command string, opts ...ProcessOption) (*ProcessRunner, error) {
	words, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("parsing test command %q: %w", command, err)
	}
	if len(words) == 0 {
		return nil, errors.New("test command is empty")
	}

	runner := &ProcessRunner{
		cmd:        words[0],
		args:       words[1:],
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		clearLines: DefaultClearLines,
		console:    log.Console().Println,
	}
	for _, opt := range opts {
		opt(runner)
	}
	if runner.logger == nil {
		runner.logger = slog.Default()
	}

	return runner, nil
}

// Command returns the parsed command and its arguments.
func (r *ProcessRunner) Command() (string, []string) {
	return r.cmd, append([]string(nil), r.args...)
}

// Start clears the terminal and launches the test command in dir.
func (r *ProcessRunner) Start(_ context.Context, dir string) (Child, error) {
	if r.clearLines > 0 {
		_, _ = io.WriteString(r.stdout, strings.Repeat("\n", r.clearLines))
	}

	env := lo.Assign(r.env, map[string]string{RootEnvVar: dir})
	expand := func(varName string) string {
		if v, ok := env[varName]; ok {
			return v
		}
		return os.Getenv(varName)
	}

	cmd := os.Expand(r.cmd, expand)
	args := lo.Map(r.args, func(arg string, _ int) string {
		return os.Expand(arg, expand)
	})

	// The child is deliberately not bound to ctx: an in-flight run is always
	// allowed to finish.
	theCmd := exec.Command(cmd, args...) //nolint:gosec,noctx // the test command is user-configured
	theCmd.Dir = dir
	theCmd.Env = append(os.Environ(), toAssignments(env)...)
	theCmd.Stdin = r.stdin
	theCmd.Stdout = r.stdout
	theCmd.Stderr = r.stderr

	if r.verbose {
		quoted := lo.Map(args, func(arg string, _ int) string { return fmt.Sprintf("%q", arg) })
		r.console("exec:", cmd, strings.Join(quoted, " "))
	}

	runID := uuid.NewString()
	if err := theCmd.Start(); err != nil {
		return nil, &LaunchError{Cmd: cmd, Args: args, Err: err}
	}
	r.logger.Debug("test run started", log.RunID, runID, log.Cmd, cmd, log.Args, args, log.Dir, dir)

	return &Process{
		cmd:     theCmd,
		id:      runID,
		started: time.Now(),
		logger:  r.logger,
	}, nil
}

// Process is one launched test run.
type Process struct {
	cmd     *exec.Cmd
	id      string
	started time.Time
	logger  *slog.Logger

	exitCode int
}

// Wait blocks until the child exits. A failing or signalled test run is not
// an error; only a failure to await the child is.
func (p *Process) Wait() error {
	err := p.cmd.Wait()
	elapsed := time.Since(p.started).Round(time.Millisecond)
	p.exitCode = ExitStatus(err)

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return fmt.Errorf("awaiting test run %s: %w", p.id, err)
	}

	if !CmdRan(err) {
		p.logger.Warn("test run terminated by signal",
			log.RunID, p.id,
			log.Error, err,
			log.Duration, elapsed,
		)
		return nil
	}

	p.logger.Info("test run finished",
		log.RunID, p.id,
		log.ExitCode, p.exitCode,
		log.Duration, elapsed,
	)
	return nil
}

// CmdRan examines the error to determine if it was generated as a result of a
// command running via os/exec.Command to completion. A nil error or a
// non-zero exit both count as having run; death by signal does not.
func CmdRan(err error) bool {
	if err == nil {
		return true
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.Exited()
	}
	return false
}

// ExitStatus returns the exit status carried by err: 0 for nil, the
// process's code for an *exec.ExitError, 1 otherwise.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) && ee.ExitCode() >= 0 {
		return ee.ExitCode()
	}
	return 1
}

func toAssignments(env map[string]string) []string {
	return lo.MapToSlice(env, func(k, v string) string {
		return k + "=" + v
	})
}

// EnvMap turns KEY=VALUE assignments into a map. Malformed entries are
// dropped.
func EnvMap(assignments []string) map[string]string {
	return lo.FromPairs(lo.FilterMap(assignments, func(item string, _ int) (lo.Entry[string, string], bool) {
		parts := strings.SplitN(item, "=", keyValueParts)
		if len(parts) != keyValueParts {
			return lo.Entry[string, string]{}, false
		}
		return lo.Entry[string, string]{Key: parts[0], Value: parts[1]}, true
	}))
}
