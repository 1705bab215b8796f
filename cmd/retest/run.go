// Package retest wires configuration, the watch service and the rerun loop
// into the retest command.
package retest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yaklabco/retest/config"
	"github.com/yaklabco/retest/internal/exitcode"
	"github.com/yaklabco/retest/internal/log"
	"github.com/yaklabco/retest/internal/prettylog"
	"github.com/yaklabco/retest/pkg/rerun"
	"github.com/yaklabco/retest/pkg/ui"
	"github.com/yaklabco/retest/pkg/watch"
)

// RunParams carries everything Run needs from the command line.
type RunParams struct {
	BaseCtx context.Context //nolint:containedctx // handed over from cobra
	Config  *config.Config
	Root    string
	Stdout  io.Writer
	Stderr  io.Writer
}

// ResolveRoot returns arg unchanged when it is absolute and joined onto cwd
// otherwise.
func ResolveRoot(arg, cwd string) string {
	if filepath.IsAbs(arg) {
		return arg
	}
	return filepath.Join(cwd, arg)
}

// Run watches params.Root until interrupted, re-running the configured test
// command after each qualifying change.
func Run(params RunParams) error {
	cfg := params.Config
	ctx := params.BaseCtx
	if ctx == nil {
		ctx = context.Background()
	}

	logger, _ := prettylog.Setup(params.Stderr, cfg.Debug)

	svc, err := watch.NewService(watch.WithSettle(cfg.Debounce), watch.WithLogger(logger))
	if err != nil {
		return exitcode.Fatalf(1, "%w", err)
	}
	defer svc.Shutdown()

	if err := registerTree(svc, params.Root, cfg.Ignore, logger); err != nil {
		return err
	}

	runner, err := rerun.NewProcessRunner(cfg.Command,
		rerun.WithOutput(params.Stdout, params.Stderr),
		rerun.WithClearLines(cfg.ClearLines),
		rerun.WithVerbose(cfg.Verbose),
		rerun.WithEnv(rerun.EnvMap(cfg.Env)),
		rerun.WithProcessLogger(logger),
	)
	if err != nil {
		return exitcode.Fatalf(1, "%w", err)
	}

	kinds := rerun.DefaultTriggerKinds
	if cfg.OnDelete {
		kinds |= watch.Deleted
	}

	flag := &rerun.ShutdownFlag{}
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := rerun.InstallInterruptHandler(flag, cancel)
	defer stop()

	// Ctrl-C is handled from here on.
	_, _ = io.WriteString(params.Stdout, ui.Banner(params.Root, bannerDetails(cfg, kinds, svc.Len()), ui.TermWidth(), ui.ColorEnabled()))

	ctrl := rerun.NewController(svc, runner, params.Root, flag,
		rerun.WithTrigger(rerun.SourceSuffix(cfg.Ext, kinds)),
		rerun.WithLogger(logger),
	)
	if err := ctrl.Run(waitCtx); err != nil {
		return exitcode.Fatalf(1, "watching %s: %w", params.Root, err)
	}

	_, _ = fmt.Fprintln(params.Stdout, "Shutting down..")
	return nil
}

// registerTree walks root and registers every directory it reaches. Single
// registration failures and an aborted walk are logged; only an empty
// result is fatal.
func registerTree(svc *watch.Service, root string, ignore []string, logger *slog.Logger) error {
	globs, err := watch.CompileIgnore(ignore)
	if err != nil {
		return exitcode.Fatalf(1, "%w", err)
	}

	var registered, failed int
	walkErr := watch.Walk(root, func(dir string) error {
		if _, err := svc.Register(dir, watch.AllOps); err != nil {
			failed++
			logger.Warn("unable to watch directory", log.Path, dir, log.Error, err)
			return nil
		}
		registered++
		return nil
	}, watch.WithIgnore(globs...))
	if walkErr != nil {
		logger.Warn("directory enumeration incomplete", log.Path, root, log.Error, walkErr)
	}

	logger.Info(fmt.Sprintf("registered %d directories (%d failed)", registered, failed),
		log.Count, registered, log.Failed, failed)

	if svc.Len() == 0 {
		return exitcode.Fatalf(1, "no directories could be watched under %s", root)
	}
	return nil
}

func bannerDetails(cfg *config.Config, kinds watch.Op, dirs int) []ui.Detail {
	details := []ui.Detail{
		{Label: "command", Value: cfg.Command},
		{Label: "ext", Value: cfg.Ext},
		{Label: "on", Value: kinds.String()},
		{Label: "dirs", Value: strconv.Itoa(dirs)},
	}
	if len(cfg.Ignore) > 0 {
		details = append(details, ui.Detail{Label: "ignore", Value: strings.Join(cfg.Ignore, " ")})
	}
	return details
}
