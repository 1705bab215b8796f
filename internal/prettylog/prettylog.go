// Package prettylog installs charmbracelet/log as the process-wide slog
// handler.
package prettylog

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// Setup creates a charmbracelet/log handler writing to w, installs it as
// slog's default and returns both.
func Setup(w io.Writer, debug bool) (*slog.Logger, *log.Logger) {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}

	logHandler := log.NewWithOptions(
		w,
		log.Options{
			Level:           level,
			ReportTimestamp: true,
			ReportCaller:    debug,
			Prefix:          "retest",
		},
	)
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	return logger, logHandler
}
