package log

import (
	"io"
	"log"
	"os"
	"sync"

	"charm.land/lipgloss/v2"
	"github.com/yaklabco/retest/pkg/ui"
)

const consolePrefix = "[RETEST] "

//nolint:gochecknoglobals // built once, unchanged for the process lifetime.
var console = sync.OnceValue(func() *log.Logger {
	return NewConsole(os.Stderr, ui.ColorEnabled())
})

// Console returns the unstructured logger used for `--verbose` echo of
// executed commands.
func Console() *log.Logger {
	return console()
}

// NewConsole builds a console logger writing to w. The prefix is coloured
// with the fang flag colour when color is true.
func NewConsole(w io.Writer, color bool) *log.Logger {
	prefix := consolePrefix
	if color {
		prefix = lipgloss.NewStyle().Foreground(ui.GetFangScheme().Flag).Render(consolePrefix)
	}
	return log.New(w, prefix, 0)
}
