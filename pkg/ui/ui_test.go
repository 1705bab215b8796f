package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerminalSupportsColor(t *testing.T) {
	assert.True(t, TerminalSupportsColor(""))
	assert.True(t, TerminalSupportsColor("xterm-256color"))
	assert.False(t, TerminalSupportsColor("dumb"))
	assert.False(t, TerminalSupportsColor("xterm-mono"))
}

func TestColorEnabledHonoursNoColor(t *testing.T) {
	t.Setenv("TERM", "xterm-256color")
	t.Setenv("NO_COLOR", "")
	assert.False(t, ColorEnabled())
}

func TestBannerPlain(t *testing.T) {
	out := Banner("/work/proj", []Detail{
		{Label: "command", Value: "go test ./..."},
		{Label: "ext", Value: ".go"},
	}, 80, false)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	assert.Equal(t, []string{
		"Watching /work/proj ...",
		"  command go test ./...",
		"  ext     .go",
	}, lines)
}

func TestBannerNoDetails(t *testing.T) {
	out := Banner("/work", nil, 80, false)
	assert.Equal(t, "Watching /work ...\n", out)
}
