package ui

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/muesli/reflow/wordwrap"
	"github.com/samber/lo"
)

// GetFangScheme returns the same light/dark-aware color scheme fang uses.
func GetFangScheme() fang.ColorScheme {
	// This mirrors fang.mustColorscheme(DefaultColorScheme)
	isDark := lipgloss.HasDarkBackground(os.Stdin, os.Stdout)
	return fang.DefaultColorScheme(lipgloss.LightDark(isDark))
}

// UI layout constants.
const (
	defaultMargin     = 2
	fallbackTermWidth = 80
	minWrapWidth      = 20
)

// noColorTERMs are terminals that do not support ANSI color output.
//
//nolint:gochecknoglobals // lookup table
var noColorTERMs = lo.Keyify([]string{
	"dumb",
	"vt100",
	"cygwin",
	"xterm-mono",
})

// ColorEnabled reports whether coloured output should be produced. It honours
// NO_COLOR and a small blacklist of TERM values.
func ColorEnabled() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return TerminalSupportsColor(os.Getenv("TERM"))
}

// TerminalSupportsColor returns true if the given TERM value is not in the
// known-no-color blacklist. An empty term is treated as supporting colors.
func TerminalSupportsColor(termName string) bool {
	if termName == "" {
		return true
	}
	_, blacklisted := noColorTERMs[termName]
	return !blacklisted
}

// TermWidth returns the width of stdout, falling back to $COLUMNS and then 80.
func TermWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if v, err := strconv.Atoi(cols); err == nil && v > 0 {
			return v
		}
	}
	return fallbackTermWidth
}

// Detail is one labelled line of the startup banner.
type Detail struct {
	Label string
	Value string
}

// Banner renders the startup notice: the watched root followed by aligned
// detail lines, wrapped to width.
func Banner(root string, details []Detail, width int, color bool) string {
	if width < minWrapWidth {
		width = minWrapWidth
	}

	titleStyle := lipgloss.NewStyle()
	labelStyle := lipgloss.NewStyle()
	if color {
		scheme := GetFangScheme()
		titleStyle = titleStyle.Bold(true).Foreground(scheme.Program)
		labelStyle = labelStyle.Foreground(scheme.Flag)
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(wordwrap.String(fmt.Sprintf("Watching %s ...", root), width)))
	sb.WriteString("\n")

	labelWidth := lo.Max(lo.Map(details, func(d Detail, _ int) int { return len(d.Label) }))
	indent := strings.Repeat(" ", defaultMargin)
	valueIndent := strings.Repeat(" ", defaultMargin+labelWidth+1)
	valueWidth := max(width-len(valueIndent), minWrapWidth)

	for _, d := range details {
		value := wordwrap.String(d.Value, valueWidth)
		value = strings.ReplaceAll(value, "\n", "\n"+valueIndent)
		label := d.Label + strings.Repeat(" ", labelWidth-len(d.Label))
		sb.WriteString(indent + labelStyle.Render(label) + " " + value + "\n")
	}

	return sb.String()
}
