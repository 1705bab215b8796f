// Package version reports the build's version, commit and build time.
package version

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/yaklabco/retest/pkg/ui"
)

// Version is the CLI version. It can be overridden at build time via:
//
//	-ldflags "-X github.com/yaklabco/retest/cmd/retest/version.Version=v0.0.0"
//
// If left as "dev", the version is taken from Go build info.
var Version = "dev" //nolint:gochecknoglobals // Populated by goreleaser ldflags.

// Commit is the git commit hash. It can be overridden at build time via:
//
//	-ldflags "-X github.com/yaklabco/retest/cmd/retest/version.Commit=<commit>"
var Commit = "" //nolint:gochecknoglobals // Populated by goreleaser ldflags.

// BuildDate is the RFC3339 timestamp of the build. It can be overridden via:
//
//	-ldflags "-X github.com/yaklabco/retest/cmd/retest/version.BuildDate=<RFC3339>"
var BuildDate = "" //nolint:gochecknoglobals // Populated by goreleaser ldflags.

// buildSetting returns the value of a vcs.* build setting, or "".
func buildSetting(key string) string {
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		return ""
	}
	for _, s := range bi.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}

// EffectiveVersion returns the best-effort version string for the binary.
// Precedence:
//  1. Version from ldflags, unless it is "dev" or empty.
//  2. Go build info `Main.Version` when installed via `go install module@version`.
//  3. `vcs.revision`, with "-dirty" appended when `vcs.modified=true`.
//  4. "dev".
func EffectiveVersion(_ context.Context) string {
	if v := strings.TrimSpace(Version); v != "" && v != "dev" {
		return v
	}

	if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
		// Builds from a checkout report "(devel)".
		if mv := strings.TrimSpace(bi.Main.Version); mv != "" && mv != "(devel)" {
			return mv
		}
	}

	if rev := buildSetting("vcs.revision"); rev != "" {
		if buildSetting("vcs.modified") == "true" {
			return rev + "-dirty"
		}
		return rev
	}

	return "dev"
}

// EffectiveCommit returns Commit if set, otherwise `vcs.revision`.
func EffectiveCommit(_ context.Context) string {
	if c := strings.TrimSpace(Commit); c != "" {
		return c
	}
	return buildSetting("vcs.revision")
}

// EffectiveBuildTime returns BuildDate, or `vcs.time`, parsed as RFC3339.
func EffectiveBuildTime() (time.Time, bool) {
	for _, raw := range []string{strings.TrimSpace(BuildDate), buildSetting("vcs.time")} {
		if raw == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// versionParts returns the non-empty version, commit and local build time.
func versionParts(ctx context.Context) (string, string, string) {
	var built string
	if t, ok := EffectiveBuildTime(); ok {
		built = t.In(time.Local).Format(time.RFC3339)
	}
	return EffectiveVersion(ctx), EffectiveCommit(ctx), built
}

// OverallVersionString renders "version-commit-buildtime", omitting missing
// parts.
func OverallVersionString(ctx context.Context) string {
	plain := func(strs ...string) string { return strings.Join(strs, " ") }
	return joinParts(ctx, "-", plain, plain, plain)
}

// OverallVersionStringColorized renders the same line with fang-consistent
// colors.
func OverallVersionStringColorized(ctx context.Context) string {
	cs := ui.GetFangScheme()

	versionStyle := lipgloss.NewStyle().Foreground(cs.QuotedString)
	commitStyle := lipgloss.NewStyle().Foreground(cs.Program)
	timeStyle := lipgloss.NewStyle().Foreground(cs.Flag)
	sepStyle := lipgloss.NewStyle().Foreground(cs.Base)

	return joinParts(ctx, sepStyle.Render("-"), versionStyle.Render, commitStyle.Render, timeStyle.Render)
}

func joinParts(ctx context.Context, sep string, renderVersion, renderCommit, renderTime func(...string) string) string {
	ver, commit, built := versionParts(ctx)

	parts := []string{renderVersion(ver)}
	if commit != "" {
		parts = append(parts, renderCommit(commit))
	}
	if built != "" {
		parts = append(parts, renderTime(built))
	}
	return strings.Join(parts, sep)
}
