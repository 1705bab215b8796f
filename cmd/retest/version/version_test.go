package version

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveVersionFromLdflags(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	Version = " v1.2.3 "
	assert.Equal(t, "v1.2.3", EffectiveVersion(t.Context()))
}

func TestEffectiveVersionFallback(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	Version = "dev"
	assert.NotEmpty(t, EffectiveVersion(t.Context()))
}

func TestEffectiveCommitFromLdflags(t *testing.T) {
	orig := Commit
	t.Cleanup(func() { Commit = orig })

	Commit = "abc1234"
	assert.Equal(t, "abc1234", EffectiveCommit(t.Context()))
}

func TestEffectiveBuildTime(t *testing.T) {
	orig := BuildDate
	t.Cleanup(func() { BuildDate = orig })

	BuildDate = "2026-03-01T12:30:00Z"
	got, ok := EffectiveBuildTime()
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC), got.UTC())

	BuildDate = "2026-03-01T12:30:00.123456789Z"
	got, ok = EffectiveBuildTime()
	assert.True(t, ok)
	assert.Equal(t, 123456789, got.Nanosecond())
}

func TestOverallVersionString(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, BuildDate
	t.Cleanup(func() { Version, Commit, BuildDate = origVersion, origCommit, origDate })

	Version, Commit, BuildDate = "v0.3.0", "deadbeef", "2026-03-01T12:30:00Z"

	got := OverallVersionString(t.Context())
	assert.True(t, strings.HasPrefix(got, "v0.3.0-deadbeef-2026-03-01T"), got)
}
