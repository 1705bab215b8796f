package rerun

import (
	"strings"

	"github.com/yaklabco/retest/pkg/watch"
)

// Trigger decides whether a change event should cause a test run.
type Trigger func(watch.ChangeEvent) bool

// DefaultSuffix is the source-file suffix watched when none is configured.
const DefaultSuffix = ".go"

// DefaultTriggerKinds are the change kinds that start a run by default.
// Deletions are reported by the watch service but only trigger a run when
// explicitly enabled.
const DefaultTriggerKinds = watch.Modified | watch.Created

// SourceSuffix returns a Trigger accepting non-directory events of one of
// kinds whose name ends in suffix.
func SourceSuffix(suffix string, kinds watch.Op) Trigger {
	return func(ev watch.ChangeEvent) bool {
		return !ev.IsDir && kinds&ev.Kind != 0 && strings.HasSuffix(ev.Name(), suffix)
	}
}
