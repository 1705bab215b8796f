package rerun

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yaklabco/retest/pkg/watch"
)

func startWatching(t *testing.T, root string, runner Runner, settle time.Duration) (*Controller, *ShutdownFlag, context.CancelFunc, <-chan error) {
	t.Helper()

	svc, err := watch.NewService(watch.WithSettle(settle))
	require.NoError(t, err)
	t.Cleanup(svc.Shutdown)

	require.NoError(t, watch.Walk(root, func(dir string) error {
		_, err := svc.Register(dir, watch.AllOps)
		return err
	}))

	flag := &ShutdownFlag{}
	ctx, cancel := context.WithCancel(t.Context())
	ctrl := NewController(svc, runner, root, flag, WithTrigger(SourceSuffix(".ext", DefaultTriggerKinds)))

	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	require.Eventually(t, func() bool { return ctrl.State() == Waiting }, 2*time.Second, 5*time.Millisecond)
	return ctrl, flag, cancel, done
}

func stopWatching(t *testing.T, flag *ShutdownFlag, cancel context.CancelFunc, done <-chan error) {
	t.Helper()

	flag.Set()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run loop did not stop")
	}
}

func TestChangeTriggeredRerun(t *testing.T) {
	proj := t.TempDir()
	src := filepath.Join(proj, "src")
	require.NoError(t, os.Mkdir(src, 0o755))

	runner := &fakeRunner{}
	_, flag, cancel, done := startWatching(t, proj, runner, 100*time.Millisecond)

	// A new matching file in a subdirectory triggers exactly one run in the root.
	require.NoError(t, os.WriteFile(filepath.Join(src, "lib.ext"), []byte("fn main() {}"), 0o644))
	require.Eventually(t, func() bool { return runner.count() == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool { return runner.count() > 1 }, 300*time.Millisecond, 20*time.Millisecond)

	// Non-matching suffix: nothing.
	require.NoError(t, os.WriteFile(filepath.Join(src, "readme.md"), []byte("# proj"), 0o644))
	assert.Never(t, func() bool { return runner.count() > 1 }, 400*time.Millisecond, 20*time.Millisecond)

	// Deletion is not a trigger kind by default.
	require.NoError(t, os.Remove(filepath.Join(src, "lib.ext")))
	assert.Never(t, func() bool { return runner.count() > 1 }, 400*time.Millisecond, 20*time.Millisecond)

	stopWatching(t, flag, cancel, done)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Equal(t, []string{proj}, runner.dirs)
}

func TestInterruptWhileIdle(t *testing.T) {
	proj := t.TempDir()
	runner := &fakeRunner{}
	_, flag, cancel, done := startWatching(t, proj, runner, 100*time.Millisecond)

	stopWatching(t, flag, cancel, done)
	assert.Zero(t, runner.count())
}

func TestChangeRunsRealProcess(t *testing.T) {
	proj := t.TempDir()
	runner, out := newTestRunner(t, helperCommand("-stdout", "ran"))
	ctrl, flag, cancel, done := startWatching(t, proj, runner, 100*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(proj, "main.ext"), []byte("x"), 0o644))
	require.Eventually(t, func() bool { return ctrl.Runs() == 1 && ctrl.State() == Waiting },
		3*time.Second, 10*time.Millisecond)

	stopWatching(t, flag, cancel, done)
	assert.Equal(t, "ran\n", out.String())
}

func TestInterruptWhileCollectingBatch(t *testing.T) {
	proj := t.TempDir()
	runner := &fakeRunner{}
	ctrl, flag, cancel, done := startWatching(t, proj, runner, 2*time.Second)

	require.NoError(t, os.WriteFile(filepath.Join(proj, "a.ext"), []byte("x"), 0o644))
	// Well inside the settle window: the first event is in, the batch is not.
	time.Sleep(300 * time.Millisecond)

	stopWatching(t, flag, cancel, done)
	assert.Zero(t, runner.count())
	assert.Zero(t, ctrl.Runs())
	assert.Equal(t, ShuttingDown, ctrl.State())
}
