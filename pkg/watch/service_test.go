package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	svc, err := NewService(opts...)
	require.NoError(t, err)
	t.Cleanup(svc.Shutdown)
	return svc
}

// waitBatch calls WaitForEvents with a deadline so a missing event fails the
// test instead of hanging it.
func waitBatch(t *testing.T, svc *Service) []ChangeEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 3*time.Second)
	defer cancel()
	batch, err := svc.WaitForEvents(ctx)
	require.NoError(t, err)
	return batch
}

func TestRegisterRequiresDirectory(t *testing.T) {
	svc := newTestService(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "f.go")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := svc.Register(file, AllOps)
	var regErr *RegisterError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, file, regErr.Path)

	_, err = svc.Register(filepath.Join(dir, "missing"), AllOps)
	require.ErrorAs(t, err, &regErr)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = svc.Register(dir, 0)
	require.ErrorAs(t, err, &regErr)

	assert.Zero(t, svc.Len())
}

func TestRegisterTwiceKeepsOneRegistration(t *testing.T) {
	svc := newTestService(t)
	dir := t.TempDir()

	first, err := svc.Register(dir, AllOps)
	require.NoError(t, err)
	second, err := svc.Register(dir, Modified)
	require.NoError(t, err)

	assert.NotEqual(t, Handle{}, first, "registration yields a non-zero handle")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, svc.Len())
}

func TestShutdownIsIdempotent(t *testing.T) {
	svc, err := NewService()
	require.NoError(t, err)
	_, err = svc.Register(t.TempDir(), AllOps)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		svc.Shutdown()
		svc.Shutdown()
	})
	assert.Zero(t, svc.Len())

	_, err = svc.Register(t.TempDir(), AllOps)
	require.ErrorIs(t, err, ErrClosed)

	_, err = svc.WaitForEvents(t.Context())
	require.ErrorIs(t, err, ErrClosed)
}

func TestWaitForEventsInterrupted(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Register(t.TempDir(), AllOps)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	batch, err := svc.WaitForEvents(ctx)
	require.ErrorIs(t, err, ErrInterrupted)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, batch)
}

func TestWaitForEventsReportsCreatedFile(t *testing.T) {
	svc := newTestService(t, WithSettle(100*time.Millisecond))
	dir := t.TempDir()
	_, err := svc.Register(dir, AllOps)
	require.NoError(t, err)

	path := filepath.Join(dir, "lib.go")
	require.NoError(t, os.WriteFile(path, []byte("package lib"), 0o644))

	batch := waitBatch(t, svc)
	require.NotEmpty(t, batch)
	assert.Equal(t, ChangeEvent{Path: path, IsDir: false, Kind: Created}, batch[0])
	for _, ev := range batch {
		assert.Equal(t, path, ev.Path)
		assert.NotEqual(t, Deleted, ev.Kind)
	}
}

func TestWaitForEventsReportsDirectories(t *testing.T) {
	svc := newTestService(t)
	dir := t.TempDir()
	_, err := svc.Register(dir, AllOps)
	require.NoError(t, err)

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	batch := waitBatch(t, svc)
	require.NotEmpty(t, batch)
	assert.Equal(t, ChangeEvent{Path: sub, IsDir: true, Kind: Created}, batch[0])
}

func TestWaitForEventsReportsDeletion(t *testing.T) {
	svc := newTestService(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.go")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	_, err := svc.Register(dir, AllOps)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	batch := waitBatch(t, svc)
	require.NotEmpty(t, batch)
	assert.Equal(t, ChangeEvent{Path: path, IsDir: false, Kind: Deleted}, batch[0])
}

func TestWaitForEventsHonoursMask(t *testing.T) {
	svc := newTestService(t, WithSettle(0))
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.go")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	_, err := svc.Register(dir, Created|Modified)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	ctx, cancel := context.WithTimeout(t.Context(), 300*time.Millisecond)
	defer cancel()
	batch, err := svc.WaitForEvents(ctx)
	require.ErrorIs(t, err, ErrInterrupted, "deletion is outside the mask, got %v", batch)

	other := filepath.Join(dir, "new.go")
	require.NoError(t, os.WriteFile(other, nil, 0o644))
	batch = waitBatch(t, svc)
	require.NotEmpty(t, batch)
	assert.Equal(t, other, batch[0].Path)
}

func TestWaitForEventsBatchesBurst(t *testing.T) {
	svc := newTestService(t, WithSettle(200*time.Millisecond))
	dir := t.TempDir()
	_, err := svc.Register(dir, AllOps)
	require.NoError(t, err)

	names := []string{"a.go", "b.go", "c.go"}
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	batch := waitBatch(t, svc)
	seen := map[string]bool{}
	for _, ev := range batch {
		seen[ev.Name()] = true
	}
	for _, name := range names {
		assert.True(t, seen[name], "expected %s in batch %v", name, batch)
	}
}

func TestWaitForEventsInterruptedWhileSettling(t *testing.T) {
	svc := newTestService(t, WithSettle(2*time.Second))
	dir := t.TempDir()
	_, err := svc.Register(dir, AllOps)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.go"), nil, 0o644))
	time.AfterFunc(300*time.Millisecond, cancel)

	start := time.Now()
	batch, err := svc.WaitForEvents(ctx)
	require.ErrorIs(t, err, ErrInterrupted)
	assert.Nil(t, batch)
	assert.Less(t, time.Since(start), 2*time.Second, "returned before the settle window closed")
}
