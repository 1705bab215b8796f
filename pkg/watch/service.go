package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/yaklabco/retest/internal/log"
)

const (
	// DefaultSettle is how long WaitForEvents keeps collecting after the
	// first event. Editors and os.WriteFile emit create+write pairs a few
	// microseconds apart; both belong in one batch.
	DefaultSettle = 50 * time.Millisecond

	// maxSettleRounds bounds how long a batch stays open, in settle windows,
	// when changes never stop arriving.
	maxSettleRounds = 20
)

// Handle identifies one registered directory. It is opaque to callers; the
// zero Handle is never returned by a successful Register.
type Handle struct {
	id uint64
}

type registration struct {
	handle Handle
	mask   Op
}

// Service is a synchronous wrapper over fsnotify. Directories are registered
// once and released together by Shutdown; there is no per-directory removal.
type Service struct {
	fsw    *fsnotify.Watcher
	settle time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	watches map[string]registration
	nextID  uint64

	closed       atomic.Bool
	shutdownOnce sync.Once
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithSettle sets the coalescing window used by WaitForEvents. Zero means
// only events already queued are added to a batch.
func WithSettle(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.settle = d
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService acquires the notification resource.
func NewService(opts ...ServiceOption) (*Service, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitFailed, err)
	}

	svc := &Service{
		fsw:     fsw,
		settle:  DefaultSettle,
		watches: make(map[string]registration),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.settle < 0 {
		svc.settle = 0
	}

	return svc, nil
}

// Register starts watching the directory at path for the kinds in mask.
// Registering a path twice returns the existing handle.
func (s *Service) Register(path string, mask Op) (Handle, error) {
	if s.closed.Load() {
		return Handle{}, &RegisterError{Path: path, Err: ErrClosed}
	}
	if mask&AllOps == 0 {
		return Handle{}, &RegisterError{Path: path, Err: errors.New("empty event mask")}
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return Handle{}, &RegisterError{Path: path, Err: err}
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return Handle{}, &RegisterError{Path: absPath, Err: err}
	}
	if !info.IsDir() {
		return Handle{}, &RegisterError{Path: absPath, Err: errors.New("not a directory")}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if reg, ok := s.watches[absPath]; ok {
		return reg.handle, nil
	}

	if err := s.fsw.Add(absPath); err != nil {
		return Handle{}, &RegisterError{Path: absPath, Err: err}
	}

	s.nextID++
	reg := registration{handle: Handle{id: s.nextID}, mask: mask & AllOps}
	s.watches[absPath] = reg

	s.logger.Debug("registered watch", log.Path, absPath, log.Mask, reg.mask.String())

	return reg.handle, nil
}

// Len returns the number of active registrations.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watches)
}

// WaitForEvents blocks until at least one event is available and returns the
// batch in delivery order. Cancelling ctx while blocked returns an error
// wrapping ErrInterrupted.
func (s *Service) WaitForEvents(ctx context.Context) ([]ChangeEvent, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var batch []ChangeEvent
	for len(batch) == 0 {
		select {
		case <-ctx.Done():
			return nil, interrupted(ctx)
		case ev, ok := <-s.fsw.Events:
			if !ok {
				return nil, ErrClosed
			}
			if change, keep := s.translate(ev); keep {
				batch = append(batch, change)
			}
		case err, ok := <-s.fsw.Errors:
			if !ok {
				return nil, ErrClosed
			}
			return nil, &WaitError{Err: err}
		}
	}

	return s.collect(ctx, batch)
}

// collect extends batch with events arriving within the settle window.
// Cancelling ctx before the window closes discards the batch.
func (s *Service) collect(ctx context.Context, batch []ChangeEvent) ([]ChangeEvent, error) {
	if ctx.Err() != nil {
		return nil, interrupted(ctx)
	}
	if s.settle == 0 {
		for {
			select {
			case ev, ok := <-s.fsw.Events:
				if !ok {
					return batch, nil
				}
				if change, keep := s.translate(ev); keep {
					batch = append(batch, change)
				}
			default:
				return batch, nil
			}
		}
	}

	timer := time.NewTimer(s.settle)
	defer timer.Stop()
	deadline := time.NewTimer(maxSettleRounds * s.settle)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, interrupted(ctx)
		case <-timer.C:
			return settled(ctx, batch)
		case <-deadline.C:
			return settled(ctx, batch)
		case ev, ok := <-s.fsw.Events:
			if !ok {
				return batch, nil
			}
			if change, keep := s.translate(ev); keep {
				batch = append(batch, change)
			}
			timer.Reset(s.settle)
		case err, ok := <-s.fsw.Errors:
			if !ok {
				return batch, nil
			}
			s.logger.Debug("watch error while collecting batch", log.Error, err)
			return batch, nil
		}
	}
}

// settled returns batch unless ctx was cancelled in the same instant the
// window closed.
func settled(ctx context.Context, batch []ChangeEvent) ([]ChangeEvent, error) {
	if ctx.Err() != nil {
		return nil, interrupted(ctx)
	}
	return batch, nil
}

func interrupted(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrInterrupted, context.Cause(ctx))
}

func (s *Service) translate(ev fsnotify.Event) (ChangeEvent, bool) {
	kind := opFromFsnotify(ev.Op)
	if kind == 0 {
		return ChangeEvent{}, false
	}

	s.mu.Lock()
	parent, watched := s.watches[filepath.Dir(ev.Name)]
	_, wasDir := s.watches[ev.Name]
	s.mu.Unlock()

	// Removal of a registered directory is reported against the directory
	// itself as well as its parent; use whichever mask we have.
	mask := parent.mask
	if !watched {
		mask = AllOps
	}
	if mask&kind == 0 {
		return ChangeEvent{}, false
	}

	isDir := wasDir
	if kind != Deleted {
		if info, err := os.Lstat(ev.Name); err == nil {
			isDir = info.IsDir()
		}
	}

	return ChangeEvent{Path: ev.Name, IsDir: isDir, Kind: kind}, true
}

// Shutdown releases every registration and the underlying resource. It is
// safe to call more than once and never fails.
func (s *Service) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.closed.Store(true)

		s.mu.Lock()
		count := len(s.watches)
		clear(s.watches)
		s.mu.Unlock()

		if err := s.fsw.Close(); err != nil {
			s.logger.Debug("closing watch service", log.Error, err)
		}
		s.logger.Debug("released watches", log.Count, count)
	})
}
