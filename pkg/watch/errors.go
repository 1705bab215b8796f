package watch

import (
	"errors"
	"fmt"
)

var (
	// ErrInitFailed is returned when the underlying notification resource
	// cannot be created.
	ErrInitFailed = errors.New("watch service init failed")

	// ErrClosed is returned by a Service that has been shut down.
	ErrClosed = errors.New("watch service closed")

	// ErrInterrupted is returned by WaitForEvents when its context is
	// cancelled while blocked. Callers treat it as "no events this cycle".
	ErrInterrupted = errors.New("wait for events interrupted")
)

// RegisterError reports a directory that could not be watched.
type RegisterError struct {
	Path string
	Err  error
}

func (e *RegisterError) Error() string {
	return fmt.Sprintf("register watch on %s: %v", e.Path, e.Err)
}

func (e *RegisterError) Unwrap() error {
	return e.Err
}

// EnumerationError reports a directory whose listing failed during Walk.
type EnumerationError struct {
	Path string
	Err  error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("list directory %s: %v", e.Path, e.Err)
}

func (e *EnumerationError) Unwrap() error {
	return e.Err
}

// WaitError carries an error reported by the notification backend while
// waiting for events.
type WaitError struct {
	Err error
}

func (e *WaitError) Error() string {
	return fmt.Sprintf("wait for events: %v", e.Err)
}

func (e *WaitError) Unwrap() error {
	return e.Err
}
