package rerun

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// ShutdownFlag is set once when the process is asked to stop and is never
// reset. The signal bridge writes it; the run loop reads it.
type ShutdownFlag struct {
	set atomic.Bool
}

// Set raises the flag. Calling it more than once has no further effect.
func (f *ShutdownFlag) Set() {
	f.set.Store(true)
}

// IsSet reports whether the flag has been raised.
func (f *ShutdownFlag) IsSet() bool {
	return f.set.Load()
}

// InstallInterruptHandler arranges for an interrupt or SIGTERM to raise flag
// and call wake, which should cancel the context the run loop is blocked on.
// Nothing else happens on the signal path. The returned stop func restores
// default signal handling and may be called more than once.
func InstallInterruptHandler(flag *ShutdownFlag, wake context.CancelFunc) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-sigCh:
				flag.Set()
				if wake != nil {
					wake()
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(sigCh)
			close(done)
		})
	}
}
