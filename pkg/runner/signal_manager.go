package runner

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// SignalManager turns SIGINT/SIGTERM into context cancellation and can be
// re-armed after each interrupt, so one Ctrl-C stops the current run
// without ending the session.
type SignalManager struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
}

// NewSignalManager creates a new manager and immediately starts listening for signals.
func NewSignalManager() *SignalManager {
	sm := &SignalManager{}
	sm.Reset()
	return sm
}

// Context returns the current signal context.
func (sm *SignalManager) Context() context.Context {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.ctx
}

// Reset re-arms the signal listener. It does nothing after Stop.
func (sm *SignalManager) Reset() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.stopped {
		return
	}
	if sm.cancel != nil {
		sm.cancel()
	}
	sm.ctx, sm.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Stop permanently stops the signal listener.
func (sm *SignalManager) Stop() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.stopped = true
	if sm.cancel != nil {
		sm.cancel()
	}
}

// OnInterrupt calls fn for every interrupt until done is closed or Stop is
// called, re-arming after each one.
func (sm *SignalManager) OnInterrupt(done <-chan struct{}, fn func()) {
	go func() {
		for {
			ctx := sm.Context()
			select {
			case <-done:
				return
			case <-ctx.Done():
				sm.mu.Lock()
				stopped := sm.stopped
				sm.mu.Unlock()
				if stopped {
					return
				}
				fn()
				sm.Reset()
			}
		}
	}()
}

// CheckRace waits briefly to see if a cancellation follows an input error.
// On some terminals Ctrl-C surfaces as EOF slightly before the signal.
func (sm *SignalManager) CheckRace() {
	ctx := sm.Context()
	if ctx.Err() == nil {
		select {
		case <-ctx.Done():
		case <-time.After(100 * time.Millisecond):
		}
	}
}
