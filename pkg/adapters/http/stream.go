package http

import (
	"log/slog"
	"sync"

	"github.com/aretw0/tendril/pkg/runner"
)

// streamBuffer is the per-subscriber backlog before events are dropped.
const streamBuffer = 64

// StreamManager fans runner events out to the SSE subscribers of a session.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan runner.Event]struct{}
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan runner.Event]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a subscriber. The returned func unregisters it and
// closes the channel.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan runner.Event, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan runner.Event, streamBuffer)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan runner.Event]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			subs := sm.subscribers[sessionID]
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		})
	}
}

// Broadcast delivers ev to every subscriber of sessionID without blocking.
// Slow subscribers lose events.
func (sm *StreamManager) Broadcast(sessionID string, ev runner.Event) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- ev:
		default:
			sm.logger.Warn("sse client buffer full, dropping event", "session_id", sessionID, "type", ev.Type)
		}
	}
}

// Subscribers reports how many clients follow sessionID.
func (sm *StreamManager) Subscribers(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sessionID])
}
