package runtime

import (
	"sync"

	"courier/contract"
)

// Registry tracks the event sinks of currently connected subscribers.
// All conversations share one logical broadcast channel, so membership is
// flat: every registered sink sees every event and filters locally by
// conversation key. Sharding by conversation would live here if the flat
// channel ever became the bottleneck; subscribers would not notice.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]contract.EventSink
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]contract.EventSink)}
}

// Subscribe registers the sink of a freshly connected subscriber.
// Re-subscribing under the same session ID replaces the previous sink,
// which covers the reconnect-after-drop case.
func (r *Registry) Subscribe(sessionID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = sink
}

// Unsubscribe drops a session. Idempotent: disconnect paths may race.
func (r *Registry) Unsubscribe(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// Sinks returns a snapshot of all connected sinks. The copy keeps the lock
// out of the delivery loop.
func (r *Registry) Sinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sinks := make([]contract.EventSink, 0, len(r.sessions))
	for _, sink := range r.sessions {
		sinks = append(sinks, sink)
	}
	return sinks
}
