package runtime

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"courier/domain/event"
)

type noopSink struct {
	name string
}

func (s noopSink) Consume(ctx context.Context, e event.DomainEvent) error {
	return nil
}

func TestRegistry_Subscribe_And_Snapshot(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sessionID1 := uuid.NewString()
	sessionID2 := uuid.NewString()

	// Given no subscriber is connected
	req.Empty(registry.Sinks())

	// When two subscribers connect
	registry.Subscribe(sessionID1, noopSink{name: "one"})
	registry.Subscribe(sessionID2, noopSink{name: "two"})

	// Then both sinks are visible to the fanout
	sinks := registry.Sinks()
	req.Len(sinks, 2)
	req.Contains(sinks, noopSink{name: "one"})
	req.Contains(sinks, noopSink{name: "two"})
}

func TestRegistry_Resubscribe_Replaces_Sink(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sessionID := uuid.NewString()

	// Given a subscriber that reconnects under the same session
	registry.Subscribe(sessionID, noopSink{name: "stale"})
	registry.Subscribe(sessionID, noopSink{name: "fresh"})

	// Then only the fresh sink remains
	sinks := registry.Sinks()
	req.Len(sinks, 1)
	req.Contains(sinks, noopSink{name: "fresh"})
}

func TestRegistry_Unsubscribe_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sessionID := uuid.NewString()

	registry.Subscribe(sessionID, noopSink{})
	registry.Unsubscribe(sessionID)
	registry.Unsubscribe(sessionID)

	req.Empty(registry.Sinks())
}
