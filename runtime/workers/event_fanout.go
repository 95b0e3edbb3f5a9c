package workers

import (
	"context"
	"log/slog"
	"time"

	"courier/contract"
	"courier/domain/event"
)

// EventFanout broadcasts stored-message events to every connected subscriber
// plus the permanent sinks (search index, telemetry tap).
//
// Delivery is best-effort with no guarantees regarding durability or retries:
// a disconnected subscriber misses the event and recovers by refetching the
// transcript. A single fanout goroutine drains the event channel, so events
// reach sinks in the exact order the store completed them.
//
// EventFanout is safe for concurrent use by multiple goroutines.
type EventFanout struct {
	log         *slog.Logger
	registry    contract.IRegistry
	permanent   []contract.EventSink
	events      chan event.DomainEvent
	telemetry   chan event.Event
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, registry contract.IRegistry,
	permanent []contract.EventSink, events chan event.DomainEvent,
	telemetry chan event.Event, sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{
		log:         log,
		registry:    registry,
		permanent:   permanent,
		events:      events,
		telemetry:   telemetry,
		sinkTimeout: sinkTimeout,
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		case evt := <-w.events:
			w.Fanout(ctx, evt)
			select {
			case w.telemetry <- event.Event{Type: event.MessageStoredType}:
			default:
				w.log.Debug("Telemetry event lost")
			}
		}
	}
}

// Fanout delivers one event to every sink. Each delivery is bounded by the
// sink timeout so a stuck subscriber cannot stall the others; a sink error
// only costs that sink the event.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	sinks := append(append([]contract.EventSink{}, w.permanent...), w.registry.Sinks()...)
	for _, sink := range sinks {
		deliveryCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(deliveryCtx, evt); err != nil {
			w.log.Warn("sink rejected event", "error", err)
		}
		cancel()
	}
}
