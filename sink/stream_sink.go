package sink

import (
	"context"
	"log/slog"

	"courier/domain/event"
)

// StreamSink bridges the fan-out to one connected subscriber. Consume never
// blocks the fan-out: when the buffer is full the event is dropped and the
// subscriber is expected to refetch the transcript on its next selection.
type StreamSink struct {
	Events chan event.DomainEvent
	log    *slog.Logger
	onDrop func()
}

func NewStreamSink(log *slog.Logger, bufferSize int, onDrop func()) *StreamSink {
	return &StreamSink{
		Events: make(chan event.DomainEvent, bufferSize),
		log:    log,
		onDrop: onDrop,
	}
}

// Consume is called by the fanout worker.
// The connection handler drains Events and pushes them onto the wire.
func (s *StreamSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.log.Debug("subscriber buffer full, dropping event")
		if s.onDrop != nil {
			s.onDrop()
		}
		return nil
	}
}
