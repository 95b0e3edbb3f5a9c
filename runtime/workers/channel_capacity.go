package workers

import (
	"context"
	"log/slog"
	"time"

	"courier/domain/event"
)

// ChannelCapacityWorker periodically reports the fill level of the watched
// channels onto the telemetry channel. Dropped reports are harmless.
type ChannelCapacityWorker struct {
	log       *slog.Logger
	interval  time.Duration
	watched   map[string]chan event.DomainEvent
	telemetry chan event.Event
}

func NewChannelCapacityWorker(log *slog.Logger, interval time.Duration,
	watched map[string]chan event.DomainEvent, telemetry chan event.Event) *ChannelCapacityWorker {
	return &ChannelCapacityWorker{log: log, interval: interval, watched: watched, telemetry: telemetry}
}

func (w *ChannelCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for name, ch := range w.watched {
				report := event.Event{
					Type: event.ChannelCapacityType,
					Payload: event.ChannelCapacity{
						ChannelName: name,
						Length:      len(ch),
						Capacity:    cap(ch),
					},
				}
				select {
				case w.telemetry <- report:
				default:
					w.log.Debug("Capacity report lost")
				}
			}
		}
	}
}
