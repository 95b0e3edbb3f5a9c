package workers

import (
	"context"
	"log/slog"

	"courier/domain/event"
)

// TelemetryWorker drains the telemetry side channel and dispatches each event
// to its handlers. Runs off the hot path: the fanout drops telemetry events
// rather than wait for this worker.
type TelemetryWorker struct {
	log       *slog.Logger
	telemetry chan event.Event
	handlers  []event.Handler
}

func NewTelemetryWorker(log *slog.Logger, telemetry chan event.Event, handlers []event.Handler) *TelemetryWorker {
	return &TelemetryWorker{log: log, telemetry: telemetry, handlers: handlers}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping telemetry")
			return nil
		case evt := <-w.telemetry:
			for _, h := range w.handlers {
				h.Handle(evt)
			}
		}
	}
}
