package event

import (
	"log/slog"
)

// MessageStoredHandler tallies every message that made it through the store.
// Useful for the monitoring endpoint and for spotting silent pipeline stalls.
type MessageStoredHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewMessageStoredHandler(log *slog.Logger, counter *Counter) *MessageStoredHandler {
	return &MessageStoredHandler{log: log, counter: counter}
}

func (h *MessageStoredHandler) Handle(event Event) {
	switch event.Type {
	case MessageStoredType:
		h.counter.Increment(MessageStoredType)
	case DeliveryDroppedType:
		h.counter.Increment(DeliveryDroppedType)
		if payload, ok := event.Payload.(DeliveryDropped); ok {
			h.log.Warn("subscriber lost an event", "subscriber", payload.Subscriber)
		}
	}
}
