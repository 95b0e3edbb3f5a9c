package event

import "sync"

// Type discriminates telemetry events flowing on the side channel.
// These never reach subscribers; they only feed observability handlers.
type Type string

const (
	MessageStoredType   Type = "MESSAGE_STORED"
	DeliveryDroppedType Type = "DELIVERY_DROPPED"
	ChannelCapacityType Type = "CHANNEL_CAPACITY"
)

type Event struct {
	Type    Type
	Payload any
}

// DeliveryDropped reports a subscriber that could not keep up and lost an
// event. Losses are logged and counted, never surfaced to the sender.
type DeliveryDropped struct {
	Subscriber string
}

// ChannelCapacity reports the fill level of an internal channel.
type ChannelCapacity struct {
	ChannelName string
	Length      int
	Capacity    int
}

// Counter is a small concurrent tally keyed by event type, shared between
// telemetry handlers and the monitoring endpoint.
type Counter struct {
	mu     sync.Mutex
	counts map[Type]uint64
}

func NewCounter() *Counter {
	return &Counter{counts: make(map[Type]uint64)}
}

func (c *Counter) Increment(t Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[t]++
}

func (c *Counter) Get(t Type) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[t]
}
