package observability

import (
	"runtime"
	"sync"
	"sync/atomic"

	"courier/domain/event"
)

// Stats is the snapshot served by the monitoring endpoint.
type Stats struct {
	MessagesStored  uint64  `json:"messages_stored"`
	DeliveryDrops   uint64  `json:"delivery_drops"`
	EventsFannedOut uint64  `json:"events_fanned_out"`
	DropsReported   uint64  `json:"drops_reported"`
	Subscribers     int64   `json:"subscribers"`
	CPUPercent      float64 `json:"cpu_percent"`
	RSSBytes        uint64  `json:"rss_bytes"`
	AllocMemMb      uint64  `json:"alloc_mem_mb"`
	NumGC           uint32  `json:"num_gc"`
}

// Monitor aggregates runtime telemetry. Counters are atomic; the telemetry
// handlers tally per-type events into the shared Counter; the system sampler
// fills in process-level figures on its own schedule.
type Monitor struct {
	mu             sync.RWMutex
	messagesStored atomic.Uint64
	deliveryDrops  atomic.Uint64
	subscribers    atomic.Int64
	cpuPercent     float64
	rssBytes       uint64
	events         *event.Counter
}

func NewMonitor() *Monitor {
	return &Monitor{events: event.NewCounter()}
}

// Events is the per-type tally fed by the telemetry handlers.
func (m *Monitor) Events() *event.Counter {
	return m.events
}

func (m *Monitor) IncrMessagesStored() {
	m.messagesStored.Add(1)
}

func (m *Monitor) IncrDeliveryDrops() {
	m.deliveryDrops.Add(1)
}

func (m *Monitor) SubscriberConnected() {
	m.subscribers.Add(1)
}

func (m *Monitor) SubscriberDisconnected() {
	m.subscribers.Add(-1)
}

func (m *Monitor) SetProcessStats(cpuPercent float64, rssBytes uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cpuPercent = cpuPercent
	m.rssBytes = rssBytes
}

func (m *Monitor) Snapshot() Stats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m.mu.RLock()
	cpu, rss := m.cpuPercent, m.rssBytes
	m.mu.RUnlock()

	return Stats{
		MessagesStored:  m.messagesStored.Load(),
		DeliveryDrops:   m.deliveryDrops.Load(),
		EventsFannedOut: m.events.Get(event.MessageStoredType),
		DropsReported:   m.events.Get(event.DeliveryDroppedType),
		Subscribers:     m.subscribers.Load(),
		CPUPercent:      cpu,
		RSSBytes:        rss,
		AllocMemMb:      mem.Alloc / 1024 / 1024,
		NumGC:           mem.NumGC,
	}
}
