// Package runtime owns event production and propagation: the append/publish
// sequencing, the subscriber registry, and the supervised worker set.
// It orchestrates the system without containing business rules.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	"courier/contract"
	"courier/domain"
	"courier/domain/event"
	"courier/infrastructure/storage"
	"courier/observability"
	"courier/runtime/workers"
)

type Orchestrator struct {
	// mu serializes append-then-publish so fan-out delivery order always
	// matches append completion order. Conversations never interact, but one
	// serialization point is cheap and keeps the ordering reasoning trivial.
	mu sync.Mutex

	log        *slog.Logger
	supervisor contract.ISupervisor
	registry   contract.IRegistry
	messages   storage.IMessageRepository
	monitor    *observability.Monitor

	permanentSinks []contract.EventSink
	domainEvents   chan event.DomainEvent
	telemetry      chan event.Event

	sinkTimeout          time.Duration
	metricInterval       time.Duration
	lowCapacityThreshold int
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	registry contract.IRegistry, messages storage.IMessageRepository,
	monitor *observability.Monitor, bufferSize int,
	sinkTimeout, metricInterval time.Duration, lowCapacityThreshold int) *Orchestrator {
	return &Orchestrator{
		log:                  log,
		supervisor:           supervisor,
		registry:             registry,
		messages:             messages,
		monitor:              monitor,
		domainEvents:         make(chan event.DomainEvent, bufferSize),
		telemetry:            make(chan event.Event, bufferSize),
		sinkTimeout:          sinkTimeout,
		metricInterval:       metricInterval,
		lowCapacityThreshold: lowCapacityThreshold,
	}
}

// AddSinks registers permanent sinks that observe every event alongside
// connected subscribers (search index, projections). Must be called before Start.
func (o *Orchestrator) AddSinks(sinks ...contract.EventSink) {
	o.permanentSinks = append(o.permanentSinks, sinks...)
}

// Append durably stores a message and then publishes it to the fan-out.
// Storage is authoritative: once the write succeeds the message exists, and a
// full event channel only costs live delivery, never the stored record.
// Subscribers that miss the event pick it up on their next transcript fetch.
func (o *Orchestrator) Append(senderID, recipientID, content, lang string) (domain.Message, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	record, err := o.messages.Append(senderID, recipientID, content, lang)
	if err != nil {
		return domain.Message{}, err
	}
	o.monitor.IncrMessagesStored()

	evt := event.MessageStored{
		ID:          record.ID,
		SenderID:    record.SenderID,
		RecipientID: record.RecipientID,
		Content:     record.Content,
		Lang:        record.Lang,
		At:          record.At,
	}
	select {
	case o.domainEvents <- evt:
	default:
		o.log.Warn(fmt.Sprintf("Event channel full, broadcast skipped for message %d", record.ID))
		o.ReportDrop("broadcast")
	}
	return evt.Message(), nil
}

// ReportDrop records a subscriber that lost an event: counted for the stats
// snapshot and reported on the telemetry channel so the handlers see it too.
// Best effort, like the delivery it accounts for.
func (o *Orchestrator) ReportDrop(subscriber string) {
	o.monitor.IncrDeliveryDrops()
	select {
	case o.telemetry <- event.Event{
		Type:    event.DeliveryDroppedType,
		Payload: event.DeliveryDropped{Subscriber: subscriber},
	}:
	default:
	}
}

// Transcript returns the ordered history between two users, oldest first.
// An empty conversation is a valid empty slice, not an error.
func (o *Orchestrator) Transcript(callerID, peerID string) ([]domain.Message, error) {
	records, err := o.messages.Conversation(callerID, peerID)
	if err != nil {
		return nil, err
	}
	return fromDiskMessages(records), nil
}

// Recent returns the latest messages across all conversations, newest first.
func (o *Orchestrator) Recent(limit int) ([]domain.Message, error) {
	records, err := o.messages.Recent(limit)
	if err != nil {
		return nil, err
	}
	return fromDiskMessages(records), nil
}

func fromDiskMessages(records []storage.DiskMessage) []domain.Message {
	return lo.Map(records, func(item storage.DiskMessage, _ int) domain.Message {
		return domain.Message{
			ID:          item.ID,
			SenderID:    item.SenderID,
			RecipientID: item.RecipientID,
			Content:     item.Content,
			Lang:        item.Lang,
			CreatedAt:   item.At,
		}
	})
}

// RegisterSubscriber connects a sink to the shared broadcast channel.
func (o *Orchestrator) RegisterSubscriber(sessionID string, sink contract.EventSink) {
	o.registry.Subscribe(sessionID, sink)
	o.monitor.SubscriberConnected()
}

// UnregisterSubscriber disconnects a subscriber.
func (o *Orchestrator) UnregisterSubscriber(sessionID string) {
	o.registry.Unsubscribe(sessionID)
	o.monitor.SubscriberDisconnected()
}

// Start registers all workers with the supervisor and blocks until shutdown.
func (o *Orchestrator) Start(ctx context.Context) error {
	handlers := []event.Handler{
		event.NewMessageStoredHandler(o.log, o.monitor.Events()),
		event.NewChannelCapacityHandler(o.log, o.lowCapacityThreshold),
	}

	fanout := workers.NewEventFanout(o.log, o.registry, o.permanentSinks,
		o.domainEvents, o.telemetry, o.sinkTimeout)
	telemetry := workers.NewTelemetryWorker(o.log, o.telemetry, handlers)
	capacity := workers.NewChannelCapacityWorker(o.log, o.metricInterval,
		map[string]chan event.DomainEvent{"domain_events": o.domainEvents}, o.telemetry)
	sysmon := workers.NewSystemMonitorWorker(o.log, o.metricInterval, o.monitor)

	o.supervisor.Add(fanout, telemetry, capacity, sysmon)

	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	return nil
}

// Stop initiates a graceful shutdown: workers observe the canceled context
// and drain what they are currently holding.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
