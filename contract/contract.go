//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"courier/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision, avoiding manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives fanned-out events. Implementations must not block
// indefinitely: the fan-out bounds each delivery with a timeout and a slow
// sink simply misses events.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry tracks the sinks of currently connected subscribers. There is a
// single logical broadcast channel shared by all conversations; sharding by
// conversation key would slot in here without touching the filtering contract
// on the subscriber side.
type IRegistry interface {
	Subscribe(sessionID string, sink EventSink)
	Unsubscribe(sessionID string)
	Sinks() []EventSink
}
