package runtime

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"courier/domain/event"
	"courier/infrastructure/storage"
	"courier/observability"
	"courier/runtime/workers"
	"courier/sink"
)

func testOrchestrator(t *testing.T) (*Orchestrator, *observability.Monitor) {
	t.Helper()
	log := slog.Default()

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	messages, err := storage.NewMessageRepository(db, log)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = messages.Close()
	})

	monitor := observability.NewMonitor()
	supervisor := workers.NewSupervisor(log, 50*time.Millisecond)
	orchestrator := NewOrchestrator(log, supervisor, NewRegistry(), messages,
		monitor, 16, time.Second, time.Hour, 4)
	return orchestrator, monitor
}

// The full pipeline: append goes to disk, then the fanout delivers the event
// to a connected subscriber in append completion order.
func TestOrchestrator_Append_Broadcasts_In_Append_Order(t *testing.T) {
	req := require.New(t)
	orchestrator, monitor := testOrchestrator(t)

	stream := sink.NewStreamSink(slog.Default(), 16, nil)
	orchestrator.RegisterSubscriber("session-1", stream)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = orchestrator.Start(ctx)
	}()
	defer orchestrator.Stop()

	first, err := orchestrator.Append("alice", "bob", "first", "en")
	req.NoError(err)
	second, err := orchestrator.Append("bob", "alice", "second", "en")
	req.NoError(err)

	// Both events arrive, in the order the store completed them
	req.Equal(first.ID, nextStored(t, stream).ID)
	req.Equal(second.ID, nextStored(t, stream).ID)

	req.Equal(uint64(2), monitor.Snapshot().MessagesStored)
	req.Equal(int64(1), monitor.Snapshot().Subscribers)
}

func TestOrchestrator_Transcript_Reads_What_Append_Wrote(t *testing.T) {
	req := require.New(t)
	orchestrator, _ := testOrchestrator(t)

	// No fanout running: Append still succeeds because the stored record never
	// depends on live delivery.
	_, err := orchestrator.Append("alice", "bob", "hello", "")
	req.NoError(err)
	_, err = orchestrator.Append("bob", "alice", "hi", "")
	req.NoError(err)

	transcript, err := orchestrator.Transcript("bob", "alice")
	req.NoError(err)
	req.Len(transcript, 2)
	req.Equal("hello", transcript[0].Content)
	req.Equal("hi", transcript[1].Content)

	recent, err := orchestrator.Recent(1)
	req.NoError(err)
	req.Len(recent, 1)
	req.Equal("hi", recent[0].Content)
}

func TestOrchestrator_Unsubscribed_Sink_Stops_Receiving(t *testing.T) {
	req := require.New(t)
	orchestrator, monitor := testOrchestrator(t)

	stream := sink.NewStreamSink(slog.Default(), 16, nil)
	orchestrator.RegisterSubscriber("session-1", stream)
	orchestrator.UnregisterSubscriber("session-1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = orchestrator.Start(ctx)
	}()
	defer orchestrator.Stop()

	_, err := orchestrator.Append("alice", "bob", "unseen", "")
	req.NoError(err)

	select {
	case <-stream.Events:
		req.Fail("Unsubscribed sink should not receive events")
	case <-time.After(200 * time.Millisecond):
	}
	req.Equal(int64(0), monitor.Snapshot().Subscribers)
}

// A subscriber that cannot keep up loses the event, and the loss is visible:
// the atomic drop counter moves and the telemetry handlers tally a
// delivery-drop report into the stats snapshot.
func TestOrchestrator_Drop_Reports_Reach_Stats(t *testing.T) {
	req := require.New(t)
	orchestrator, monitor := testOrchestrator(t)

	// Zero buffer and no reader: every delivery to this sink is dropped
	full := sink.NewStreamSink(slog.Default(), 0, func() {
		orchestrator.ReportDrop("session-1")
	})
	orchestrator.RegisterSubscriber("session-1", full)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = orchestrator.Start(ctx)
	}()
	defer orchestrator.Stop()

	_, err := orchestrator.Append("alice", "bob", "lost in transit", "")
	req.NoError(err)

	req.Eventually(func() bool {
		stats := monitor.Snapshot()
		return stats.DeliveryDrops == 1 &&
			stats.DropsReported == 1 &&
			stats.EventsFannedOut >= 1
	}, time.Second, 10*time.Millisecond)
}

func nextStored(t *testing.T, stream *sink.StreamSink) event.MessageStored {
	t.Helper()
	select {
	case evt := <-stream.Events:
		stored, ok := evt.(event.MessageStored)
		require.True(t, ok)
		return stored
	case <-time.After(time.Second):
		t.Fatal("no event delivered in time")
		return event.MessageStored{}
	}
}
