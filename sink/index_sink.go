package sink

import (
	"context"
	"log/slog"

	"courier/domain/event"
	"courier/infrastructure/storage"
)

// IndexSink feeds stored messages into the full-text index. It rides the same
// fan-out as live subscribers, so indexing failures cost search freshness but
// never block delivery or storage.
type IndexSink struct {
	search *storage.SearchRepository
	log    *slog.Logger
}

func NewIndexSink(search *storage.SearchRepository, log *slog.Logger) IndexSink {
	return IndexSink{search: search, log: log}
}

func (s IndexSink) Consume(_ context.Context, e event.DomainEvent) error {
	evt, ok := e.(event.MessageStored)
	if !ok {
		return nil
	}
	if err := s.search.Index(toDiskMessage(evt)); err != nil {
		s.log.Error("failed to index message", "message_id", evt.ID, "error", err)
		return err
	}
	return nil
}

func toDiskMessage(evt event.MessageStored) storage.DiskMessage {
	return storage.DiskMessage{
		ID:          evt.ID,
		SenderID:    evt.SenderID,
		RecipientID: evt.RecipientID,
		Content:     evt.Content,
		Lang:        evt.Lang,
		At:          evt.At,
	}
}
