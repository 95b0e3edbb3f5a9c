package storage

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/blugelabs/bluge"

	"courier/domain"
)

// SearchHit is one full-text match inside a conversation.
type SearchHit struct {
	MessageID uint64
	SenderID  string
	Content   string
}

// SearchRepository maintains the bluge full-text index over message content.
// The index is fed asynchronously by a fan-out sink, so it may lag the store
// by a few events; badger stays the source of truth.
type SearchRepository struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewSearchRepository(writer *bluge.Writer, log *slog.Logger) *SearchRepository {
	return &SearchRepository{writer: writer, log: log}
}

// Index upserts one message document. The conversation key is stored as a
// keyword so searches can be scoped to a single transcript.
func (s *SearchRepository) Index(message DiskMessage) error {
	conv := domain.NewConversationKey(message.SenderID, message.RecipientID)
	doc := bluge.NewDocument(strconv.FormatUint(message.ID, 10)).
		AddField(bluge.NewTextField("content", message.Content).StoreValue()).
		AddField(bluge.NewKeywordField("conversation", conv.String()).StoreValue()).
		AddField(bluge.NewKeywordField("sender", message.SenderID).StoreValue()).
		AddField(bluge.NewDateTimeField("at", message.At))
	return s.writer.Update(doc.ID(), doc)
}

// Search runs a match query on content, restricted to one conversation.
func (s *SearchRepository) Search(ctx context.Context, userA, userB, query string, limit int) ([]SearchHit, error) {
	reader, err := s.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = reader.Close()
	}()

	conv := domain.NewConversationKey(userA, userB)
	contentQuery := bluge.NewMatchQuery(query)
	contentQuery.SetField("content")
	convQuery := bluge.NewTermQuery(conv.String())
	convQuery.SetField("conversation")

	boolean := bluge.NewBooleanQuery()
	boolean.AddMust(contentQuery)
	boolean.AddMust(convQuery)

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, boolean))
	if err != nil {
		return nil, err
	}

	var hits []SearchHit
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}

		var hit SearchHit
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.MessageID, _ = strconv.ParseUint(string(value), 10, 64)
			case "content":
				hit.Content = string(value)
			case "sender":
				hit.SenderID = string(value)
			}
			return true
		})
		if err != nil {
			s.log.Error("failed to read stored fields", "error", err)
			continue
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
