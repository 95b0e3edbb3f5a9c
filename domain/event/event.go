package event

import (
	"time"

	"courier/domain"
)

// DomainEvent is anything the fan-out can deliver to subscribers. Every event
// is scoped to one conversation; subscribers filter on that key locally since
// the broadcast channel is shared by all conversations.
type DomainEvent interface {
	Conversation() domain.ConversationKey
}

// MessageStored is emitted after a message has been durably written. It is the
// only event the transcript projection cares about: delivery is best-effort,
// the stored record stays authoritative.
type MessageStored struct {
	ID          uint64
	SenderID    string
	RecipientID string
	Content     string
	Lang        string
	At          time.Time
}

func (m MessageStored) Conversation() domain.ConversationKey {
	return domain.NewConversationKey(m.SenderID, m.RecipientID)
}

func (m MessageStored) Message() domain.Message {
	return domain.Message{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Content:     m.Content,
		Lang:        m.Lang,
		CreatedAt:   m.At,
	}
}
