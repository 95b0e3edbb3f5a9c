package domain

import (
	"time"
)

// Message is an immutable record of one text sent from one user to another.
// The ID is assigned monotonically by the store and doubles as the ordering
// tie-break when two messages share the same timestamp.
type Message struct {
	ID          uint64    `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Content     string    `json:"content"`
	Lang        string    `json:"lang,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ConversationKey identifies the unordered pair of users a message belongs to.
// Low/High hold the two user IDs in lexicographic order so that (A,B) and
// (B,A) produce the same key.
type ConversationKey struct {
	Low  string
	High string
}

func NewConversationKey(a, b string) ConversationKey {
	if a > b {
		a, b = b, a
	}
	return ConversationKey{Low: a, High: b}
}

// Matches reports whether a sender/recipient pair belongs to this conversation,
// in either direction.
func (k ConversationKey) Matches(senderID, recipientID string) bool {
	return k == NewConversationKey(senderID, recipientID)
}

func (k ConversationKey) String() string {
	return k.Low + ":" + k.High
}
