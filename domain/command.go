package domain

// PostMessageCommand is the sending intent as it enters the core, before the
// store has assigned an ID or a timestamp.
type PostMessageCommand struct {
	SenderID    string `validate:"required"`
	RecipientID string `validate:"required"`
	Content     string `validate:"required"`
}

// TranscriptQuery asks for the full ordered history between the caller and a peer.
type TranscriptQuery struct {
	CallerID string `validate:"required"`
	PeerID   string `validate:"required"`
}

// PeerQuery lists everyone except the caller, optionally narrowed by a
// case-insensitive substring match on name or email.
type PeerQuery struct {
	CallerID string `validate:"required"`
	Search   string
}
