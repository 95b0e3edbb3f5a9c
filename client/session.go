// Package client holds the subscriber-side view model: the state machine
// that reconciles a fetched transcript with live broadcast events.
package client

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"courier/domain"
	"courier/domain/event"
	"courier/errors"
)

type State int

const (
	// StateIdle No peer selected, or the last transcript fetch failed.
	StateIdle State = iota
	// StateLoading A peer is selected and its transcript fetch is in flight.
	StateLoading
	// StateActive Transcript displayed, live events filtered and appended.
	StateActive
)

// Snapshot is what observers receive on every transition. Transcript is a
// copy: observers may hold on to it across further mutations.
type Snapshot struct {
	State      State
	Peer       domain.User
	Transcript []domain.Message
	Err        error
}

// TranscriptFetcher retrieves the history between the session owner and a peer.
type TranscriptFetcher interface {
	Transcript(ctx context.Context, peerID string) ([]domain.Message, error)
}

// MessageSender posts a new message from the session owner.
type MessageSender interface {
	Post(ctx context.Context, recipientID, content string) (domain.Message, error)
}

// Session is the per-client conversation view.
//
// Echo policy: SendMessage does NOT append locally. The sender's own message
// is rendered when its broadcast echo arrives, exactly like the peer's
// messages. This keeps one source of truth for ordering and for moderated
// content, at the cost of a round-trip before the sender sees their own text.
//
// Session implements contract.EventSink so it can be driven directly by a
// fan-out or by a connection handler draining a stream.
type Session struct {
	mu sync.Mutex
	// notifyMu serializes observer callbacks in transition order. It is
	// acquired before mu is released at each transition, so observers of two
	// transitions can never see them swapped.
	notifyMu     sync.Mutex
	log          *slog.Logger
	selfID       string
	fetcher      TranscriptFetcher
	sender       MessageSender
	fetchTimeout time.Duration

	state      State
	peer       domain.User
	transcript []domain.Message
	draft      string
	lastErr    error

	// selection increments on every SelectPeer, under mu, so token order
	// always matches commit order: the peer committed last holds the highest
	// token. A transcript fetch carries the value it started with and is
	// discarded if a newer selection exists by the time it resolves: last
	// selection wins, even under rapid re-selection (a boolean "in flight"
	// flag cannot distinguish which fetch is stale).
	selection atomic.Uint64

	observers []func(Snapshot)
}

func NewSession(log *slog.Logger, selfID string, fetcher TranscriptFetcher,
	sender MessageSender, fetchTimeout time.Duration) *Session {
	return &Session{
		log:          log,
		selfID:       selfID,
		fetcher:      fetcher,
		sender:       sender,
		fetchTimeout: fetchTimeout,
	}
}

// Observe registers a callback invoked after every state transition, in
// transition order. Callbacks must return promptly and must not call back
// into the session.
func (s *Session) Observe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// SelectPeer moves the session to Loading for the given peer and fetches the
// transcript in the background. Selecting while Active or Loading supersedes
// the previous selection; its in-flight fetch result will be dropped on
// arrival.
func (s *Session) SelectPeer(ctx context.Context, peer domain.User) {
	s.mu.Lock()
	token := s.selection.Add(1)
	s.state = StateLoading
	s.peer = peer
	s.transcript = nil
	s.lastErr = nil
	s.notifyLocked()

	go s.fetch(ctx, token, peer)
}

func (s *Session) fetch(ctx context.Context, token uint64, peer domain.User) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	messages, err := s.fetcher.Transcript(fetchCtx, peer.ID)

	s.mu.Lock()
	if token != s.selection.Load() {
		// A newer selection won the race; this result is stale.
		s.mu.Unlock()
		s.log.Debug("discarding stale transcript", "peer_id", peer.ID)
		return
	}

	if err != nil {
		s.state = StateIdle
		s.lastErr = err
	} else {
		s.state = StateActive
		s.transcript = messages
	}
	s.notifyLocked()
}

// Consume receives one broadcast event. Events for other conversations are
// discarded; events for the open conversation are appended, never reordering
// what is already displayed. Duplicate or late events are dropped by the
// monotonic ID check against the transcript tail.
func (s *Session) Consume(_ context.Context, e event.DomainEvent) error {
	evt, ok := e.(event.MessageStored)
	if !ok {
		return nil
	}

	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return nil
	}
	conv := domain.NewConversationKey(s.selfID, s.peer.ID)
	if !conv.Matches(evt.SenderID, evt.RecipientID) {
		s.mu.Unlock()
		return nil
	}
	if n := len(s.transcript); n > 0 && evt.ID <= s.transcript[n-1].ID {
		s.mu.Unlock()
		return nil
	}
	s.transcript = append(s.transcript, evt.Message())
	s.notifyLocked()
	return nil
}

// SetDraft stores the pending outgoing text.
func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = text
}

// Draft returns the pending outgoing text. After a failed send it still holds
// the message so the user can retry without retyping.
func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SendMessage posts the given text to the selected peer. Only valid while
// Active. On failure the text is kept as the draft; on success the draft is
// cleared and the message will appear via its broadcast echo.
func (s *Session) SendMessage(ctx context.Context, text string) error {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return errors.ErrNotConnected
	}
	recipientID := s.peer.ID
	s.draft = text
	s.mu.Unlock()

	if _, err := s.sender.Post(ctx, recipientID, text); err != nil {
		return err
	}

	s.mu.Lock()
	s.draft = ""
	s.mu.Unlock()
	return nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns the current view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	transcript := make([]domain.Message, len(s.transcript))
	copy(transcript, s.transcript)
	return Snapshot{
		State:      s.state,
		Peer:       s.peer,
		Transcript: transcript,
		Err:        s.lastErr,
	}
}

// notifyLocked must be called with s.mu held; it releases it.
// notifyMu is taken before mu is released so callback order matches
// transition order.
func (s *Session) notifyLocked() {
	snapshot := s.snapshotLocked()
	observers := make([]func(Snapshot), len(s.observers))
	copy(observers, s.observers)
	s.notifyMu.Lock()
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}
	s.notifyMu.Unlock()
}
