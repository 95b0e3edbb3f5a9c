//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"courier/contract"
	"courier/domain"
	"courier/errors"
	"courier/infrastructure/storage"
	"courier/moderation"
	"courier/runtime"
)

type IChatService interface {
	PostMessage(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error)
	Transcript(query domain.TranscriptQuery) ([]domain.Message, error)
	Peers(query domain.PeerQuery) ([]domain.User, error)
	Recent(limit int) ([]domain.Message, error)
	Search(ctx context.Context, callerID, peerID, query string, limit int) ([]storage.SearchHit, error)
	Join(sessionID string, sink contract.EventSink)
	Leave(sessionID string)
	ReportDrop(sessionID string)
}

type ChatService struct {
	log              *slog.Logger
	orchestrator     *runtime.Orchestrator
	users            storage.IUserRepository
	search           *storage.SearchRepository
	moderator        *moderation.Moderator
	validate         *validator.Validate
	maxContentLength int
}

func NewChatService(log *slog.Logger, orchestrator *runtime.Orchestrator,
	users storage.IUserRepository, search *storage.SearchRepository,
	moderator *moderation.Moderator, maxContentLength int) *ChatService {
	return &ChatService{
		log:              log,
		orchestrator:     orchestrator,
		users:            users,
		search:           search,
		moderator:        moderator,
		validate:         validator.New(),
		maxContentLength: maxContentLength,
	}
}

// PostMessage validates, moderates, and durably stores a message, then
// triggers the broadcast. The stored message is returned to the caller, but
// the sender's own client renders it from the fan-out echo like everyone
// else: one source of truth for ordering and for the censored content.
func (s *ChatService) PostMessage(_ context.Context, cmd domain.PostMessageCommand) (domain.Message, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrBlankContent, err)
	}

	content := strings.TrimSpace(cmd.Content)
	switch {
	case content == "":
		return domain.Message{}, errors.ErrBlankContent
	case utf8.RuneCountInString(content) > s.maxContentLength:
		return domain.Message{}, errors.ErrContentTooLong
	case cmd.SenderID == cmd.RecipientID:
		return domain.Message{}, errors.ErrSelfAddressed
	}

	exists, err := s.users.Exists(cmd.RecipientID)
	if err != nil {
		return domain.Message{}, err
	}
	if !exists {
		return domain.Message{}, errors.ErrUnknownUser
	}

	// Censoring happens before the write: stored messages are immutable.
	clean, hits := s.moderator.Sanitize(content)
	if hits > 0 {
		s.log.Debug("message content censored", "sender_id", cmd.SenderID, "hits", hits)
	}
	lang := moderation.DetectLang(clean)

	return s.orchestrator.Append(cmd.SenderID, cmd.RecipientID, clean, lang)
}

// Transcript resolves the conversation between the caller and a peer,
// ascending by timestamp then ID. No history is an empty result, not an
// error; a peer that does not exist is.
func (s *ChatService) Transcript(query domain.TranscriptQuery) ([]domain.Message, error) {
	if err := s.validate.Struct(query); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrUnknownUser, err)
	}
	exists, err := s.users.Exists(query.PeerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.ErrUnknownUser
	}
	return s.orchestrator.Transcript(query.CallerID, query.PeerID)
}

// Peers lists everyone except the caller, annotated with presence, ordered by
// name. The optional search narrows by case-insensitive substring on name or
// email.
func (s *ChatService) Peers(query domain.PeerQuery) ([]domain.User, error) {
	records, err := s.users.ListExcept(query.CallerID)
	if err != nil {
		return nil, err
	}

	users := lo.Map(records, func(item storage.DiskUser, _ int) domain.User {
		return domain.User{
			ID:        item.ID,
			Name:      item.Name,
			Email:     item.Email,
			IsActive:  item.IsActive,
			CreatedAt: item.CreatedAt,
		}
	})

	search := strings.ToLower(strings.TrimSpace(query.Search))
	if search == "" {
		return users, nil
	}
	return lo.Filter(users, func(u domain.User, _ int) bool {
		return strings.Contains(strings.ToLower(u.Name), search) ||
			strings.Contains(strings.ToLower(u.Email), search)
	}), nil
}

// Recent returns the global feed, newest first.
func (s *ChatService) Recent(limit int) ([]domain.Message, error) {
	return s.orchestrator.Recent(limit)
}

// Search runs a full-text query over one conversation's messages.
func (s *ChatService) Search(ctx context.Context, callerID, peerID, query string, limit int) ([]storage.SearchHit, error) {
	exists, err := s.users.Exists(peerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.ErrUnknownUser
	}
	return s.search.Search(ctx, callerID, peerID, query, limit)
}

// Join connects a subscriber sink to the shared broadcast channel.
func (s *ChatService) Join(sessionID string, sink contract.EventSink) {
	s.orchestrator.RegisterSubscriber(sessionID, sink)
}

// Leave disconnects a subscriber.
func (s *ChatService) Leave(sessionID string) {
	s.orchestrator.UnregisterSubscriber(sessionID)
}

// ReportDrop records an event a subscriber could not keep up with.
func (s *ChatService) ReportDrop(sessionID string) {
	s.orchestrator.ReportDrop(sessionID)
}
