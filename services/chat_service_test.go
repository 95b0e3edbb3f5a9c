package services

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"courier/domain"
	"courier/errors"
	"courier/infrastructure/storage"
	"courier/mocks"
	"courier/moderation"
	"courier/observability"
	"courier/runtime"
	"courier/runtime/workers"
)

const maxTestContentLength = 32

func testChatService(t *testing.T, users storage.IUserRepository,
	messages storage.IMessageRepository, search *storage.SearchRepository) *ChatService {
	t.Helper()
	log := slog.Default()

	moderator, err := moderation.NewModerator([]string{"badger"}, '*')
	require.NoError(t, err)

	orchestrator := runtime.NewOrchestrator(log, workers.NewSupervisor(log, 50*time.Millisecond),
		runtime.NewRegistry(), messages, observability.NewMonitor(), 16, time.Second, time.Hour, 4)
	return NewChatService(log, orchestrator, users, search, moderator, maxTestContentLength)
}

func testSearchRepository(t *testing.T) *storage.SearchRepository {
	t.Helper()
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = writer.Close()
	})
	return storage.NewSearchRepository(writer, slog.Default())
}

func TestChatService_PostMessage_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUsers := mocks.NewMockIUserRepository(ctrl)
	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	svc := testChatService(t, mockUsers, mockMessages, nil)

	tests := []struct {
		name     string
		cmd      domain.PostMessageCommand
		expected error
	}{
		{
			name:     "empty content",
			cmd:      domain.PostMessageCommand{SenderID: "alice", RecipientID: "bob", Content: ""},
			expected: errors.ErrBlankContent,
		},
		{
			name:     "whitespace only content",
			cmd:      domain.PostMessageCommand{SenderID: "alice", RecipientID: "bob", Content: "   \n\t "},
			expected: errors.ErrBlankContent,
		},
		{
			name: "content above the cap",
			cmd: domain.PostMessageCommand{SenderID: "alice", RecipientID: "bob",
				Content: strings.Repeat("x", maxTestContentLength+1)},
			expected: errors.ErrContentTooLong,
		},
		{
			name:     "self addressed",
			cmd:      domain.PostMessageCommand{SenderID: "alice", RecipientID: "alice", Content: "note to self"},
			expected: errors.ErrSelfAddressed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)

			// Nothing may reach the store
			mockMessages.EXPECT().Append(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

			_, err := svc.PostMessage(context.Background(), tt.cmd)
			req.ErrorIs(err, tt.expected)
		})
	}
}

func TestChatService_PostMessage_Unknown_Recipient(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUsers := mocks.NewMockIUserRepository(ctrl)
	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	svc := testChatService(t, mockUsers, mockMessages, nil)

	mockUsers.EXPECT().Exists("ghost").Return(false, nil).Times(1)
	mockMessages.EXPECT().Append(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err := svc.PostMessage(context.Background(), domain.PostMessageCommand{
		SenderID: "alice", RecipientID: "ghost", Content: "anyone there?",
	})
	req.ErrorIs(err, errors.ErrUnknownUser)
}

func TestChatService_PostMessage_Censors_Before_Storing(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUsers := mocks.NewMockIUserRepository(ctrl)
	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	svc := testChatService(t, mockUsers, mockMessages, nil)

	mockUsers.EXPECT().Exists("bob").Return(true, nil).Times(1)

	// The store receives the censored content, never the original
	mockMessages.EXPECT().
		Append("alice", "bob", "the ****** bites", gomock.Any()).
		DoAndReturn(func(senderID, recipientID, content, lang string) (storage.DiskMessage, error) {
			return storage.DiskMessage{
				ID: 1, SenderID: senderID, RecipientID: recipientID,
				Content: content, Lang: lang, At: time.Now().UTC(),
			}, nil
		}).Times(1)

	message, err := svc.PostMessage(context.Background(), domain.PostMessageCommand{
		SenderID: "alice", RecipientID: "bob", Content: "the badger bites",
	})
	req.NoError(err)
	req.Equal("the ****** bites", message.Content)
	req.Equal(uint64(1), message.ID)
}

func TestChatService_PostMessage_Trims_Surrounding_Whitespace(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUsers := mocks.NewMockIUserRepository(ctrl)
	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	svc := testChatService(t, mockUsers, mockMessages, nil)

	mockUsers.EXPECT().Exists("bob").Return(true, nil).Times(1)
	mockMessages.EXPECT().
		Append("alice", "bob", "hello", gomock.Any()).
		Return(storage.DiskMessage{ID: 1, SenderID: "alice", RecipientID: "bob", Content: "hello"}, nil).
		Times(1)

	_, err := svc.PostMessage(context.Background(), domain.PostMessageCommand{
		SenderID: "alice", RecipientID: "bob", Content: "  hello  ",
	})
	req.NoError(err)
}

func TestChatService_Transcript(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUsers := mocks.NewMockIUserRepository(ctrl)
	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	svc := testChatService(t, mockUsers, mockMessages, nil)

	t.Run("unknown peer is an error", func(t *testing.T) {
		req := require.New(t)
		mockUsers.EXPECT().Exists("ghost").Return(false, nil).Times(1)

		_, err := svc.Transcript(domain.TranscriptQuery{CallerID: "alice", PeerID: "ghost"})
		req.ErrorIs(err, errors.ErrUnknownUser)
	})

	t.Run("history comes back in store order", func(t *testing.T) {
		req := require.New(t)
		mockUsers.EXPECT().Exists("bob").Return(true, nil).Times(1)
		mockMessages.EXPECT().Conversation("alice", "bob").Return([]storage.DiskMessage{
			{ID: 1, SenderID: "alice", RecipientID: "bob", Content: "ping"},
			{ID: 2, SenderID: "bob", RecipientID: "alice", Content: "pong"},
		}, nil).Times(1)

		messages, err := svc.Transcript(domain.TranscriptQuery{CallerID: "alice", PeerID: "bob"})
		req.NoError(err)
		req.Len(messages, 2)
		req.Equal("ping", messages[0].Content)
		req.Equal(uint64(2), messages[1].ID)
	})

	t.Run("empty conversation is empty, not an error", func(t *testing.T) {
		req := require.New(t)
		mockUsers.EXPECT().Exists("bob").Return(true, nil).Times(1)
		mockMessages.EXPECT().Conversation("alice", "bob").Return(nil, nil).Times(1)

		messages, err := svc.Transcript(domain.TranscriptQuery{CallerID: "alice", PeerID: "bob"})
		req.NoError(err)
		req.Empty(messages)
	})
}

func TestChatService_Peers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUsers := mocks.NewMockIUserRepository(ctrl)
	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	svc := testChatService(t, mockUsers, mockMessages, nil)

	roster := []storage.DiskUser{
		{ID: "u1", Name: "Bob", Email: "bob@example.com", IsActive: true},
		{ID: "u2", Name: "Clara", Email: "clara@example.com", IsActive: false},
	}

	t.Run("lists everyone else with presence", func(t *testing.T) {
		req := require.New(t)
		mockUsers.EXPECT().ListExcept("alice").Return(roster, nil).Times(1)

		users, err := svc.Peers(domain.PeerQuery{CallerID: "alice"})
		req.NoError(err)
		req.Len(users, 2)
		req.True(users[0].IsActive)
		req.False(users[1].IsActive)
	})

	t.Run("search filters on name or email, case-insensitive", func(t *testing.T) {
		req := require.New(t)
		mockUsers.EXPECT().ListExcept("alice").Return(roster, nil).Times(1)

		users, err := svc.Peers(domain.PeerQuery{CallerID: "alice", Search: "CLAR"})
		req.NoError(err)
		req.Len(users, 1)
		req.Equal("Clara", users[0].Name)
	})
}

func TestChatService_Search_Scopes_To_Conversation(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUsers := mocks.NewMockIUserRepository(ctrl)
	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	search := testSearchRepository(t)
	svc := testChatService(t, mockUsers, mockMessages, search)

	req.NoError(search.Index(storage.DiskMessage{
		ID: 1, SenderID: "alice", RecipientID: "bob",
		Content: "release is blocked", At: time.Now().UTC(),
	}))
	req.NoError(search.Index(storage.DiskMessage{
		ID: 2, SenderID: "clara", RecipientID: "alice",
		Content: "release shipped", At: time.Now().UTC(),
	}))

	mockUsers.EXPECT().Exists("bob").Return(true, nil).Times(1)

	hits, err := svc.Search(context.Background(), "alice", "bob", "release", 10)
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal(uint64(1), hits[0].MessageID)
}
