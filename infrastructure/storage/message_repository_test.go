package storage

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func testMessageRepository(t *testing.T) *MessageRepository {
	t.Helper()
	repository, err := NewMessageRepository(testDB(t), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = repository.Close()
	})
	return repository
}

func Test_Append_Then_Conversation_Is_Chronological(t *testing.T) {
	req := require.New(t)
	repository := testMessageRepository(t)

	// Given a conversation with traffic in both directions
	_, err := repository.Append("alice", "bob", "hello bob", "en")
	req.NoError(err)
	_, err = repository.Append("bob", "alice", "hello alice", "en")
	req.NoError(err)
	_, err = repository.Append("alice", "bob", "how are you", "en")
	req.NoError(err)

	// When fetching the conversation
	messages, err := repository.Conversation("alice", "bob")
	req.NoError(err)

	// Then messages come back oldest first, both directions interleaved
	req.Len(messages, 3)
	req.Equal("hello bob", messages[0].Content)
	req.Equal("hello alice", messages[1].Content)
	req.Equal("how are you", messages[2].Content)

	// And IDs are strictly increasing
	req.Less(messages[0].ID, messages[1].ID)
	req.Less(messages[1].ID, messages[2].ID)
}

func Test_Conversation_Is_Symmetric(t *testing.T) {
	req := require.New(t)
	repository := testMessageRepository(t)

	_, err := repository.Append("alice", "bob", "ping", "")
	req.NoError(err)

	// (A,B) and (B,A) resolve to the same conversation
	fromAlice, err := repository.Conversation("alice", "bob")
	req.NoError(err)
	fromBob, err := repository.Conversation("bob", "alice")
	req.NoError(err)
	req.Equal(fromAlice, fromBob)
}

func Test_Conversation_Does_Not_Leak_Other_Pairs(t *testing.T) {
	req := require.New(t)
	repository := testMessageRepository(t)

	_, err := repository.Append("alice", "bob", "for bob", "")
	req.NoError(err)
	_, err = repository.Append("alice", "clara", "for clara", "")
	req.NoError(err)

	messages, err := repository.Conversation("alice", "bob")
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("for bob", messages[0].Content)

	// An empty conversation is an empty result, not an error
	messages, err = repository.Conversation("bob", "clara")
	req.NoError(err)
	req.Empty(messages)
}

func Test_Recent_Is_Newest_First_And_Limited(t *testing.T) {
	req := require.New(t)
	repository := testMessageRepository(t)

	for i := 1; i <= 10; i++ {
		_, err := repository.Append("alice", "bob", fmt.Sprintf("message %d", i), "")
		req.NoError(err)
	}

	messages, err := repository.Recent(4)
	req.NoError(err)
	req.Len(messages, 4)
	req.Equal("message 10", messages[0].Content)
	req.Equal("message 7", messages[3].Content)
}

func Test_Recent_Spans_All_Conversations(t *testing.T) {
	req := require.New(t)
	repository := testMessageRepository(t)

	_, err := repository.Append("alice", "bob", "first", "")
	req.NoError(err)
	_, err = repository.Append("clara", "dave", "second", "")
	req.NoError(err)

	messages, err := repository.Recent(10)
	req.NoError(err)
	req.Len(messages, 2)
	req.Equal("second", messages[0].Content)
	req.Equal("first", messages[1].Content)
}
