package storage

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/stretchr/testify/require"
)

func testSearchRepository(t *testing.T) *SearchRepository {
	t.Helper()
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = writer.Close()
	})
	return NewSearchRepository(writer, slog.Default())
}

func Test_Search_Scoped_To_One_Conversation(t *testing.T) {
	req := require.New(t)
	repository := testSearchRepository(t)
	at := time.Now().UTC()

	req.NoError(repository.Index(DiskMessage{
		ID: 1, SenderID: "alice", RecipientID: "bob",
		Content: "the deployment is broken", At: at,
	}))
	req.NoError(repository.Index(DiskMessage{
		ID: 2, SenderID: "clara", RecipientID: "bob",
		Content: "deployment went fine here", At: at,
	}))

	hits, err := repository.Search(context.Background(), "bob", "alice", "deployment", 10)
	req.NoError(err)

	// Only the alice/bob conversation matches, whichever side searches
	req.Len(hits, 1)
	req.Equal(uint64(1), hits[0].MessageID)
	req.Equal("alice", hits[0].SenderID)
	req.Equal("the deployment is broken", hits[0].Content)
}

func Test_Search_No_Match_Is_Empty(t *testing.T) {
	req := require.New(t)
	repository := testSearchRepository(t)

	req.NoError(repository.Index(DiskMessage{
		ID: 1, SenderID: "alice", RecipientID: "bob",
		Content: "nothing relevant", At: time.Now().UTC(),
	}))

	hits, err := repository.Search(context.Background(), "alice", "bob", "kubernetes", 10)
	req.NoError(err)
	req.Empty(hits)
}

func Test_Index_Is_An_Upsert(t *testing.T) {
	req := require.New(t)
	repository := testSearchRepository(t)
	at := time.Now().UTC()

	message := DiskMessage{ID: 1, SenderID: "alice", RecipientID: "bob", Content: "draft text", At: at}
	req.NoError(repository.Index(message))
	message.Content = "final text"
	req.NoError(repository.Index(message))

	hits, err := repository.Search(context.Background(), "alice", "bob", "text", 10)
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal("final text", hits[0].Content)
}
