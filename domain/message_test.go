package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConversationKey_Is_Order_Independent(t *testing.T) {
	req := require.New(t)

	req.Equal(NewConversationKey("alice", "bob"), NewConversationKey("bob", "alice"))
	req.Equal("alice:bob", NewConversationKey("bob", "alice").String())
}

func TestConversationKey_Matches_Both_Directions(t *testing.T) {
	req := require.New(t)
	key := NewConversationKey("alice", "bob")

	req.True(key.Matches("alice", "bob"))
	req.True(key.Matches("bob", "alice"))
	req.False(key.Matches("alice", "clara"))
	req.False(key.Matches("clara", "dave"))
}
