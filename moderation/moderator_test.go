package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

// TestModerator_Sanitize
// The dictionary uses specific words to avoid partial collisions (e.g., "he" inside "The")
func TestModerator_Sanitize(t *testing.T) {
	req := require.New(t)
	dictionary := []string{"badger", "snake", "mushroom"}
	mod, err := NewModerator(dictionary, replacementChar)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		hits     int
	}{
		{
			name:     "Simple word and space preservation",
			input:    "The badger is here",
			expected: "The ****** is here",
			hits:     1,
		},
		{
			name:     "Multiple occurrences and preserved spacing",
			input:    "badger badger badger",
			expected: "****** ****** ******",
			hits:     3,
		},
		{
			name: "Leet speak and internal punctuation",
			// B (index 9) . 4 . d . g . € r (index 20) -> 10 characters
			input:    "Look at B.4.d.g.€r !",
			expected: "Look at ********** !",
			hits:     1,
		},
		{
			name:     "Uppercase and extreme noise",
			input:    "S-N-A-K-E is a B.A.D.G.E.R",
			expected: "********* is a ***********",
			hits:     2,
		},
		{
			name:     "Accents and special characters (UTF-8)",
			input:    "Un été avec un badger",
			expected: "Un été avec un ******",
			hits:     1,
		},
		{
			name:     "Word adjacent to trailing punctuation",
			input:    "I love badger!",
			expected: "I love ******!",
			hits:     1,
		},
		{
			name:     "Nothing to censor",
			input:    "Courier is amazing",
			expected: "Courier is amazing",
			hits:     0,
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
			hits:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, hits := mod.Sanitize(tt.input)
			req.Equal(tt.expected, content, "test=%s,", tt.name)
			req.Equal(tt.hits, hits, "expected=%s,hits=%d", tt.expected, hits)
		})
	}
}

func TestModerator_CornerCases(t *testing.T) {
	req := require.New(t)

	// Given real noise and not Leet Speak associated
	dictionary := []string{"...", ",,,", "", "badger"}

	mod, err := NewModerator(dictionary, replacementChar)
	req.NoError(err)

	// Then the sentence is censored
	input := "The badger is safe"
	expected := "The ****** is safe"
	content, hits := mod.Sanitize(input)
	req.Equal(expected, content)
	req.Equal(1, hits)

	// Then real noise is uncensored
	input = "Hello ..."
	expected = "Hello ..."
	content, hits = mod.Sanitize(input)
	req.Equal(expected, content)
	req.Zero(hits)
}

func TestLoadWordlist_Embedded(t *testing.T) {
	req := require.New(t)

	wordlist, err := LoadWordlist()
	req.NoError(err)
	req.NotEmpty(wordlist.Words)
	req.NotEmpty(wordlist.Languages)
}
