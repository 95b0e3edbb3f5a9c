package moderation

import (
	"github.com/abadojack/whatlanggo"
)

// DetectLang returns the ISO 639-3 code of the message language, or an empty
// string when detection is not confident enough to be worth storing. Short
// chat messages are frequently ambiguous, so unreliable guesses are dropped
// rather than tagged wrong.
func DetectLang(content string) string {
	info := whatlanggo.Detect(content)
	if !info.IsReliable() {
		return ""
	}
	return whatlanggo.LangToString(info.Lang)
}
