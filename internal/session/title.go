package session

import (
	"unicode/utf16"

	"github.com/Rrens/ddoksori/internal/domain"
)

const titleMaxLength = 30

// Title derives a session title from the first user message.
// Length is counted in UTF-16 code units, matching what the web client shows.
func Title(chatType domain.ChatType, messages []domain.Message) string {
	for _, m := range messages {
		if m.Role != domain.RoleUser {
			continue
		}
		if head, cut := truncateUTF16(m.Content, titleMaxLength); cut {
			return head + "..."
		}
		return m.Content
	}
	return chatType.DefaultTitle()
}

// truncateUTF16 keeps the first n UTF-16 code units of s.
// A cut through a surrogate pair leaves U+FFFD in its place.
func truncateUTF16(s string, n int) (string, bool) {
	units := utf16.Encode([]rune(s))
	if len(units) <= n {
		return s, false
	}
	return string(utf16.Decode(units[:n])), true
}
