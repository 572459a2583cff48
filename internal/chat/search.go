package chat

import (
	"strings"

	"github.com/Marcemmanuel1/messagerie-app/pkg/domain"
)

// FilterUsers returns the users whose name contains the query,
// case-insensitively. An empty query returns the input unchanged.
func FilterUsers(users []domain.User, query string) []domain.User {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return users
	}
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.Name), query) {
			out = append(out, u)
		}
	}
	return out
}

// FilterConversations returns the conversations whose peer name contains
// the query, case-insensitively.
func FilterConversations(conversations []domain.Conversation, query string) []domain.Conversation {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return conversations
	}
	out := make([]domain.Conversation, 0, len(conversations))
	for _, conv := range conversations {
		if strings.Contains(strings.ToLower(conv.OtherUserName), query) {
			out = append(out, conv)
		}
	}
	return out
}
