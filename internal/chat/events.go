package chat

import "github.com/Marcemmanuel1/messagerie-app/pkg/domain"

// Event names on the realtime channel.
const (
	// inbound pushes
	EventNewMessage          = "new-message"
	EventMessageSent         = "message-sent"
	EventConversationUpdated = "conversation-updated"
	EventUserStatusChanged   = "user-status-changed"

	// outbound emissions
	EventSendMessage = "send-message"
	EventMarkAsRead  = "mark-as-read"
)

type statusChangePayload struct {
	UserID int64         `json:"userId"`
	Status domain.Status `json:"status"`
}

type markAsReadPayload struct {
	ConversationID int64 `json:"conversationId"`
}

type sendMessagePayload struct {
	ConversationID int64  `json:"conversationId"`
	Content        string `json:"content"`
}

type sendAck struct {
	Success bool           `json:"success"`
	Message domain.Message `json:"message"`
}
