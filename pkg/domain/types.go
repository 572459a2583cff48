package domain

// Status is the presence state the backend reports for a user. The wire
// values are French; they come from the server and are compared, never
// parsed.
type Status string

const (
	StatusOnline  Status = "En ligne"
	StatusOffline Status = "Hors ligne"
)

// User is a member of the directory. The client holds read-mostly cached
// copies; only the signed-in user's own record is ever edited locally.
type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"` // relative path on the server, may be empty
	Status   Status `json:"status"`
	Bio      string `json:"bio,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
}

// Conversation summarizes one peer relationship for the signed-in user.
// Peer fields are denormalized by the server so the list renders without a
// join against the user directory.
type Conversation struct {
	ID              int64  `json:"id"`
	OtherUserID     int64  `json:"other_user_id"`
	OtherUserName   string `json:"other_user_name"`
	OtherUserAvatar string `json:"other_user_avatar"`
	OtherUserStatus Status `json:"other_user_status"`
	OtherUserEmail  string `json:"other_user_email"`
	LastMessage     string `json:"last_message,omitempty"`
	LastMessageTime string `json:"last_message_time,omitempty"`
	UnreadCount     int    `json:"unread_count"`
}

// Message is one entry in a conversation. Content may be empty when the
// message carries a file; a message never has neither.
type Message struct {
	ID             int64  `json:"id"`
	Content        string `json:"content"`
	FileURL        string `json:"fileUrl,omitempty"`
	FileType       string `json:"fileType,omitempty"` // MIME type of the attachment
	CreatedAt      string `json:"created_at"`
	SenderID       int64  `json:"sender_id"`
	SenderName     string `json:"sender_name"`
	SenderAvatar   string `json:"sender_avatar"`
	IsRead         bool   `json:"is_read"`
	ConversationID int64  `json:"conversationId"`
}

// HasAttachment reports whether the message carries a file.
func (m Message) HasAttachment() bool {
	return m.FileURL != ""
}

// Preview is the text shown in the conversation list for this message.
// File-only messages get a generic placeholder, matching the server's own
// previews.
func (m Message) Preview() string {
	if m.Content != "" {
		return m.Content
	}
	return "Fichier"
}
