package chat

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Marcemmanuel1/messagerie-app/internal/realtime"
	"github.com/Marcemmanuel1/messagerie-app/pkg/domain"
)

// Sync reconciles pushed events into the directory. Handlers run on the
// channel's read loop, strictly in delivery order; they are safe at any
// time relative to pending requests, including before the initial load.
type Sync struct {
	dir      *Directory
	channel  *realtime.Channel
	selfID   int64
	token    string
	onChange func()
}

// NewSync binds the directory to a connected channel. selfID is the signed-
// in user, used to tell self echoes from peer messages. onChange, if set,
// fires after every state mutation so the UI can redraw; it must be cheap.
func NewSync(dir *Directory, channel *realtime.Channel, selfID int64, token string, onChange func()) *Sync {
	s := &Sync{
		dir:      dir,
		channel:  channel,
		selfID:   selfID,
		token:    token,
		onChange: onChange,
	}
	channel.On(EventNewMessage, s.handleNewMessage)
	channel.On(EventMessageSent, s.handleMessageSent)
	channel.On(EventConversationUpdated, s.handleConversationUpdated)
	channel.On(EventUserStatusChanged, s.handleUserStatusChanged)
	return s
}

// Open selects a conversation: zero its unread count, tell the server it
// was read, then fetch the history. The history fetch failing leaves the
// selection in the pending state; the caller may retry by reopening.
func (s *Sync) Open(conv domain.Conversation) error {
	s.dir.SelectConversation(conv)
	if conv.UnreadCount > 0 && s.channel.Connected() {
		if err := s.channel.Emit(EventMarkAsRead, markAsReadPayload{ConversationID: conv.ID}); err != nil {
			slog.Warn("mark-as-read failed", "conversation", conv.ID, "err", err)
		}
	}
	s.changed()

	messages, err := s.dir.api.Messages(s.token, conv.ID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	if s.dir.FinishHistoryLoad(conv.ID, messages) {
		s.changed()
	}
	return nil
}

// Close deselects the open conversation.
func (s *Sync) Close() {
	s.dir.ClearSelection()
	s.changed()
}

func (s *Sync) handleNewMessage(data json.RawMessage) {
	var msg domain.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		slog.Warn("bad new-message payload", "err", err)
		return
	}
	outcome := s.dir.ApplyNewMessage(s.selfID, msg)
	if !outcome.Known || outcome.Duplicate {
		return
	}
	if outcome.ShouldMarkRead && s.channel.Connected() {
		if err := s.channel.Emit(EventMarkAsRead, markAsReadPayload{ConversationID: msg.ConversationID}); err != nil {
			slog.Warn("mark-as-read failed", "conversation", msg.ConversationID, "err", err)
		}
	}
	s.changed()
}

func (s *Sync) handleMessageSent(data json.RawMessage) {
	var msg domain.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		slog.Warn("bad message-sent payload", "err", err)
		return
	}
	if s.dir.ApplyMessageSent(msg) {
		s.changed()
	}
}

func (s *Sync) handleConversationUpdated(data json.RawMessage) {
	var conv domain.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		slog.Warn("bad conversation-updated payload", "err", err)
		return
	}
	if s.dir.ApplyConversationUpdate(conv) {
		s.changed()
	}
}

func (s *Sync) handleUserStatusChanged(data json.RawMessage) {
	var change statusChangePayload
	if err := json.Unmarshal(data, &change); err != nil {
		slog.Warn("bad user-status-changed payload", "err", err)
		return
	}
	s.dir.ApplyStatusChange(change.UserID, change.Status)
	s.changed()
}

func (s *Sync) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}
