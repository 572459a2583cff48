package chat

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Marcemmanuel1/messagerie-app/internal/api"
	"github.com/Marcemmanuel1/messagerie-app/pkg/domain"
)

// Directory is the client's cache of the user list and conversation list,
// plus the messages of the currently open conversation. Every mutation and
// the derived unread total happen under one lock: no observer can see the
// total disagree with the per-conversation counts.
type Directory struct {
	api *api.Client

	mu            sync.Mutex
	users         []domain.User
	conversations []domain.Conversation
	unreadTotal   int
	loaded        bool

	open    *openConversation
	applied map[int64]struct{} // message ids already merged, at-most-once
}

// openConversation tracks the selected peer. The message list exists only
// while a conversation is open; selecting another peer discards it. Events
// arriving before the history snapshot installs are held in pending and
// merged into the list when it does.
type openConversation struct {
	conversationID int64
	peer           domain.User
	historyLoaded  bool
	messages       []domain.Message
	pending        []domain.Message
}

// newMessageOutcome reports what ApplyNewMessage did, so the sync layer can
// decide whether to acknowledge the message as read.
type newMessageOutcome struct {
	Known          bool // conversation was in the cache
	Duplicate      bool // message id seen before, nothing changed
	OpenAppend     bool // appended to the open message list
	ShouldMarkRead bool // open conversation, authored by the peer
}

// NewDirectory constructs an empty directory backed by the REST client.
func NewDirectory(apiClient *api.Client) *Directory {
	return &Directory{
		api:     apiClient,
		applied: make(map[int64]struct{}),
	}
}

// Load fetches the user list and conversation list in parallel and replaces
// the cache wholesale. Any failure is fatal for the messaging screen; the
// caller redirects rather than render a partial directory. Calling Load
// again forces a full refresh.
func (d *Directory) Load(token string) error {
	var (
		users         []domain.User
		conversations []domain.Conversation
	)
	g := new(errgroup.Group)
	g.Go(func() error {
		var err error
		users, err = d.api.Users(token)
		if err != nil {
			return fmt.Errorf("load users: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		conversations, err = d.api.Conversations(token)
		if err != nil {
			return fmt.Errorf("load conversations: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.users = users
	d.conversations = conversations
	d.recomputeUnreadLocked()
	d.loaded = true
	return nil
}

// Loaded reports whether the initial load has completed.
func (d *Directory) Loaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loaded
}

// Users returns a copy of the cached user list.
func (d *Directory) Users() []domain.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.User, len(d.users))
	copy(out, d.users)
	return out
}

// Conversations returns a copy of the cached conversation list.
func (d *Directory) Conversations() []domain.Conversation {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.Conversation, len(d.conversations))
	copy(out, d.conversations)
	return out
}

// Conversation looks up one cached conversation by id.
func (d *Directory) Conversation(id int64) (domain.Conversation, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, conv := range d.conversations {
		if conv.ID == id {
			return conv, true
		}
	}
	return domain.Conversation{}, false
}

// UnreadTotal returns the derived global unread counter. It is always the
// sum of the per-conversation counts.
func (d *Directory) UnreadTotal() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unreadTotal
}

// OpenID returns the id of the open conversation, if any.
func (d *Directory) OpenID() (int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open == nil {
		return 0, false
	}
	return d.open.conversationID, true
}

// OpenPeer returns the peer of the open conversation, if any.
func (d *Directory) OpenPeer() (domain.User, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open == nil {
		return domain.User{}, false
	}
	return d.open.peer, true
}

// HistoryLoaded reports whether the open conversation's history fetch has
// completed.
func (d *Directory) HistoryLoaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open != nil && d.open.historyLoaded
}

// Messages returns a copy of the open conversation's message list.
func (d *Directory) Messages() []domain.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open == nil {
		return nil
	}
	out := make([]domain.Message, len(d.open.messages))
	copy(out, d.open.messages)
	return out
}

// SelectConversation opens a conversation in the "history pending" state,
// discarding any previously open message list. The conversation's unread
// count drops to zero and the total shrinks by the same amount, in one
// update.
func (d *Directory) SelectConversation(conv domain.Conversation) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = &openConversation{
		conversationID: conv.ID,
		peer: domain.User{
			ID:     conv.OtherUserID,
			Name:   conv.OtherUserName,
			Email:  conv.OtherUserEmail,
			Avatar: conv.OtherUserAvatar,
			Status: conv.OtherUserStatus,
		},
	}
	for i := range d.conversations {
		if d.conversations[i].ID == conv.ID {
			d.conversations[i].UnreadCount = 0
		}
	}
	d.recomputeUnreadLocked()
}

// ClearSelection returns to the "no conversation selected" state.
func (d *Directory) ClearSelection() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = nil
}

// FinishHistoryLoad installs the fetched history for a conversation. It is
// ignored when the selection has moved on since the fetch started. Messages
// pushed during the pending window are merged after the snapshot, deduped by
// id: the snapshot may already contain them.
func (d *Directory) FinishHistoryLoad(conversationID int64, messages []domain.Message) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open == nil || d.open.conversationID != conversationID {
		return false
	}
	seen := make(map[int64]struct{}, len(messages))
	for _, msg := range messages {
		seen[msg.ID] = struct{}{}
		d.applied[msg.ID] = struct{}{}
	}
	merged := make([]domain.Message, 0, len(messages)+len(d.open.pending))
	merged = append(merged, messages...)
	for _, msg := range d.open.pending {
		if _, dup := seen[msg.ID]; dup {
			continue
		}
		seen[msg.ID] = struct{}{}
		merged = append(merged, msg)
	}
	d.open.pending = nil
	d.open.messages = merged
	d.open.historyLoaded = true
	return true
}

// ApplyNewMessage merges a pushed message. An unknown conversation leaves
// all state untouched; a duplicate message id is dropped. Otherwise the
// conversation's preview and timestamp update, the unread count increments
// for peer-authored messages (a self echo forces it to zero), and the total
// is recomputed in the same update.
func (d *Directory) ApplyNewMessage(selfID int64, msg domain.Message) newMessageOutcome {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := -1
	for i := range d.conversations {
		if d.conversations[i].ID == msg.ConversationID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return newMessageOutcome{}
	}
	if _, dup := d.applied[msg.ID]; dup {
		return newMessageOutcome{Known: true, Duplicate: true}
	}
	d.applied[msg.ID] = struct{}{}

	outcome := newMessageOutcome{Known: true}
	if d.open != nil && d.open.conversationID == msg.ConversationID {
		if d.open.historyLoaded {
			d.open.messages = append(d.open.messages, msg)
			outcome.OpenAppend = true
		} else {
			d.open.pending = append(d.open.pending, msg)
		}
		outcome.ShouldMarkRead = msg.SenderID != selfID
	}

	conv := &d.conversations[idx]
	conv.LastMessage = msg.Preview()
	conv.LastMessageTime = msg.CreatedAt
	if msg.SenderID == selfID {
		conv.UnreadCount = 0
	} else {
		conv.UnreadCount++
	}
	d.recomputeUnreadLocked()
	return outcome
}

// ApplyMessageSent appends the acknowledged copy of an outgoing message to
// the open list. This event, not the composer, is the authoritative record
// of what was sent. An id already merged through the history fetch or a
// new-message echo is dropped, same as ApplyNewMessage.
func (d *Directory) ApplyMessageSent(msg domain.Message) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open == nil || d.open.conversationID != msg.ConversationID {
		return false
	}
	if _, dup := d.applied[msg.ID]; dup {
		return false
	}
	d.applied[msg.ID] = struct{}{}
	if !d.open.historyLoaded {
		d.open.pending = append(d.open.pending, msg)
		return true
	}
	d.open.messages = append(d.open.messages, msg)
	return true
}

// ApplyConversationUpdate replaces one conversation record wholesale with
// the server's authoritative snapshot, then recomputes the total from the
// current collection.
func (d *Directory) ApplyConversationUpdate(conv domain.Conversation) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.conversations {
		if d.conversations[i].ID == conv.ID {
			d.conversations[i] = conv
			d.recomputeUnreadLocked()
			return true
		}
	}
	return false
}

// ApplyStatusChange updates a user's presence everywhere it is
// denormalized: the user list, conversation peers, and the open peer.
func (d *Directory) ApplyStatusChange(userID int64, status domain.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.users {
		if d.users[i].ID == userID {
			d.users[i].Status = status
		}
	}
	for i := range d.conversations {
		if d.conversations[i].OtherUserID == userID {
			d.conversations[i].OtherUserStatus = status
		}
	}
	if d.open != nil && d.open.peer.ID == userID {
		d.open.peer.Status = status
	}
}

// recomputeUnreadLocked derives the total from the authoritative current
// collection, never from a previously captured snapshot.
func (d *Directory) recomputeUnreadLocked() {
	total := 0
	for _, conv := range d.conversations {
		total += conv.UnreadCount
	}
	d.unreadTotal = total
}
