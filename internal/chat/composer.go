package chat

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Marcemmanuel1/messagerie-app/internal/realtime"
)

const defaultSendTimeout = 10 * time.Second

// ErrSendRejected is reported to the failure callback when the server
// refuses a message.
var ErrSendRejected = errors.New("message rejected by server")

// Composer drives the outgoing message flow. The caller clears its input as
// soon as Send reports the emission happened; the message the user then
// sees comes from the message-sent event, never from a local echo.
type Composer struct {
	dir     *Directory
	channel *realtime.Channel

	// onFailure receives the original text when the server rejects the
	// send, so the UI can put it back in the compose box.
	onFailure func(text string, err error)
	timeout   time.Duration
}

// NewComposer builds a composer for the open conversation. onFailure may be
// nil, in which case rejections are only logged.
func NewComposer(dir *Directory, channel *realtime.Channel, onFailure func(string, error)) *Composer {
	return &Composer{
		dir:       dir,
		channel:   channel,
		onFailure: onFailure,
		timeout:   defaultSendTimeout,
	}
}

// Send submits trimmed text to the open conversation. It reports false —
// with no emission and no side effects — for blank text, no open
// conversation, or a disconnected channel. Otherwise it emits and returns
// immediately; the acknowledgment is awaited in the background.
func (c *Composer) Send(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	conversationID, ok := c.dir.OpenID()
	if !ok {
		return false
	}
	if c.channel == nil || !c.channel.Connected() {
		return false
	}

	go c.await(conversationID, text)
	return true
}

func (c *Composer) await(conversationID int64, text string) {
	data, err := c.channel.EmitWithAck(EventSendMessage, sendMessagePayload{
		ConversationID: conversationID,
		Content:        text,
	}, c.timeout)
	if err != nil {
		c.fail(conversationID, text, err)
		return
	}
	var ack sendAck
	if err := json.Unmarshal(data, &ack); err != nil {
		c.fail(conversationID, text, err)
		return
	}
	if !ack.Success {
		c.fail(conversationID, text, ErrSendRejected)
	}
}

func (c *Composer) fail(conversationID int64, text string, err error) {
	slog.Error("message send failed", "conversation", conversationID, "err", err)
	if c.onFailure != nil {
		c.onFailure(text, err)
	}
}
