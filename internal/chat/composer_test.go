package chat

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Marcemmanuel1/messagerie-app/pkg/domain"
)

func TestSendRefusesBlankAndUnselected(t *testing.T) {
	d := seedDirectory(t, nil, threeConversations())
	frames := make(chan emission, 1)
	channel := wireServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		for {
			var env emission
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			frames <- env
		}
	})
	c := NewComposer(d, channel, nil)

	if c.Send("") {
		t.Fatalf("blank text must not send")
	}
	if c.Send("   \t ") {
		t.Fatalf("whitespace-only text must not send")
	}
	if c.Send("bonjour") {
		t.Fatalf("sending with no open conversation must be refused")
	}

	conv, _ := d.Conversation(4)
	d.SelectConversation(conv)
	channel.Close()
	if c.Send("bonjour") {
		t.Fatalf("sending on a closed channel must be refused")
	}

	select {
	case env := <-frames:
		t.Fatalf("refused sends must not emit, got %q", env.Event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSendEmitsTrimmedTextAndAwaitsAck(t *testing.T) {
	d := seedDirectory(t, nil, threeConversations())
	channel := wireServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		var env emission
		if err := conn.ReadJSON(&env); err != nil {
			t.Errorf("read emission: %v", err)
			return
		}
		if env.Event != EventSendMessage {
			t.Errorf("emitted %q, want %q", env.Event, EventSendMessage)
		}
		var p struct {
			ConversationID int64  `json:"conversationId"`
			Content        string `json:"content"`
		}
		json.Unmarshal(env.Data, &p)
		if p.ConversationID != 4 || p.Content != "salut" {
			t.Errorf("payload %+v", p)
		}
		ack, _ := json.Marshal(sendAck{Success: true, Message: domain.Message{ID: 400, ConversationID: 4, Content: "salut"}})
		conn.WriteJSON(map[string]any{"event": "ack", "id": env.ID, "data": json.RawMessage(ack)})
	})

	failures := make(chan string, 1)
	c := NewComposer(d, channel, func(text string, err error) { failures <- text })
	conv, _ := d.Conversation(4)
	d.SelectConversation(conv)

	if !c.Send("  salut  ") {
		t.Fatalf("send should be accepted")
	}
	select {
	case text := <-failures:
		t.Fatalf("accepted send reported failure for %q", text)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestSendFailureRestoresText(t *testing.T) {
	d := seedDirectory(t, nil, threeConversations())
	channel := wireServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		var env emission
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		ack, _ := json.Marshal(sendAck{Success: false})
		conn.WriteJSON(map[string]any{"event": "ack", "id": env.ID, "data": json.RawMessage(ack)})
	})

	type failure struct {
		text string
		err  error
	}
	failures := make(chan failure, 1)
	c := NewComposer(d, channel, func(text string, err error) { failures <- failure{text, err} })
	conv, _ := d.Conversation(4)
	d.SelectConversation(conv)

	if !c.Send("message perdu") {
		t.Fatalf("send should be accepted before the rejection arrives")
	}
	select {
	case f := <-failures:
		if f.text != "message perdu" {
			t.Fatalf("failure callback got %q, want the original text", f.text)
		}
		if !errors.Is(f.err, ErrSendRejected) {
			t.Fatalf("failure err = %v, want ErrSendRejected", f.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("rejected send must invoke the failure callback")
	}
}

func TestSendTimeoutRestoresText(t *testing.T) {
	d := seedDirectory(t, nil, threeConversations())
	channel := wireServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		// Swallow the emission, never acknowledge.
		conn.ReadMessage()
		time.Sleep(500 * time.Millisecond)
	})

	failures := make(chan error, 1)
	c := NewComposer(d, channel, func(text string, err error) { failures <- err })
	c.timeout = 50 * time.Millisecond
	conv, _ := d.Conversation(4)
	d.SelectConversation(conv)

	if !c.Send("perdu") {
		t.Fatalf("send should be accepted")
	}
	select {
	case err := <-failures:
		if err == nil {
			t.Fatalf("timeout must report an error")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed-out send must invoke the failure callback")
	}
}
