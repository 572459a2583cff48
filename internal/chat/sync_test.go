package chat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Marcemmanuel1/messagerie-app/internal/api"
	"github.com/Marcemmanuel1/messagerie-app/internal/realtime"
	"github.com/Marcemmanuel1/messagerie-app/pkg/domain"
)

// wireServer upgrades one connection and hands it to fn.
func wireServer(t *testing.T, fn func(conn *websocket.Conn)) *realtime.Channel {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		fn(conn)
	}))
	t.Cleanup(srv.Close)
	ch, err := realtime.Dial(srv.URL, "tok", "device-1")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ch.Close() })
	return ch
}

type emission struct {
	Event string          `json:"event"`
	ID    int64           `json:"id"`
	Data  json.RawMessage `json:"data"`
}

func waitChange(t *testing.T, changes <-chan struct{}) {
	t.Helper()
	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatalf("no state change observed")
	}
}

func TestOpenMarksReadAndLoadsHistory(t *testing.T) {
	history := []domain.Message{
		{ID: 1, ConversationID: 6, SenderID: 9, Content: "bonjour", IsRead: true},
		{ID: 2, ConversationID: 6, SenderID: selfID, Content: "salut"},
	}
	restSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/users":
			json.NewEncoder(w).Encode(map[string]any{"users": []domain.User{}})
		case "/api/conversations":
			json.NewEncoder(w).Encode(map[string]any{"conversations": threeConversations()})
		case "/api/messages/6":
			json.NewEncoder(w).Encode(map[string]any{"messages": history})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer restSrv.Close()

	emitted := make(chan emission, 4)
	channel := wireServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		for {
			var env emission
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			emitted <- env
		}
	})

	d := NewDirectory(api.NewClient(restSrv.URL))
	if err := d.Load("tok"); err != nil {
		t.Fatalf("load: %v", err)
	}
	s := NewSync(d, channel, selfID, "tok", nil)

	conv, _ := d.Conversation(6) // 5 unread
	if err := s.Open(conv); err != nil {
		t.Fatalf("open: %v", err)
	}

	select {
	case env := <-emitted:
		if env.Event != EventMarkAsRead {
			t.Fatalf("emitted %q, want %q", env.Event, EventMarkAsRead)
		}
		var p struct {
			ConversationID int64 `json:"conversationId"`
		}
		json.Unmarshal(env.Data, &p)
		if p.ConversationID != 6 {
			t.Fatalf("mark-as-read for conversation %d, want 6", p.ConversationID)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("opening an unread conversation must emit mark-as-read")
	}

	if !d.HistoryLoaded() {
		t.Fatalf("history not installed after open")
	}
	if got := len(d.Messages()); got != 2 {
		t.Fatalf("history length = %d, want 2", got)
	}
	opened, _ := d.Conversation(6)
	if opened.UnreadCount != 0 {
		t.Fatalf("unread = %d after open, want 0", opened.UnreadCount)
	}
}

func TestPushedPeerMessageIsAcknowledged(t *testing.T) {
	push := make(chan domain.Message, 1)
	emitted := make(chan emission, 2)
	channel := wireServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		msg := <-push
		data, _ := json.Marshal(msg)
		conn.WriteJSON(map[string]any{"event": EventNewMessage, "data": json.RawMessage(data)})
		for {
			var env emission
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			emitted <- env
		}
	})

	d := seedDirectory(t, nil, threeConversations())
	changes := make(chan struct{}, 8)
	NewSync(d, channel, selfID, "tok", func() { changes <- struct{}{} })

	conv, _ := d.Conversation(4)
	d.SelectConversation(conv)
	d.FinishHistoryLoad(4, nil)

	push <- domain.Message{ID: 300, ConversationID: 4, SenderID: 2, Content: "coucou"}
	waitChange(t, changes)

	select {
	case env := <-emitted:
		if env.Event != EventMarkAsRead {
			t.Fatalf("emitted %q, want %q", env.Event, EventMarkAsRead)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("peer message in the open conversation must be acknowledged")
	}
	if got := len(d.Messages()); got != 1 {
		t.Fatalf("message not appended, list length = %d", got)
	}
}

func TestPushedEventsUpdateDirectory(t *testing.T) {
	type frame struct {
		event string
		data  any
	}
	frames := make(chan frame, 4)
	channel := wireServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		for f := range frames {
			data, _ := json.Marshal(f.data)
			if err := conn.WriteJSON(map[string]any{"event": f.event, "data": json.RawMessage(data)}); err != nil {
				return
			}
		}
	})

	users := []domain.User{{ID: 3, Name: "Chloé", Status: domain.StatusOffline}}
	d := seedDirectory(t, users, threeConversations())
	changes := make(chan struct{}, 8)
	NewSync(d, channel, selfID, "tok", func() { changes <- struct{}{} })

	frames <- frame{EventUserStatusChanged, map[string]any{"userId": 3, "status": domain.StatusOnline}}
	waitChange(t, changes)
	if got := d.Users()[0].Status; got != domain.StatusOnline {
		t.Fatalf("status = %q after push, want %q", got, domain.StatusOnline)
	}

	frames <- frame{EventConversationUpdated, domain.Conversation{ID: 4, OtherUserID: 2, OtherUserName: "Bob", UnreadCount: 0, LastMessage: "vu"}}
	waitChange(t, changes)
	conv, _ := d.Conversation(4)
	if conv.UnreadCount != 0 || conv.LastMessage != "vu" {
		t.Fatalf("conversation not replaced: %+v", conv)
	}
	close(frames)
}
