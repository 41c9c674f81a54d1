package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T, h *Hub) (*httptest.Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", h.ServeUpgrade)
	srv := httptest.NewServer(r)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	return srv, wsURL
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestUnknownVerbProducesErrorFrame(t *testing.T) {
	h := NewHub()
	srv, url := newTestServer(t, h)
	defer srv.Close()

	client := dial(t, url)
	defer client.Close()

	if err := client.WriteJSON(map[string]any{"t": "nope", "data": map[string]any{}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env outboundEnvelope
	if err := client.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	if env.T != "error" {
		t.Fatalf("expected error envelope, got %q", env.T)
	}
}

func TestRegisteredHandlerIsDispatched(t *testing.T) {
	h := NewHub()
	called := make(chan struct{}, 1)
	h.Handle("hello", func(c *Conn, data []byte) {
		called <- struct{}{}
		_ = c.Send("welcome", map[string]any{"protocol": 1})
	})
	srv, url := newTestServer(t, h)
	defer srv.Close()

	client := dial(t, url)
	defer client.Close()

	if err := client.WriteJSON(map[string]any{"t": "hello", "data": map[string]any{}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env outboundEnvelope
	if err := client.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	if env.T != "welcome" || env.V != 1 {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestMalformedJSONIsSilentlyDropped(t *testing.T) {
	h := NewHub()
	malformed := make(chan struct{}, 1)
	h.OnMalformed(func() { malformed <- struct{}{} })
	srv, url := newTestServer(t, h)
	defer srv.Close()

	client := dial(t, url)
	defer client.Close()

	if err := client.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-malformed:
	case <-time.After(2 * time.Second):
		t.Fatal("malformed callback was not invoked")
	}
}

func TestBroadcastRoomOnlyReachesAttachedConnections(t *testing.T) {
	h := NewHub()
	h.Handle("join", func(c *Conn, data []byte) {
		var p struct {
			RoomID string `json:"roomId"`
		}
		_ = json.Unmarshal(data, &p)
		c.SetRoomID(p.RoomID)
		_ = c.Send("joined", nil)
	})
	srv, url := newTestServer(t, h)
	defer srv.Close()

	inRoom := dial(t, url)
	defer inRoom.Close()
	outOfRoom := dial(t, url)
	defer outOfRoom.Close()

	if err := inRoom.WriteJSON(map[string]any{"t": "join", "data": map[string]any{"roomId": "ROOM1"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	inRoom.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ack outboundEnvelope
	if err := inRoom.ReadJSON(&ack); err != nil {
		t.Fatalf("read join ack: %v", err)
	}

	// give the registry a moment to observe the room attachment
	deadline := time.Now().Add(2 * time.Second)
	for h.Registry.Len() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	h.Registry.BroadcastRoom("ROOM1", "frame_committed", map[string]any{"roomId": "ROOM1", "frameIndex": 0})

	inRoom.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got outboundEnvelope
	if err := inRoom.ReadJSON(&got); err != nil {
		t.Fatalf("expected broadcast on attached connection: %v", err)
	}
	if got.T != "frame_committed" {
		t.Fatalf("unexpected envelope type: %q", got.T)
	}

	outOfRoom.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if err := outOfRoom.ReadJSON(&got); err == nil {
		t.Fatal("unattached connection should not receive the room broadcast")
	}
}
