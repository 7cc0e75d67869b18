package hub

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"slotly/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
}

// dial opens a real websocket pair through an httptest server and returns
// both ends. The server side is what the hub manages.
func dial(t *testing.T) (server *websocket.Conn, client *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	accepted := make(chan *websocket.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		accepted <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	select {
	case server = <-accepted:
	case <-time.After(time.Second):
		t.Fatal("server never accepted the connection")
	}
	t.Cleanup(func() { _ = server.Close() })

	return server, client
}

func TestSend_DeliversJSONPayload(t *testing.T) {
	h := NewHub(testLogger())
	server, client := dial(t)
	h.Connect("user-1", server)

	payload := map[string]string{"message": "booking confirmed"}
	if !h.Send("user-1", payload) {
		t.Fatal("expected send to succeed")
	}

	var received map[string]string
	_ = client.SetReadDeadline(time.Now().Add(time.Second))
	if err := client.ReadJSON(&received); err != nil {
		t.Fatalf("failed to read pushed payload: %v", err)
	}
	if received["message"] != "booking confirmed" {
		t.Fatalf("unexpected payload: %v", received)
	}
}

func TestSend_NoConnection(t *testing.T) {
	h := NewHub(testLogger())

	if h.Send("nobody", map[string]string{"message": "hello"}) {
		t.Fatal("send without a connection should report false")
	}
}

func TestConnect_ReplacesStaleConnection(t *testing.T) {
	h := NewHub(testLogger())
	stale, _ := dial(t)
	fresh, freshClient := dial(t)

	h.Connect("user-1", stale)
	h.Connect("user-1", fresh)

	if got := h.ConnectedCount(); got != 1 {
		t.Fatalf("expected 1 connection after reconnect, got %d", got)
	}

	if !h.Send("user-1", map[string]string{"message": "after reconnect"}) {
		t.Fatal("expected send to reach the fresh connection")
	}
	var received map[string]string
	_ = freshClient.SetReadDeadline(time.Now().Add(time.Second))
	if err := freshClient.ReadJSON(&received); err != nil {
		t.Fatalf("fresh connection did not receive the payload: %v", err)
	}
}

func TestDisconnect_OnlyRemovesOwnConnection(t *testing.T) {
	h := NewHub(testLogger())
	stale, _ := dial(t)
	fresh, _ := dial(t)

	h.Connect("user-1", stale)
	h.Connect("user-1", fresh)

	// The stale connection's read loop fires its deferred disconnect after
	// the reconnect; the fresh connection must survive it.
	h.Disconnect("user-1", stale)
	if got := h.ConnectedCount(); got != 1 {
		t.Fatalf("expected fresh connection to survive, got %d connections", got)
	}

	h.Disconnect("user-1", fresh)
	if got := h.ConnectedCount(); got != 0 {
		t.Fatalf("expected no connections, got %d", got)
	}
}

func TestSend_DropsConnectionOnWriteFailure(t *testing.T) {
	h := NewHub(testLogger())
	server, client := dial(t)
	h.Connect("user-1", server)

	_ = client.Close()
	_ = server.Close()

	if h.Send("user-1", map[string]string{"message": "too late"}) {
		t.Fatal("send over a closed connection should report false")
	}
	if got := h.ConnectedCount(); got != 0 {
		t.Fatalf("failed connection should be dropped, got %d", got)
	}
}

func TestClose_DropsEverything(t *testing.T) {
	h := NewHub(testLogger())
	first, _ := dial(t)
	second, _ := dial(t)

	h.Connect("user-1", first)
	h.Connect("user-2", second)
	h.Close()

	if got := h.ConnectedCount(); got != 0 {
		t.Fatalf("expected empty hub after close, got %d", got)
	}
}
