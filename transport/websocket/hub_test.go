package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/sliding-blocks/game/engine"
)

func testState() *engine.GameState {
	return &engine.GameState{
		PuzzleID: "classic",
		Width:    3,
		Height:   2,
		Layout:   []string{"T.V", "..V"},
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.sessions == nil {
		t.Error("Hub sessions map is nil")
	}
	if hub.broadcast == nil || hub.register == nil || hub.unregister == nil {
		t.Error("Hub channels not initialized")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub()

	client := &Client{
		hub:       hub,
		sessionID: "AbC1",
		send:      make(chan []byte, sendBuffer),
	}
	hub.registerClient(client)

	// Session keys are case-insensitive
	if !hub.sessions["abc1"][client] {
		t.Error("Client was not registered in session")
	}
	if len(hub.sessions["abc1"]) != 1 {
		t.Errorf("Expected 1 client in session, got %d", len(hub.sessions["abc1"]))
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub()

	client := &Client{
		hub:       hub,
		sessionID: "test-session",
		send:      make(chan []byte, sendBuffer),
	}

	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.sessions["test-session"]; exists {
		t.Error("Session should have been cleaned up after last client unregistered")
	}
	if _, ok := <-client.send; ok {
		t.Error("send channel should be closed")
	}

	// Second unregister must not panic on the closed channel
	hub.unregisterClient(client)
}

func TestHubMultipleClientsInSession(t *testing.T) {
	hub := NewHub()
	sessionID := "multi"

	client1 := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, sendBuffer)}
	client2 := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, sendBuffer)}
	other := &Client{hub: hub, sessionID: "other", send: make(chan []byte, sendBuffer)}

	hub.registerClient(client1)
	hub.registerClient(client2)
	hub.registerClient(other)

	if len(hub.sessions[sessionID]) != 2 {
		t.Errorf("Expected 2 clients in session, got %d", len(hub.sessions[sessionID]))
	}

	hub.broadcastMessage(&Message{SessionID: sessionID, GameState: testState(), Event: EventStateUpdate})

	for i, c := range []*Client{client1, client2} {
		select {
		case <-c.send:
		default:
			t.Errorf("client%d did not receive the broadcast", i+1)
		}
	}
	select {
	case <-other.send:
		t.Error("client of another session received the broadcast")
	default:
	}

	hub.unregisterClient(client1)
	if !hub.sessions[sessionID][client2] || len(hub.sessions[sessionID]) != 1 {
		t.Error("client2 should be the only one left")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub()
	slow := &Client{hub: hub, sessionID: "slow", send: make(chan []byte)}
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{SessionID: "slow", Event: EventStateUpdate})

	if _, exists := hub.sessions["slow"]; exists {
		t.Error("slow client should have been unregistered")
	}
}

func TestHubBroadcastToSession(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Close()

	client := &Client{hub: hub, sessionID: "broadcast-test", send: make(chan []byte, sendBuffer)}
	hub.register <- client

	hub.BroadcastToSession("BROADCAST-TEST", testState())

	select {
	case data := <-client.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.Event != EventStateUpdate {
			t.Errorf("Expected event %q, got %s", EventStateUpdate, message.Event)
		}
		if message.GameState == nil || message.GameState.Layout[0] != "T.V" {
			t.Errorf("GameState not correctly transmitted: %+v", message.GameState)
		}
	case <-time.After(time.Second):
		t.Error("No message received within timeout")
	}
}

func TestHubBroadcastEvent(t *testing.T) {
	hub := NewHub()

	hub.BroadcastEvent("event-test", "solved", map[string]int{"moves": 3})

	select {
	case message := <-hub.broadcast:
		if message.SessionID != "event-test" || message.Event != "solved" {
			t.Errorf("unexpected message: %+v", message)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("No broadcast message queued")
	}
}

func TestHubClose(t *testing.T) {
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run()
		close(stopped)
	}()

	client := &Client{hub: hub, sessionID: "s", send: make(chan []byte, sendBuffer)}
	hub.register <- client

	hub.Close()
	hub.Close()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}
	if _, ok := <-client.send; ok {
		t.Error("client channel should be closed on shutdown")
	}
	if n := hub.ClientCount("s"); n != 0 {
		t.Errorf("ClientCount after Close = %d", n)
	}
}

func newWSServer(hub *Hub, initial *engine.GameState) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"), initial)
	}))
}

func waitForClients(t *testing.T, hub *Hub, sessionID string, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount(sessionID) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d clients for %s, got %d", want, sessionID, hub.ClientCount(sessionID))
}

func TestWebSocketLifecycle(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Close()

	server := newWSServer(hub, nil)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=ws-test"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}

	waitForClients(t, hub, "ws-test", 1)

	conn.Close()
	waitForClients(t, hub, "ws-test", 0)
}

func TestWebSocketMessageReceive(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Close()

	initial := testState()
	server := newWSServer(hub, initial)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=msg-test"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	read := func() Message {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read WebSocket message: %v", err)
		}
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		return message
	}

	snapshot := read()
	if snapshot.Event != EventSnapshot || snapshot.GameState.PuzzleID != "classic" {
		t.Errorf("Expected snapshot first, got %+v", snapshot)
	}

	waitForClients(t, hub, "msg-test", 1)

	moved := testState()
	moved.Layout = []string{".TV", "..V"}
	moved.TotalMoves = 1
	hub.BroadcastToSession("msg-test", moved)

	update := read()
	if update.SessionID != "msg-test" || update.Event != EventStateUpdate {
		t.Errorf("unexpected update: %+v", update)
	}
	if update.GameState.Layout[0] != ".TV" || update.GameState.TotalMoves != 1 {
		t.Errorf("GameState not correctly received: %+v", update.GameState)
	}
}
