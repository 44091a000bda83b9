package server

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/newsrag/internal/chat"
	"github.com/mohammad-safakhou/newsrag/models"
)

func startWSServer(t *testing.T, orch Orchestrator) (*Hub, string, func()) {
	t.Helper()
	e := echo.New()
	hub := NewHub(orch)
	e.GET("/ws", hub.Handle)
	srv := httptest.NewServer(e)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	return hub, wsURL, srv.Close
}

func dialWS(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func waitForRoomSize(t *testing.T, hub *Hub, sessionID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		got := len(hub.rooms[sessionID])
		hub.mu.RUnlock()
		if got == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("room %s never reached %d members", sessionID, want)
}

// readUntil reads events until one of the wanted type arrives, returning all
// events seen along the way.
func readUntil(t *testing.T, conn *websocket.Conn, eventType string) []Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var seen []Event
	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("waiting for %q, got error after %d events: %v", eventType, len(seen), err)
		}
		seen = append(seen, ev)
		if ev.Type == eventType {
			return seen
		}
	}
}

func TestWSMessageBroadcastsToRoom(t *testing.T) {
	orch := &fakeOrchestrator{result: chat.Result{
		Response: "answer",
		Sources:  []models.Source{{Title: "A", URL: "http://a"}},
	}}
	hub, wsURL, closeSrv := startWSServer(t, orch)
	defer closeSrv()

	sender := dialWS(t, wsURL)
	defer sender.Close()
	watcher := dialWS(t, wsURL)
	defer watcher.Close()

	for _, conn := range []*websocket.Conn{sender, watcher} {
		if err := conn.WriteJSON(Event{Type: "join", SessionID: "s1"}); err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	waitForRoomSize(t, hub, "s1", 2)

	if err := sender.WriteJSON(Event{Type: "message", SessionID: "s1", Message: "hello"}); err != nil {
		t.Fatalf("message: %v", err)
	}

	for _, conn := range []*websocket.Conn{sender, watcher} {
		seen := readUntil(t, conn, "response")
		last := seen[len(seen)-1]
		if last.Response != "answer" || len(last.Sources) != 1 {
			t.Fatalf("unexpected response event: %+v", last)
		}
		var sawTyping bool
		for _, ev := range seen {
			if ev.Type == "typing" && ev.Typing {
				sawTyping = true
			}
		}
		if !sawTyping {
			t.Fatalf("expected a typing indicator before the response")
		}
	}
}

func TestWSErrorGoesToOriginatorOnly(t *testing.T) {
	orch := &fakeOrchestrator{err: fmt.Errorf("%w: model overloaded", chat.ErrGeneration)}
	hub, wsURL, closeSrv := startWSServer(t, orch)
	defer closeSrv()

	sender := dialWS(t, wsURL)
	defer sender.Close()
	watcher := dialWS(t, wsURL)
	defer watcher.Close()

	for _, conn := range []*websocket.Conn{sender, watcher} {
		if err := conn.WriteJSON(Event{Type: "join", SessionID: "s1"}); err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	waitForRoomSize(t, hub, "s1", 2)

	if err := sender.WriteJSON(Event{Type: "message", SessionID: "s1", Message: "hello"}); err != nil {
		t.Fatalf("message: %v", err)
	}

	seen := readUntil(t, sender, "error")
	last := seen[len(seen)-1]
	if last.Error != "generation failed" {
		t.Fatalf("unexpected error payload: %+v", last)
	}
	// typing must have been switched off before the error arrived
	sawTypingOff := false
	for _, ev := range seen {
		if ev.Type == "typing" && !ev.Typing {
			sawTypingOff = true
		}
	}
	if !sawTypingOff {
		t.Fatalf("expected typing(false) before the error event")
	}

	// the watcher sees typing events but never the error
	watcherSeen := readUntil(t, watcher, "typing")
	_ = watcher.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var extra Event
	for {
		if err := watcher.ReadJSON(&extra); err != nil {
			break
		}
		if extra.Type == "error" {
			t.Fatalf("error event leaked to non-originating connection")
		}
	}
	for _, ev := range watcherSeen {
		if ev.Type == "error" {
			t.Fatalf("error event leaked to non-originating connection")
		}
	}
}

func TestWSHistoryAndClear(t *testing.T) {
	orch := &fakeOrchestrator{
		history: []models.ChatTurn{{Role: models.RoleUser, Content: "hi", Timestamp: 1}},
		existed: true,
	}
	hub, wsURL, closeSrv := startWSServer(t, orch)
	defer closeSrv()

	conn := dialWS(t, wsURL)
	defer conn.Close()

	if err := conn.WriteJSON(Event{Type: "join", SessionID: "s1"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	waitForRoomSize(t, hub, "s1", 1)

	if err := conn.WriteJSON(Event{Type: "history", SessionID: "s1"}); err != nil {
		t.Fatalf("history: %v", err)
	}
	seen := readUntil(t, conn, "history")
	if len(seen[len(seen)-1].History) != 1 {
		t.Fatalf("unexpected history event: %+v", seen[len(seen)-1])
	}

	if err := conn.WriteJSON(Event{Type: "clear", SessionID: "s1"}); err != nil {
		t.Fatalf("clear: %v", err)
	}
	seen = readUntil(t, conn, "session_cleared")
	if seen[len(seen)-1].SessionID != "s1" {
		t.Fatalf("unexpected cleared event: %+v", seen[len(seen)-1])
	}
}

func TestWSMissingSessionID(t *testing.T) {
	_, wsURL, closeSrv := startWSServer(t, &fakeOrchestrator{})
	defer closeSrv()

	conn := dialWS(t, wsURL)
	defer conn.Close()

	if err := conn.WriteJSON(Event{Type: "message", Message: "hello"}); err != nil {
		t.Fatalf("message: %v", err)
	}
	seen := readUntil(t, conn, "error")
	if !strings.Contains(seen[len(seen)-1].Error, "session_id") {
		t.Fatalf("unexpected error event: %+v", seen[len(seen)-1])
	}
}
