package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/newsrag/internal/chat"
	"github.com/mohammad-safakhou/newsrag/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Event is the wire format on the websocket channel, both directions.
type Event struct {
	Type      string            `json:"type"`
	SessionID string            `json:"session_id,omitempty"`
	Message   string            `json:"message,omitempty"`
	Typing    bool              `json:"typing,omitempty"`
	Response  string            `json:"response,omitempty"`
	Sources   []models.Source   `json:"sources,omitempty"`
	History   []models.ChatTurn `json:"history,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Hub groups websocket connections into per-session rooms and fans events
// out to them. Room membership is transport-level only; the session store
// knows nothing about it.
type Hub struct {
	Orch Orchestrator

	mu     sync.RWMutex
	rooms  map[string]map[*wsClient]struct{}
	logger *log.Logger
}

func NewHub(orch Orchestrator) *Hub {
	return &Hub{
		Orch:   orch,
		rooms:  make(map[string]map[*wsClient]struct{}),
		logger: log.New(log.Writer(), "[WS] ", log.LstdFlags),
	}
}

type wsClient struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan Event
	done  chan struct{}
	rooms map[string]struct{}
}

// Handle upgrades the request and serves the connection until it closes.
func (h *Hub) Handle(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	client := &wsClient{
		hub:   h,
		conn:  conn,
		send:  make(chan Event, 16),
		done:  make(chan struct{}),
		rooms: make(map[string]struct{}),
	}
	go client.writePump()
	client.readPump()
	return nil
}

func (h *Hub) join(sessionID string, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[sessionID]
	if !ok {
		room = make(map[*wsClient]struct{})
		h.rooms[sessionID] = room
	}
	room[c] = struct{}{}
	c.rooms[sessionID] = struct{}{}
}

func (h *Hub) leave(sessionID string, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[sessionID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, sessionID)
		}
	}
	delete(c.rooms, sessionID)
}

func (h *Hub) drop(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sessionID := range c.rooms {
		if room, ok := h.rooms[sessionID]; ok {
			delete(room, c)
			if len(room) == 0 {
				delete(h.rooms, sessionID)
			}
		}
	}
}

// broadcast sends an event to every subscriber of the session's room.
func (h *Hub) broadcast(sessionID string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[sessionID] {
		select {
		case c.send <- ev:
		default:
			// slow consumer, skip rather than block the pipeline
		}
	}
}

// BroadcastSessionCleared notifies a room that its session was deleted,
// regardless of which transport cleared it.
func (h *Hub) BroadcastSessionCleared(sessionID string) {
	h.broadcast(sessionID, Event{Type: "session_cleared", SessionID: sessionID})
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.drop(c)
		// send stays open: in-flight pipelines may still queue replies,
		// which are dropped once the write pump exits.
		close(c.done)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var ev Event
		if err := c.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Printf("read error: %v", err)
			}
			return
		}
		c.dispatch(ev)
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reply queues an event for this connection only.
func (c *wsClient) reply(ev Event) {
	select {
	case c.send <- ev:
	default:
	}
}

func (c *wsClient) dispatch(ev Event) {
	sessionID := strings.TrimSpace(ev.SessionID)
	if sessionID == "" {
		c.reply(Event{Type: "error", Error: "session_id is required"})
		return
	}

	switch ev.Type {
	case "join":
		c.hub.join(sessionID, c)
	case "leave":
		c.hub.leave(sessionID, c)
	case "message":
		if strings.TrimSpace(ev.Message) == "" {
			c.reply(Event{Type: "error", SessionID: sessionID, Error: "message is required"})
			return
		}
		// The pipeline runs to completion even if this connection goes
		// away; the room simply has nobody left to deliver to.
		go c.processMessage(sessionID, ev.Message)
	case "history":
		turns, err := c.hub.Orch.History(context.Background(), sessionID)
		if err != nil {
			c.reply(Event{Type: "error", SessionID: sessionID, Error: wsErrorMessage(err)})
			return
		}
		if turns == nil {
			turns = []models.ChatTurn{}
		}
		c.reply(Event{Type: "history", SessionID: sessionID, History: turns})
	case "clear":
		existed, err := c.hub.Orch.Clear(context.Background(), sessionID)
		if err != nil {
			c.reply(Event{Type: "error", SessionID: sessionID, Error: wsErrorMessage(err)})
			return
		}
		if existed {
			c.hub.BroadcastSessionCleared(sessionID)
		}
	default:
		c.reply(Event{Type: "error", SessionID: sessionID, Error: "unknown event type"})
	}
}

// processMessage runs the pipeline for one websocket message: typing on,
// then either a response broadcast to the whole room or an error back to the
// originating connection only, always with typing off first.
func (c *wsClient) processMessage(sessionID, message string) {
	c.hub.broadcast(sessionID, Event{Type: "typing", SessionID: sessionID, Typing: true})

	start := time.Now()
	result, err := c.hub.Orch.ProcessQuery(context.Background(), sessionID, message)
	queryDuration.Observe(time.Since(start).Seconds())

	c.hub.broadcast(sessionID, Event{Type: "typing", SessionID: sessionID, Typing: false})

	if err != nil {
		queriesTotal.WithLabelValues("error").Inc()
		c.reply(Event{Type: "error", SessionID: sessionID, Error: wsErrorMessage(err)})
		return
	}
	queriesTotal.WithLabelValues("ok").Inc()

	c.hub.broadcast(sessionID, Event{
		Type:      "response",
		SessionID: sessionID,
		Response:  result.Response,
		Sources:   result.Sources,
	})
}

func wsErrorMessage(err error) string {
	switch {
	case errors.Is(err, chat.ErrValidation):
		return err.Error()
	case errors.Is(err, chat.ErrRetrieval):
		return "retrieval failed"
	case errors.Is(err, chat.ErrGeneration):
		return "generation failed"
	case errors.Is(err, chat.ErrStore):
		return "session store unavailable"
	default:
		return "internal error"
	}
}
