// Package ws pushes live map events to connected screens over WebSocket:
// location fixes, marker changes, and bottom-sheet state transitions.
//
// Each map screen opens one connection identified by a session ID. The hub
// keeps the registry behind a RWMutex; writes to a single connection are
// serialized by a per-connection mutex because gorilla/websocket allows at
// most one concurrent writer.
package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/cleanCodeCultureSRL/returo-mca/internal/model"
)

// Message is the single frame shape for the map feed. Unused fields are
// omitted so every message type shares one envelope.
type Message struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp,omitempty"`
	MarkerID  string          `json:"markerId,omitempty"`
	Marker    *model.Marker   `json:"marker,omitempty"`
	Location  *model.Location `json:"location,omitempty"`
	Sheet     string          `json:"sheet,omitempty"`
	Progress  float64         `json:"progress"`
	Message   string          `json:"message,omitempty"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub manages the WebSocket connections of active map screens.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	logger  *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		logger:  logger,
	}
}

// Register attaches a connection for a map session, closing any previous
// connection with the same session ID.
func (h *Hub) Register(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.clients[sessionID]; ok {
		existing.conn.Close()
	}
	h.clients[sessionID] = &client{conn: conn}

	h.logger.Info("map feed connected", slog.String("sessionID", sessionID))
}

// Unregister removes and closes a session's connection.
func (h *Hub) Unregister(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[sessionID]; ok {
		c.conn.Close()
		delete(h.clients, sessionID)
		h.logger.Info("map feed disconnected", slog.String("sessionID", sessionID))
	}
}

// SendTo delivers a message to one session. A write failure drops the
// connection — the client will reconnect and reload state.
func (h *Hub) SendTo(sessionID string, msg Message) error {
	h.mu.RLock()
	c, ok := h.clients[sessionID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("ws: session %s is not connected", sessionID)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("ws: marshaling message: %w", err)
	}

	if err := c.send(data); err != nil {
		h.Unregister(sessionID)
		return fmt.Errorf("ws: sending to %s: %w", sessionID, err)
	}
	return nil
}

// Broadcast delivers a message to every connected session. Failed
// connections are dropped; the rest still receive the message.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("broadcast marshal failed", slog.String("error", err.Error()))
		return
	}

	h.mu.RLock()
	targets := make(map[string]*client, len(h.clients))
	for id, c := range h.clients {
		targets[id] = c
	}
	h.mu.RUnlock()

	for id, c := range targets {
		if err := c.send(data); err != nil {
			h.logger.Warn("broadcast send failed, dropping connection",
				slog.String("sessionID", id),
				slog.String("error", err.Error()),
			)
			h.Unregister(id)
		}
	}
}

// Connected reports whether a session currently has a live connection.
func (h *Hub) Connected(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[sessionID]
	return ok
}
