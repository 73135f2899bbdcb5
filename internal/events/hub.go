package events

import (
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 2 * time.Second

// Hub fans events out to every connected TCP and WebSocket subscriber.
// Slow or dead subscribers are dropped, never waited on: broadcasting from
// the import pipeline must not stall an import group.
type Hub struct {
	mu  sync.Mutex
	tcp map[net.Conn]struct{}
	ws  map[*websocket.Conn]struct{}
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
}

func NewHub() *Hub {
	return &Hub{
		tcp: make(map[net.Conn]struct{}),
		ws:  make(map[*websocket.Conn]struct{}),
	}
}

func (h *Hub) Add(conn net.Conn) {
	h.mu.Lock()
	h.tcp[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	delete(h.tcp, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Hub) AddWS(conn *websocket.Conn) {
	h.mu.Lock()
	h.ws[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) RemoveWS(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.ws, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

// Publish broadcasts one typed event to all subscribers.
func (h *Hub) Publish(t Type, payload any) {
	h.BroadcastJSON(Event{Type: t, Payload: payload})
}

// BroadcastJSON sends v to every subscriber: one newline-terminated JSON
// object on TCP, one text message on WebSocket. Unmarshalable values and
// failed writes are dropped silently; the feed is best-effort by contract.
func (h *Hub) BroadcastJSON(v any) {
	line, err := json.Marshal(v)
	if err != nil {
		return
	}
	line = append(line, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.tcp {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := conn.Write(line); err != nil {
			_ = conn.Close()
			delete(h.tcp, conn)
		}
	}

	for conn := range h.ws {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, line); err != nil {
			_ = conn.Close()
			delete(h.ws, conn)
		}
	}
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.tcp)
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{TCPClients: len(h.tcp), WSClients: len(h.ws)}
}

// Welcome greets a fresh TCP subscriber so clients can confirm the feed is
// alive before the first real event arrives.
func (h *Hub) Welcome(conn net.Conn) {
	msg, _ := json.Marshal(Event{Type: "welcome", Payload: h.Stats()})
	_, _ = conn.Write(append(msg, '\n'))
}
