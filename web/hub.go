package web

import (
	"encoding/json"
	"log/slog"
)

// Message is the envelope for everything sent over the WebSocket stream.
// Type mirrors session.EventType wire names, plus "recorded" payloads from
// the record-next-key workflow.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// EventMessage carries a single session event.
type EventMessage struct {
	Code    uint16 `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Hub fans broadcast messages out to all connected dashboard clients.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
}

// NewHub creates a hub; call Run on its own goroutine.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run owns the client set; all membership changes and broadcasts go through
// here.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// slow client, drop it
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// BroadcastMessage encodes and queues a message for every client.
func (h *Hub) BroadcastMessage(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to encode broadcast message", "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}
