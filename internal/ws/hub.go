package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"FirstContact/entity"
	"FirstContact/internal/lib/sl"
)

const (
	EventMessage = "message"
	EventReset   = "reset"
)

// Event represents a WebSocket event sent to operator clients.
type Event struct {
	Type   string      `json:"type"`
	UserID string      `json:"user_id"`
	Data   interface{} `json:"data,omitempty"`
}

// Hub maintains the set of active operator clients and fans out dialog events.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *Event
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	log        *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log.With(sl.Module("ws.hub")),
	}
}

// Run serves the hub until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Debug("client connected", slog.String("username", client.username))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.log.Warn("encoding event", sl.Err(err))
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				if !client.follows(event.UserID) {
					continue
				}
				select {
				case client.send <- data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastMessage publishes a transcript entry. Events are dropped when the
// queue is full so dialog turns never wait on operators.
func (h *Hub) BroadcastMessage(msg entity.ChatMessage) {
	h.publish(&Event{Type: EventMessage, UserID: msg.UserID, Data: msg})
}

// BroadcastReset tells operators a dialog was cleared.
func (h *Hub) BroadcastReset(userID string) {
	h.publish(&Event{Type: EventReset, UserID: userID})
}

func (h *Hub) publish(event *Event) {
	select {
	case h.broadcast <- event:
	default:
		h.log.Warn("event queue full, dropping", slog.String("type", event.Type))
	}
}
