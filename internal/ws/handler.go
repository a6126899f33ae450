package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/playmatatu/dropzone/internal/scores"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are checked by middleware.WebSocketCORSCheck
	},
}

// Hub maintains the set of active clients
type Hub struct {
	clients    map[string]*Client            // sessionID -> Client
	users      map[string]map[string]*Client // userID -> sessionID -> Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		users:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes registrations until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.sessionID] = client
			if client.userID != "" {
				if _, exists := h.users[client.userID]; !exists {
					h.users[client.userID] = make(map[string]*Client)
				}
				h.users[client.userID][client.sessionID] = client
			}
			h.mu.Unlock()
			log.Printf("[WS] Session %s connected (user=%q)", client.sessionID, client.userID)

		case client := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[client.sessionID]; ok && cur == client {
				delete(h.clients, client.sessionID)
				if conns, exists := h.users[client.userID]; exists {
					delete(conns, client.sessionID)
					if len(conns) == 0 {
						delete(h.users, client.userID)
					}
				}
				client.shutdown()
				log.Printf("[WS] Session %s disconnected", client.sessionID)
			}
			h.mu.Unlock()
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendToUser sends a message to every connection of userID
func (h *Hub) SendToUser(userID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	conns, exists := h.users[userID]
	if !exists {
		return
	}
	for _, client := range conns {
		if !client.enqueue(data) {
			log.Printf("[WS] SendToUser dropped message for session %s (buffer full)", client.sessionID)
		}
	}
}

// Publish forwards a recorded attempt to the user's open connections. It lets
// the hub stand in for Redis pub/sub on a single instance.
func (h *Hub) Publish(_ context.Context, event scores.AttemptEvent) {
	h.SendToUser(event.UserID, Envelope{Type: "stats_updated", Data: event})
}

// WSMessage is an inbound client message.
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Envelope is an outbound server message.
type Envelope struct {
	Type    string      `json:"type"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}
