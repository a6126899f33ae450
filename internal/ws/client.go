package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/playmatatu/dropzone/internal/auth"
	"github.com/playmatatu/dropzone/internal/game"
	"github.com/playmatatu/dropzone/internal/scores"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 256
)

// ResizeData is the payload of a resize message.
type ResizeData struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Client is one websocket connection driving its own simulation.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	session   *game.Session
	manager   *game.Manager
	svc       *scores.Service
	sessionID string
	userID    string
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// HandleWebSocket upgrades the request and opens a simulation session for it.
// Anonymous connections can play; their landings are not recorded.
func HandleWebSocket(hub *Hub, manager *game.Manager, svc *scores.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.CurrentUser(c)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] Upgrade error: %v", err)
			return
		}

		client := &Client{
			hub:     hub,
			conn:    conn,
			manager: manager,
			svc:     svc,
			userID:  userID,
			send:    make(chan []byte, sendBuffer),
			done:    make(chan struct{}),
		}
		client.session = manager.Open(context.Background(), userID, func(sim *game.Simulation) {
			sim.Subscribe(client.pushState)
			sim.OnLanded(client.onLanded)
		})
		client.sessionID = client.session.ID

		hub.register <- client

		go client.writePump()
		go client.readPump()
		go client.greet()
	}
}

// greet sends the initial state and, for identified players, their stats.
func (c *Client) greet() {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	snap, err := c.session.Runner.Snapshot(ctx)
	if err != nil {
		return
	}
	c.sendJSON(Envelope{Type: "state", Data: snap})

	if c.userID != "" {
		c.refreshStats(ctx)
	}
}

// readPump reads client commands until the connection drops.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.manager.Close(c.sessionID)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Unexpected close for session %s: %v", c.sessionID, err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("Invalid message")
			continue
		}

		if !c.handleMessage(msg) {
			break
		}
	}
}

// handleMessage applies one client message. It returns false once the
// session can no longer accept commands.
func (c *Client) handleMessage(msg WSMessage) bool {
	cmd := game.Command{Type: game.CommandType(msg.Type)}

	switch cmd.Type {
	case game.CommandStart, game.CommandDrop, game.CommandReset:
	case game.CommandResize:
		var data ResizeData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid resize data")
			return true
		}
		cmd.Width, cmd.Height = data.Width, data.Height
	default:
		c.sendError("Unknown message type")
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	// Commands that do not apply to the current state are ignored silently.
	if _, err := c.session.Send(ctx, cmd); err != nil {
		if errors.Is(err, game.ErrRunnerStopped) {
			c.sendError("Session expired")
			return false
		}
		log.Printf("[WS] Command %s failed for session %s: %v", cmd.Type, c.sessionID, err)
	}
	return true
}

// pushState runs on the runner goroutine and must not block.
func (c *Client) pushState(snap game.Snapshot) {
	c.sendJSON(Envelope{Type: "state", Data: snap})
}

// onLanded runs on the runner goroutine. Persistence is handed off so the
// simulation never waits on the store.
func (c *Client) onLanded(landing game.Landing) {
	c.sendJSON(Envelope{Type: "landed", Data: landing})
	go c.persistLanding(landing)
}

func (c *Client) persistLanding(landing game.Landing) {
	ctx := context.Background()
	if _, err := c.svc.RecordAttempt(ctx, c.userID, landing.Score, landing.Distance); err != nil {
		if errors.Is(err, scores.ErrPermissionDenied) {
			c.notice("Your score could not be saved: access denied by the score store.")
		}
		return
	}
	c.refreshStats(ctx)
}

func (c *Client) refreshStats(ctx context.Context) {
	stats, err := c.svc.LoadStats(ctx, c.userID)
	if err != nil {
		if errors.Is(err, scores.ErrPermissionDenied) {
			c.notice("Your stats could not be loaded: access denied by the score store.")
		}
		return
	}
	c.sendJSON(Envelope{Type: "stats", Data: stats})

	if err := c.session.Runner.Do(ctx, func(s *game.Simulation) {
		s.SetKnownBest(stats.BestScore)
	}); err != nil && !errors.Is(err, game.ErrRunnerStopped) {
		log.Printf("[WS] Failed to update known best for session %s: %v", c.sessionID, err)
	}
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] Write error for session %s: %v", c.sessionID, err)
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] Ping error for session %s: %v", c.sessionID, err)
				return
			}
		}
	}
}

// enqueue queues data without blocking. It reports false when the buffer is full.
func (c *Client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) sendJSON(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}
	if !c.enqueue(data) {
		log.Printf("[WS] Dropped message for session %s (buffer full)", c.sessionID)
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	c.sendJSON(Envelope{Type: "error", Message: message})
}

func (c *Client) notice(message string) {
	c.sendJSON(Envelope{Type: "notice", Message: message})
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}
