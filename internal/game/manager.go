package game

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when a session ID is unknown or expired.
var ErrSessionNotFound = errors.New("session not found")

// Session is one live simulation bound to a player connection.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	Runner    *Runner

	cancel       context.CancelFunc
	lastActivity atomic.Int64
}

// Send forwards cmd to the session's runner and refreshes its idle timer.
func (s *Session) Send(ctx context.Context, cmd Command) (bool, error) {
	s.Touch()
	return s.Runner.Send(ctx, cmd)
}

// Touch marks the session as active now.
func (s *Session) Touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// LastActivity returns the time of the last command.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// Manager tracks all live simulation sessions.
type Manager struct {
	sessions    map[string]*Session // keyed by session ID
	config      Config
	frames      FrameSourceFunc
	idleTimeout time.Duration
	mu          sync.RWMutex
}

// NewManager creates a session manager. A zero idleTimeout disables expiry.
func NewManager(cfg Config, frames FrameSourceFunc, idleTimeout time.Duration) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		config:      cfg,
		frames:      frames,
		idleTimeout: idleTimeout,
	}
}

// generateSessionID generates a unique session ID
func generateSessionID() string {
	return "sess_" + uuid.NewString()
}

// Open creates a simulation, lets setup attach observers, and starts its runner.
// The session lives until Close, expiry, or cancellation of ctx.
func (m *Manager) Open(ctx context.Context, userID string, setup func(*Simulation)) *Session {
	sim := NewSimulation(m.config)
	if setup != nil {
		setup(sim)
	}

	runCtx, cancel := context.WithCancel(ctx)
	sess := &Session{
		ID:        generateSessionID(),
		UserID:    userID,
		CreatedAt: time.Now(),
		Runner:    NewRunner(sim, m.frames),
		cancel:    cancel,
	}
	sess.Touch()

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	go func() {
		sess.Runner.Run(runCtx)
		m.remove(sess.ID)
	}()

	log.Printf("[GAME] Session %s opened (user=%q)", sess.ID, userID)
	return sess
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Close tears a session down, cancelling any pending frame callback.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return false
	}
	sess.cancel()
	log.Printf("[GAME] Session %s closed", id)
	return true
}

// ActiveCount returns the number of live sessions.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseIdle closes sessions whose last command is older than the idle timeout.
func (m *Manager) CloseIdle(now time.Time) int {
	if m.idleTimeout <= 0 {
		return 0
	}

	// Collect candidates under read lock
	m.mu.RLock()
	var expired []string
	for id, sess := range m.sessions {
		if now.Sub(sess.LastActivity()) > m.idleTimeout {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	closed := 0
	for _, id := range expired {
		if m.Close(id) {
			closed++
		}
	}
	return closed
}

// StartExpiryChecker closes idle sessions every interval until ctx is done.
func (m *Manager) StartExpiryChecker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := m.CloseIdle(now); n > 0 {
				log.Printf("[GAME] Expired %d idle sessions", n)
			}
		}
	}
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
