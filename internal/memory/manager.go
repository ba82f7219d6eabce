package memory

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager owns the chat sessions served by this process
type Manager struct {
	chat   Chatter
	gate   Gate
	conn   Connectivity
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a new session manager. A nil gate means an in-process LocalGate.
func NewManager(chat Chatter, gate Gate, conn Connectivity, logger *slog.Logger) *Manager {
	if gate == nil {
		gate = NewLocalGate()
	}
	return &Manager{
		chat:     chat,
		gate:     gate,
		conn:     conn,
		logger:   logger.With("component", "sessions"),
		sessions: make(map[string]*Session),
	}
}

// GetOrCreateSession gets or creates the session with the given id
func (m *Manager) GetOrCreateSession(ctx context.Context, sessionID string) *Session {
	m.mu.RLock()
	s, exists := m.sessions[sessionID]
	m.mu.RUnlock()
	if exists {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Check again, another caller may have created it meanwhile
	if s, exists := m.sessions[sessionID]; exists {
		return s
	}

	s = newSession(ctx, sessionID, m.chat, m.gate, m.conn, m.logger)
	m.sessions[sessionID] = s

	m.logger.Info("created session", "session_id", sessionID)
	return s
}

// NewSession creates a session with a fresh random id
func (m *Manager) NewSession(ctx context.Context) *Session {
	return m.GetOrCreateSession(ctx, uuid.NewString())
}

// GetSession returns an existing session
func (m *Manager) GetSession(sessionID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

// ClearSession drops a session and its in-process busy flag. It reports whether
// the session existed.
func (m *Manager) ClearSession(sessionID string) bool {
	m.mu.Lock()
	_, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	m.forget(sessionID)

	if ok {
		m.logger.Info("cleared session", "session_id", sessionID)
	}
	return ok
}

// EvictIdle clears every session whose last activity is before cutoff and that
// has no message in flight. It returns the number of evicted sessions.
func (m *Manager) EvictIdle(cutoff time.Time) int {
	m.mu.Lock()
	var idle []string
	for id, s := range m.sessions {
		if since, ok := s.idleSince(); ok && since.Before(cutoff) {
			idle = append(idle, id)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, id := range idle {
		m.forget(id)
		m.logger.Info("evicted idle session", "session_id", id)
	}
	return len(idle)
}

// RunEviction clears sessions idle for longer than ttl, checking every ttl/2,
// until ctx is done.
func (m *Manager) RunEviction(ctx context.Context, ttl time.Duration) error {
	m.logger.Info("starting session eviction", "ttl", ttl.String())

	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("session eviction stopped")
			return nil
		case <-ticker.C:
			if n := m.EvictIdle(time.Now().Add(-ttl)); n > 0 {
				m.logger.Info("idle sessions evicted", "count", n, "active_sessions", m.GetActiveSessionCount())
			}
		}
	}
}

func (m *Manager) forget(sessionID string) {
	if f, ok := m.gate.(forgetter); ok {
		f.Forget(sessionID)
	}
}

// GetActiveSessionCount returns the number of sessions held in memory
func (m *Manager) GetActiveSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// PingGate checks the store behind the busy gate. In-process gates are always healthy.
func (m *Manager) PingGate(ctx context.Context) error {
	if p, ok := m.gate.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close closes the underlying gate
func (m *Manager) Close() error {
	if closer, ok := m.gate.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
