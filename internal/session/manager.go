package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"page-composer-backend/internal/api"
	"page-composer-backend/pkg/logger"
)

// Manager tracks the live builder sessions, one per edited page per client.
type Manager struct {
	boundary api.Boundary
	opts     Options

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(boundary api.Boundary, opts Options) *Manager {
	return &Manager{
		boundary: boundary,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// ErrTooManySessions is returned by Open when the configured session cap
// is reached.
var ErrTooManySessions = errors.New("session limit reached")

// Open creates and initialises a session for the page. A session that fails
// to initialise is never registered.
func (m *Manager) Open(ctx context.Context, pageID uint) (*Session, error) {
	if m.opts.MaxSessions > 0 && m.Count() >= m.opts.MaxSessions {
		return nil, ErrTooManySessions
	}

	s := New(m.boundary, pageID, m.opts)
	if err := s.Init(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.opts.MaxSessions > 0 && len(m.sessions) >= m.opts.MaxSessions {
		m.mu.Unlock()
		s.Close()
		return nil, ErrTooManySessions
	}
	m.sessions[s.ID] = s
	m.mu.Unlock()

	logger.Info("Builder session opened", map[string]interface{}{
		"session_id": s.ID,
		"page_id":    pageID,
	})
	return s, nil
}

// Get looks up a live session by ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close tears down a session. Closing an unknown ID is an error so callers
// can distinguish a stale client from a double close.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	s.Close()

	logger.Info("Builder session closed", map[string]interface{}{
		"session_id": id,
	})
	return nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
