package session

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chatbridge/chatbridge/internal/common/errors"
	"github.com/chatbridge/chatbridge/internal/common/logger"
	"github.com/chatbridge/chatbridge/internal/events/bus"
)

// Manager owns the id -> Session map. It is touched concurrently by HTTP
// handlers, so the map is mutex-protected.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	queryFn  QueryFunc
	eventBus bus.EventBus
	logger   *logger.Logger
}

// NewManager creates a session manager backed by the given engine factory.
// eventBus may be nil when no bus mirror is configured.
func NewManager(queryFn QueryFunc, eventBus bus.EventBus, log *logger.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		queryFn:  queryFn,
		eventBus: eventBus,
		logger:   log,
	}
}

// Create allocates a new session with a fresh id and starts its engine
// invocation with the initial prompt.
func (m *Manager) Create(initialPrompt string) (*Session, error) {
	id := uuid.NewString()

	s, err := newSession(id, m.queryFn, initialPrompt, m.eventBus, m.logger)
	if err != nil {
		return nil, errors.InternalError("failed to start session", err)
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Info("session created", zap.String("session_id", id))
	return s, nil
}

// Get returns the session with the given id, or nil.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// List returns all live sessions.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Delete aborts the session and removes it from the map.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return errors.NotFound("session", id)
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	s.Abort()
	m.logger.Info("session deleted", zap.String("session_id", id))
	return nil
}

// Shutdown aborts every live session. Used on process teardown.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Abort()
	}
}
