package handlers

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tabletalk/tabletalk/internal/memory"
	"github.com/tabletalk/tabletalk/pkg/types"
)

// managedSession pairs one conversation's memory with the mutex that
// serializes its turns. The memory is not safe for concurrent mutation;
// every handler touching it must hold mu for the whole turn.
type managedSession struct {
	mu          sync.Mutex
	memory      *memory.Session
	lastResults *types.ResultSet
	lastSeen    time.Time
}

// SessionManager maps session IDs to live conversations. Sessions are
// created on first use and expire after idleTimeout of inactivity.
type SessionManager struct {
	mu          sync.RWMutex
	sessions    map[string]*managedSession
	maxTurns    int
	idleTimeout time.Duration
}

// DefaultIdleTimeout is how long an untouched session survives.
const DefaultIdleTimeout = 30 * time.Minute

// NewSessionManager creates a manager whose sessions keep maxTurns
// logical exchanges each.
func NewSessionManager(maxTurns int) *SessionManager {
	return &SessionManager{
		sessions:    make(map[string]*managedSession),
		maxTurns:    maxTurns,
		idleTimeout: DefaultIdleTimeout,
	}
}

// Acquire returns the session for the given ID, creating a fresh one
// when the ID is empty or unknown. The returned ID identifies the
// session the caller actually got and must be echoed back to the client.
func (m *SessionManager) Acquire(id string) (string, *managedSession) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id != "" {
		if s, ok := m.sessions[id]; ok {
			s.lastSeen = time.Now()
			return id, s
		}
	}

	id = uuid.NewString()
	s := &managedSession{
		memory:   memory.NewSession(m.maxTurns),
		lastSeen: time.Now(),
	}
	m.sessions[id] = s
	return id, s
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle longer than the timeout and returns how
// many were evicted. Callers run this periodically.
func (m *SessionManager) Sweep() int {
	cutoff := time.Now().Add(-m.idleTimeout)

	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted
}
