// Package session manages browser session lifecycle. Each session owns one
// value (the screen controller) created on first use.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/ioncon/internal/clock"
)

// Header carries the session id on every request.
const Header = "X-Session-ID"

// Session holds per-browser state.
type Session[T any] struct {
	ID           string    `json:"id"`
	Value        T         `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// IsExpired returns true if the session has exceeded the given max age.
func (s *Session[T]) IsExpired(now time.Time, maxAge time.Duration) bool {
	return maxAge > 0 && now.Sub(s.CreatedAt) > maxAge
}

// IsIdle returns true if the session has been idle longer than the timeout.
func (s *Session[T]) IsIdle(now time.Time, timeout time.Duration) bool {
	return timeout > 0 && now.Sub(s.LastActiveAt) > timeout
}

// Manager handles session creation, lookup, and cleanup.
type Manager[T any] struct {
	mu          sync.Mutex
	sessions    map[string]*Session[T]
	maxAge      time.Duration
	idleTimeout time.Duration
	clock       clock.Clock
	create      func(id string) T
	release     func(T)
}

// NewManager creates a session manager. create builds the value of a new
// session; release, if not nil, is called when a session is dropped.
func NewManager[T any](maxAge, idleTimeout time.Duration, clk clock.Clock, create func(id string) T, release func(T)) *Manager[T] {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Manager[T]{
		sessions:    make(map[string]*Session[T]),
		maxAge:      maxAge,
		idleTimeout: idleTimeout,
		clock:       clk,
		create:      create,
		release:     release,
	}
}

// Create creates a new session and returns it.
func (m *Manager[T]) Create() *Session[T] {
	return m.createWithID(uuid.New().String())
}

func (m *Manager[T]) createWithID(id string) *Session[T] {
	now := m.clock.Now()
	s := &Session[T]{ID: id, Value: m.create(id), CreatedAt: now, LastActiveAt: now}
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s
}

// Get retrieves a session by ID and marks it active. Returns nil if not found
// or expired.
func (m *Manager[T]) Get(id string) *Session[T] {
	now := m.clock.Now()
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	if s.IsExpired(now, m.maxAge) || s.IsIdle(now, m.idleTimeout) {
		delete(m.sessions, id)
		m.mu.Unlock()
		m.drop(s)
		return nil
	}
	s.LastActiveAt = now
	m.mu.Unlock()
	return s
}

// Resolve returns the session with id, creating a fresh one when id is empty,
// unknown or expired.
func (m *Manager[T]) Resolve(id string) (s *Session[T], created bool) {
	if id != "" {
		if s := m.Get(id); s != nil {
			return s, false
		}
	}
	return m.Create(), true
}

// Remove deletes a session.
func (m *Manager[T]) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		m.drop(s)
	}
}

// Len returns the number of live sessions.
func (m *Manager[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Cleanup removes all expired and idle sessions and returns how many were
// dropped. Called periodically.
func (m *Manager[T]) Cleanup() int {
	now := m.clock.Now()
	var dropped []*Session[T]
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.IsExpired(now, m.maxAge) || s.IsIdle(now, m.idleTimeout) {
			delete(m.sessions, id)
			dropped = append(dropped, s)
		}
	}
	m.mu.Unlock()
	for _, s := range dropped {
		m.drop(s)
	}
	return len(dropped)
}

func (m *Manager[T]) drop(s *Session[T]) {
	if m.release != nil {
		m.release(s.Value)
	}
}
