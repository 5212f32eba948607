package wizard

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoSession is returned when a user has no live session.
var ErrNoSession = errors.New("wizard session not found")

// Store keeps sessions keyed by user id. Implementations expire sessions that have
// been idle for longer than their TTL.
type Store interface {
	Get(ctx context.Context, userID int64) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, userID int64) error
}

// MemoryStore holds sessions in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[int64]*Session
}

// NewMemoryStore creates a store with the given idle TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[int64]*Session),
	}
}

// SetClock replaces the time source.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemoryStore) Get(_ context.Context, userID int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil, ErrNoSession
	}
	if s.Expired(m.now(), m.ttl) {
		delete(m.sessions, userID)
		return nil, ErrNoSession
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := session.Clone()
	c.UpdatedAt = m.now()
	m.sessions[session.UserID] = c
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// Sweep drops every expired session and returns how many were removed.
func (m *MemoryStore) Sweep(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for id, s := range m.sessions {
		if s.Expired(now, m.ttl) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
