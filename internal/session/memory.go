package session

import (
	"context"
	"slices"
	"sync"
	"time"
)

// sweepInterval bounds how often Save scans for expired sessions.
const sweepInterval = time.Minute

// MemoryStore keeps sessions in process memory. Sessions are lost on restart.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]State
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryStore creates an in-memory store; ttl <= 0 disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]State),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Load returns a copy of the stored session.
func (m *MemoryStore) Load(_ context.Context, id string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if expired(st.UpdatedAt, m.ttl, m.now()) {
		delete(m.sessions, id)
		return nil, ErrNotFound
	}
	st.Transcript = slices.Clone(st.Transcript)
	return &st, nil
}

// Save stores a copy of st.
func (m *MemoryStore) Save(_ context.Context, st *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *st
	cp.Transcript = slices.Clone(st.Transcript)
	m.sessions[st.ID] = cp

	now := m.now()
	if m.ttl > 0 && now.Sub(m.lastSweep) > sweepInterval {
		for id, s := range m.sessions {
			if expired(s.UpdatedAt, m.ttl, now) {
				delete(m.sessions, id)
			}
		}
		m.lastSweep = now
	}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }
