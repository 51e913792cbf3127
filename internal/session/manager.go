package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/comigor/salesdesk/internal/logger"
)

// Manager ties HTTP requests to stored sessions and serializes the requests
// of a single session.
type Manager struct {
	store      Store
	signer     *signer
	cookieName string
	now        func() time.Time

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewManager creates a Manager. An empty secret picks a random per-process key.
func NewManager(store Store, secret, cookieName string) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session: store must not be nil")
	}
	if cookieName == "" {
		return nil, errors.New("session: cookie name must not be empty")
	}
	return &Manager{
		store:      store,
		signer:     newSigner(secret),
		cookieName: cookieName,
		now:        time.Now,
		locks:      make(map[string]*sessionLock),
	}, nil
}

// Begin returns the request's session, creating one when the cookie is
// missing, forged or points at an expired session, and (re)issues the cookie.
// The session stays locked until release is called; a second request of the
// same visitor waits in Begin. Stores implementing Locker are locked too, so
// the wait also holds across processes.
func (m *Manager) Begin(ctx context.Context, w http.ResponseWriter, r *http.Request) (*State, func()) {
	id, ok := m.sessionID(r)
	if !ok {
		id = uuid.NewString()
	}
	release := m.lock(id)
	if l, ok := m.store.(Locker); ok {
		unlock, err := l.Lock(ctx, id)
		if err != nil {
			logger.L.Warn("shared session lock unavailable; continuing", "session", id, "error", err)
		} else {
			local := release
			release = func() {
				unlock()
				local()
			}
		}
	}

	st, err := m.store.Load(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		st = &State{ID: id}
	default:
		logger.L.Error("session load failed; starting fresh", "session", id, "error", err)
		st = &State{ID: id}
	}
	if st.VisitorID == "" {
		st.VisitorID = NewVisitorID()
		logger.L.Info("visitor identity minted", "session", id, "visitor", st.VisitorID)
	}

	m.setCookie(w, r, id)
	return st, release
}

// Start clears the transcript of the request's session, keeping or minting
// its visitor identity, and persists the result.
func (m *Manager) Start(ctx context.Context, w http.ResponseWriter, r *http.Request) *State {
	st, release := m.Begin(ctx, w, r)
	defer release()

	st.Reset()
	if err := m.Save(ctx, st); err != nil {
		logger.L.Error("session save failed", "session", st.ID, "error", err)
	}
	return st
}

// Save stamps and persists st.
func (m *Manager) Save(ctx context.Context, st *State) error {
	st.UpdatedAt = m.now()
	return m.store.Save(ctx, st)
}

func (m *Manager) sessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(m.cookieName)
	if err != nil {
		return "", false
	}
	id, ok := m.signer.verify(c.Value)
	if !ok {
		logger.L.Warn("rejected session cookie with bad signature", "remote", r.RemoteAddr)
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

func (m *Manager) setCookie(w http.ResponseWriter, r *http.Request, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    m.signer.sign(id),
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) lock(id string) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sessionLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}
