// Package session keeps per-visitor state on the server, keyed by a signed
// cookie. A session holds the visitor identity and the current transcript.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/comigor/salesdesk/internal/conversation"
)

// ErrNotFound is returned by stores for unknown or expired sessions.
var ErrNotFound = errors.New("session: not found")

// visitorIDBytes is the entropy of a visitor identity before hex encoding.
const visitorIDBytes = 8

// State is what a store persists for one browser session.
type State struct {
	ID         string                  `json:"id"`
	VisitorID  string                  `json:"visitor_id"`
	Transcript conversation.Transcript `json:"transcript"`
	UpdatedAt  time.Time               `json:"updated_at"`
}

// TranscriptOrSeed returns the stored transcript, or a freshly seeded one
// when the session has none yet.
func (s *State) TranscriptOrSeed(seed conversation.Seed) conversation.Transcript {
	if len(s.Transcript) == 0 {
		return conversation.New(seed)
	}
	return s.Transcript
}

// Reset drops the transcript. The visitor identity is kept.
func (s *State) Reset() {
	s.Transcript = nil
}

// Store persists session state. Implementations are safe for concurrent use.
type Store interface {
	Load(ctx context.Context, id string) (*State, error)
	Save(ctx context.Context, st *State) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// Locker is implemented by stores shared between processes. Lock blocks until
// the session is held or ctx is done; release must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, id string) (release func(), err error)
}

// NewVisitorID mints a random hex identity.
func NewVisitorID() string {
	b := make([]byte, visitorIDBytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func expired(updated time.Time, ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(updated) > ttl
}
