package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/comigor/salesdesk/internal/conversation"
	"github.com/comigor/salesdesk/internal/logger"
)

// SQLiteStore persists sessions in a single SQLite table so they survive
// restarts and can be shared by workers on the same host.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time

	sweepMu   sync.Mutex
	lastSweep time.Time
}

// OpenSQLite opens the database at path and creates the sessions table if it
// doesn't exist.
func OpenSQLite(path string, ttl time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("session: sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err = db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
        id TEXT PRIMARY KEY,
        visitor_id TEXT NOT NULL,
        transcript TEXT NOT NULL,
        updated_at INTEGER NOT NULL
    );`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session: sqlite create table: %w", err)
	}
	return &SQLiteStore{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (*State, error) {
	var (
		st      = State{ID: id}
		raw     string
		updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT visitor_id, transcript, updated_at FROM sessions WHERE id = ?;`, id,
	).Scan(&st.VisitorID, &raw, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: sqlite load: %w", err)
	}

	st.UpdatedAt = time.Unix(0, updated)
	if expired(st.UpdatedAt, s.ttl, s.now()) {
		if err := s.Delete(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	var tr conversation.Transcript
	if err := json.Unmarshal([]byte(raw), &tr); err != nil {
		return nil, fmt.Errorf("session: sqlite decode transcript: %w", err)
	}
	st.Transcript = tr
	return &st, nil
}

func (s *SQLiteStore) Save(ctx context.Context, st *State) error {
	raw, err := json.Marshal(st.Transcript)
	if err != nil {
		return fmt.Errorf("session: sqlite encode transcript: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO sessions (id, visitor_id, transcript, updated_at) VALUES (?,?,?,?)
        ON CONFLICT(id) DO UPDATE SET visitor_id = excluded.visitor_id, transcript = excluded.transcript, updated_at = excluded.updated_at;`,
		st.ID, st.VisitorID, string(raw), st.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("session: sqlite save: %w", err)
	}
	s.maybePrune(ctx)
	return nil
}

// maybePrune runs Prune at most once per sweepInterval. Failures are logged
// only; the save itself already succeeded.
func (s *SQLiteStore) maybePrune(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}
	now := s.now()
	s.sweepMu.Lock()
	if now.Sub(s.lastSweep) <= sweepInterval {
		s.sweepMu.Unlock()
		return
	}
	s.lastSweep = now
	s.sweepMu.Unlock()

	n, err := s.Prune(ctx)
	if err != nil {
		logger.L.Warn("sqlite session prune failed", "error", err)
		return
	}
	if n > 0 {
		logger.L.Debug("pruned expired sessions", "count", n)
	}
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?;`, id); err != nil {
		return fmt.Errorf("session: sqlite delete: %w", err)
	}
	return nil
}

// Prune removes every expired session and returns how many were dropped.
func (s *SQLiteStore) Prune(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.ttl).UnixNano()
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("session: sqlite prune: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
