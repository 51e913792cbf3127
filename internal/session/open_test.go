package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comigor/salesdesk/internal/config"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.SessionConfig{Backend: config.BackendMemory, TTL: time.Hour})
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, config.SessionConfig{Backend: config.BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "s.db")})
	require.NoError(t, err)
	require.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.SessionConfig{Backend: "etcd"})
	require.Error(t, err)
}

func TestOpen_SQLiteFallsBackToMemory(t *testing.T) {
	s, err := Open(context.Background(), config.SessionConfig{
		Backend:    config.BackendSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "missing", "dir", "s.db"),
	})
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, s)
}

func TestOpen_RedisBadURL(t *testing.T) {
	_, err := Open(context.Background(), config.SessionConfig{Backend: config.BackendRedis, RedisURL: "not a url"})
	require.Error(t, err)
}
