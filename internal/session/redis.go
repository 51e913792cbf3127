package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/comigor/salesdesk/internal/logger"
)

const (
	// lockTTL bounds how long a crashed process can hold a session.
	lockTTL   = 2 * time.Minute
	lockRetry = 50 * time.Millisecond
)

// unlockScript deletes the lock only while it still carries our token.
const unlockScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) end return 0`

// redisAPI is the subset of *redis.Client the store uses.
type redisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisStore keeps sessions as JSON values with a TTL. It also implements
// Locker with a SET NX key per session, so several processes can serve the
// same visitors without interleaving one visitor's turns.
type RedisStore struct {
	api    redisAPI
	ttl    time.Duration
	closer func() error
}

// OpenRedis connects to the server at url (redis://...) and pings it.
func OpenRedis(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("session: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("session: connect to redis: %w", err)
	}
	s := newRedisStore(client, ttl)
	s.closer = client.Close
	return s, nil
}

func newRedisStore(api redisAPI, ttl time.Duration) *RedisStore {
	return &RedisStore{api: api, ttl: ttl}
}

func redisKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

func lockKey(id string) string {
	return fmt.Sprintf("lock:session:%s", id)
}

func (r *RedisStore) Load(ctx context.Context, id string) (*State, error) {
	raw, err := r.api.Get(ctx, redisKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: redis get: %w", err)
	}
	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("session: redis decode: %w", err)
	}
	return &st, nil
}

// Save writes st and refreshes its TTL.
func (r *RedisStore) Save(ctx context.Context, st *State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("session: redis encode: %w", err)
	}
	if err := r.api.Set(ctx, redisKey(st.ID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.api.Del(ctx, redisKey(id)).Err(); err != nil {
		return fmt.Errorf("session: redis del: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}

// Lock takes the session's lock key, polling until it is free or ctx is done.
// The key expires after lockTTL so a crashed holder cannot wedge the session.
func (r *RedisStore) Lock(ctx context.Context, id string) (func(), error) {
	key := lockKey(id)
	token := uuid.NewString()
	for {
		ok, err := r.api.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("session: redis lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("session: redis lock: %w", ctx.Err())
		case <-time.After(lockRetry):
		}
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := r.api.Eval(ctx, unlockScript, []string{key}, token).Err(); err != nil {
			logger.L.Warn("session unlock failed", "session", id, "error", err)
		}
	}, nil
}
