// store_redis.go -- Redis-backed session storage.
//
// The cookie carries only the session id; data lives in Redis as JSON under
// session:<id> with a TTL matching the cookie lifetime, so abandoned flows
// expire on their own.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage persists session data in Redis keyed by session id.
type RedisStorage struct {
	// Name overrides the cookie name; empty means DefaultCookieName.
	Name string
	// TTL overrides the session lifetime; zero means DefaultTTL.
	TTL time.Duration

	rdb *redis.Client
}

// NewRedisStorage connects to Redis and returns a ready-to-use storage.
// It pings Redis to verify connectivity before returning.
// Call once at startup; the returned storage is safe for concurrent use.
func NewRedisStorage(ctx context.Context, redisURL string) (*RedisStorage, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisStorage{rdb: rdb}, nil
}

// NewRedisStorageFromClient wraps an existing client (used by tests).
func NewRedisStorageFromClient(rdb *redis.Client) *RedisStorage {
	return &RedisStorage{rdb: rdb}
}

// Close shuts down the Redis client and releases all resources.
func (s *RedisStorage) Close() error { return s.rdb.Close() }

func (s *RedisStorage) name() string {
	if s.Name != "" {
		return s.Name
	}
	return DefaultCookieName
}

func (s *RedisStorage) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultTTL
}

// Load fetches the session data for the id cookie.
// A missing cookie, missing key, or unparseable payload yields a fresh
// session; Redis infrastructure failures are returned as errors.
func (s *RedisStorage) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(s.name())
	if err != nil {
		return New(), nil
	}
	raw, err := s.rdb.Get(ctx, "session:"+cookie.Value).Result()
	if errors.Is(err, redis.Nil) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching session: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return New(), nil
	}
	return Restore(cookie.Value, data), nil
}

// Commit writes the session data with TTL and returns the id cookie.
func (s *RedisStorage) Commit(ctx context.Context, sess *Session) (string, error) {
	payload, err := json.Marshal(sess.Data())
	if err != nil {
		return "", fmt.Errorf("marshaling session: %w", err)
	}
	if err := s.rdb.Set(ctx, "session:"+sess.ID(), payload, s.ttl()).Err(); err != nil {
		return "", fmt.Errorf("storing session: %w", err)
	}
	return idCookie(s.name(), sess.ID(), int(s.ttl().Seconds())).String(), nil
}

// Destroy deletes the session key and expires the cookie.
func (s *RedisStorage) Destroy(ctx context.Context, sess *Session) (string, error) {
	if err := s.rdb.Del(ctx, "session:"+sess.ID()).Err(); err != nil {
		return "", fmt.Errorf("deleting session: %w", err)
	}
	return idCookie(s.name(), "", -1).String(), nil
}
