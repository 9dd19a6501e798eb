// session.go -- Per-request session value and the Storage contract.
//
// A Session is a string-keyed bag of values that survives the OAuth redirect
// round trip. The host loads it at the start of a request, strategies and
// handlers mutate it, and the host commits it into a Set-Cookie header when a
// response is written. How the data actually persists (signed cookie, Redis,
// Postgres) is the Storage implementation's concern.
package session

import (
	"context"
	"net/http"

	"github.com/gofrs/uuid/v5"
)

// Session holds the per-request session state.
// Not safe for concurrent use -- each request gets its own instance.
type Session struct {
	id   string
	data map[string]any
}

// New returns a fresh, empty session with a v7 id.
func New() *Session {
	return &Session{
		id:   uuid7(),
		data: make(map[string]any),
	}
}

// uuid7 returns a time-ordered unique id for session keys.
func uuid7() string { return uuid.Must(uuid.NewV7()).String() }

// Restore rebuilds a session from persisted id + data.
// A nil data map is replaced with an empty one.
func Restore(id string, data map[string]any) *Session {
	if data == nil {
		data = make(map[string]any)
	}
	return &Session{id: id, data: data}
}

// ID returns the opaque session identifier.
// Server-side backends key persisted data on it; the cookie backend ignores it.
func (s *Session) ID() string { return s.id }

// Get returns the value stored under key, or nil if absent.
func (s *Session) Get(key string) any { return s.data[key] }

// Has reports whether key is present.
func (s *Session) Has(key string) bool {
	_, ok := s.data[key]
	return ok
}

// Set stores value under key, overwriting any prior value.
// Values must survive a JSON round trip -- backends serialize the data map.
func (s *Session) Set(key string, value any) { s.data[key] = value }

// Unset removes key from the session.
func (s *Session) Unset(key string) { delete(s.data, key) }

// Data returns a shallow copy of the session's data map for serialization.
func (s *Session) Data() map[string]any {
	out := make(map[string]any, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

// Storage persists sessions across requests.
//
// Load never fails on a missing or invalid cookie -- it returns a fresh
// session instead, so callers always get something usable. Commit serializes
// the session and returns the Set-Cookie header value that makes it stick;
// Destroy returns the Set-Cookie header value that expires it client-side.
type Storage interface {
	Load(ctx context.Context, r *http.Request) (*Session, error)
	Commit(ctx context.Context, sess *Session) (string, error)
	Destroy(ctx context.Context, sess *Session) (string, error)
}
