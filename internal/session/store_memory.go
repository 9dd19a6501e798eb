// store_memory.go -- In-memory session storage for tests and local development.
package session

import (
	"context"
	"net/http"
	"sync"
)

// MemoryStorage keeps session data in a process-local map keyed by session id.
// The cookie carries only the id. Data vanishes on restart -- never use in
// production behind more than one process.
type MemoryStorage struct {
	// Name overrides the cookie name; empty means DefaultCookieName.
	Name string

	mu       sync.Mutex
	sessions map[string]map[string]any
}

// NewMemoryStorage returns an empty MemoryStorage safe for concurrent use.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{sessions: make(map[string]map[string]any)}
}

func (m *MemoryStorage) name() string {
	if m.Name != "" {
		return m.Name
	}
	return DefaultCookieName
}

// Load resolves the id cookie to stored data, or returns a fresh session.
func (m *MemoryStorage) Load(_ context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.name())
	if err != nil {
		return New(), nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.sessions[cookie.Value]
	if !ok {
		return New(), nil
	}
	return Restore(cookie.Value, data), nil
}

// Commit stores the session data and returns a Set-Cookie carrying the id.
func (m *MemoryStorage) Commit(_ context.Context, sess *Session) (string, error) {
	m.mu.Lock()
	m.sessions[sess.ID()] = sess.Data()
	m.mu.Unlock()
	return idCookie(m.name(), sess.ID(), int(DefaultTTL.Seconds())).String(), nil
}

// Destroy drops the stored data and expires the cookie.
func (m *MemoryStorage) Destroy(_ context.Context, sess *Session) (string, error) {
	m.mu.Lock()
	delete(m.sessions, sess.ID())
	m.mu.Unlock()
	return idCookie(m.name(), "", -1).String(), nil
}

// idCookie builds the id-carrying cookie shared by the server-side backends.
func idCookie(name, id string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}
