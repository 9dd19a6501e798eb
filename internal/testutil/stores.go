// stores.go
//
// Shared mock implementations of session.Storage and strategy.Strategy.
// Imported by test files across packages to avoid duplicate mock definitions.
package testutil

import (
	"context"
	"net/http"
	"sync"

	"github.com/MGallo-Code/authflow/internal/session"
	"github.com/MGallo-Code/authflow/internal/strategy"
)

// MockStorage implements session.Storage for tests.
//
// Always stateful -- Sessions is a map keyed by session id, like a real
// backend. Use *Err fields to inject errors for specific operations; counts
// record how often each operation ran.
type MockStorage struct {
	// Error injection -- zero value means no error
	LoadErr    error
	CommitErr  error
	DestroyErr error

	Sessions map[string]map[string]any
	Commits  int
	Destroys int

	mu sync.Mutex
}

// NewMockStorage returns an empty MockStorage.
func NewMockStorage() *MockStorage {
	return &MockStorage{Sessions: make(map[string]map[string]any)}
}

// Seed stores data under id so a later Load with that id cookie finds it.
func (m *MockStorage) Seed(id string, data map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sessions[id] = data
}

func (m *MockStorage) Load(_ context.Context, r *http.Request) (*session.Session, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	cookie, err := r.Cookie(session.DefaultCookieName)
	if err != nil {
		return session.New(), nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.Sessions[cookie.Value]
	if !ok {
		return session.New(), nil
	}
	return session.Restore(cookie.Value, data), nil
}

func (m *MockStorage) Commit(_ context.Context, sess *session.Session) (string, error) {
	if m.CommitErr != nil {
		return "", m.CommitErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sessions[sess.ID()] = sess.Data()
	m.Commits++
	return session.DefaultCookieName + "=" + sess.ID() + "; Path=/; HttpOnly", nil
}

func (m *MockStorage) Destroy(_ context.Context, sess *session.Session) (string, error) {
	if m.DestroyErr != nil {
		return "", m.DestroyErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Sessions, sess.ID())
	m.Destroys++
	return session.DefaultCookieName + "=; Path=/; Max-Age=0", nil
}

// MockStrategy implements strategy.Strategy with canned outcomes.
// Exactly one of User / Err should be set; Err may be any strategy signal
// (*strategy.Redirect, *strategy.HTTPError, ...) or a plain error.
type MockStrategy struct {
	StrategyName string
	User         any
	Err          error

	Calls int
}

func (m *MockStrategy) Name() string {
	if m.StrategyName != "" {
		return m.StrategyName
	}
	return "mock"
}

func (m *MockStrategy) Authenticate(ctx context.Context, r *http.Request, sess *session.Session, opts strategy.Options) (any, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return opts.Succeed(ctx, m.User, r, sess)
}
