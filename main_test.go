// main_test.go -- smoke tests for the wired server.
package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MGallo-Code/authflow/internal/config"
	"github.com/MGallo-Code/authflow/internal/gateway"
	"github.com/MGallo-Code/authflow/internal/oauth2"
	"github.com/MGallo-Code/authflow/internal/strategy"
	"github.com/MGallo-Code/authflow/internal/testutil"
)

// newTestHandler wires the gateway with mock storage and one mock strategy.
func newTestHandler(strat strategy.Strategy) *gateway.Handler {
	strategies := map[string]strategy.Strategy{}
	if strat != nil {
		strategies[strat.Name()] = strat
	}
	return &gateway.Handler{Sessions: testutil.NewMockStorage(), Strategies: strategies}
}

func TestRouter_Health(t *testing.T) {
	srv := httptest.NewServer(buildRouter(newTestHandler(nil)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	var out map[string]string
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decoding health body %q: %v", body, err)
	}
	if out["status"] != "ok" {
		t.Errorf("health status: expected ok, got %q", out["status"])
	}
}

func TestRouter_AuthRoutes(t *testing.T) {
	mock := &testutil.MockStrategy{StrategyName: "mock", Err: &strategy.Redirect{
		URL: "https://provider.example.com/authorize?state=abc",
	}}
	srv := httptest.NewServer(buildRouter(newTestHandler(mock)))
	defer srv.Close()

	// Don't follow the provider redirect.
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	t.Run("redirect leg", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/auth/mock")
		if err != nil {
			t.Fatalf("GET /auth/mock failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusFound {
			t.Errorf("status: expected 302, got %d", resp.StatusCode)
		}
		if loc := resp.Header.Get("Location"); !strings.HasPrefix(loc, "https://provider.example.com/authorize") {
			t.Errorf("location: got %q", loc)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/auth/nope")
		if err != nil {
			t.Fatalf("GET /auth/nope failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status: expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("me without session", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/me")
		if err != nil {
			t.Fatalf("GET /me failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status: expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("logout", func(t *testing.T) {
		resp, err := client.Post(srv.URL+"/logout", "", nil)
		if err != nil {
			t.Fatalf("POST /logout failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("status: expected 200, got %d", resp.StatusCode)
		}
	})
}

// TestRun_StartupAndShutdown boots the real server on a free port with the
// cookie session backend, checks it serves, then shuts it down via ctx.
func TestRun_StartupAndShutdown(t *testing.T) {
	cfg := &config.Config{
		Port:          "0",
		LogLevel:      slog.LevelError,
		SessionSecret: "test-secret",
		SessionTTL:    time.Hour,
	}

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, ready) }()

	var baseURL string
	select {
	case baseURL = <-ready:
	case err := <-done:
		t.Fatalf("run exited before ready: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server never became ready")
	}

	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status: expected 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run returned error on shutdown: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server never shut down")
	}
}

// oauthVerifyParams builds VerifyParams with a minimal profile.
// Empty id means an empty profile shape, the way a provider without a
// UserProfile hook would produce.
func oauthVerifyParams(id, name, email string) oauth2.VerifyParams {
	p := &oauth2.Profile{Provider: "mock", ID: id, DisplayName: name}
	if email != "" {
		p.Emails = []oauth2.Email{{Value: email}}
	}
	return oauth2.VerifyParams{AccessToken: "A", RefreshToken: "R", Profile: p}
}

func TestVerifyProfile(t *testing.T) {
	t.Run("accepts a profile with an id", func(t *testing.T) {
		user, err := verifyProfile(context.Background(), oauthVerifyParams("u-1", "Jo", "jo@example.com"))
		if err != nil {
			t.Fatalf("verifyProfile failed: %v", err)
		}
		u, ok := user.(map[string]any)
		if !ok {
			t.Fatalf("user: expected a map, got %T", user)
		}
		if u["id"] != "u-1" || u["email"] != "jo@example.com" {
			t.Errorf("user fields: got %v", u)
		}
	})

	t.Run("rejects a profile without an id", func(t *testing.T) {
		if _, err := verifyProfile(context.Background(), oauthVerifyParams("", "", "")); err == nil {
			t.Fatal("expected an error for a profile without an id")
		}
	})
}
