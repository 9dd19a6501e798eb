package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MGallo-Code/authflow/internal/config"
	"github.com/MGallo-Code/authflow/internal/gateway"
	"github.com/MGallo-Code/authflow/internal/oauth2"
	"github.com/MGallo-Code/authflow/internal/provider/google"
	"github.com/MGallo-Code/authflow/internal/session"
	"github.com/MGallo-Code/authflow/internal/strategy"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed migrations/*.sql
var migrationsDir embed.FS

func main() {
	// Load config first so we can set log level
	cfg, err := config.LoadConfig()
	if err != nil {
		// Fallback logger before config is available
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}

	// Include source location in log entries at debug level only.
	addSrc := cfg.LogLevel == slog.LevelDebug

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     cfg.LogLevel,
		AddSource: addSrc,
	})))

	// Cancel ctx on SIGINT/SIGTERM; run() shuts down when ctx is done.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run() is a separate func so deferred closes always execute before os.Exit.
	if err := run(ctx, cfg, nil); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

// run holds all server logic and returns error instead of calling os.Exit,
// so deferred resource cleanup always runs. Shuts down when ctx is cancelled
// (signal handling is the caller's concern). If ready is non-nil, the
// server's base URL is sent on it once the listener is bound.
func run(ctx context.Context, cfg *config.Config, ready chan<- string) error {
	sessions, cleanup, err := buildSessionStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	strategies, err := buildStrategies(ctx, cfg)
	if err != nil {
		return err
	}
	if len(strategies) == 0 {
		slog.Warn("no oauth providers configured; only /health, /me, and /logout will respond usefully")
	}

	h := &gateway.Handler{Sessions: sessions, Strategies: strategies}

	// Bind listener; ":0" picks a free port (useful in tests).
	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	server := &http.Server{Handler: buildRouter(h)}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("authflow listening", "addr", ln.Addr().String())
		// Send error only if server stops for a reason other than explicit shutdown.
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Signal readiness to caller (used by tests; nil in production).
	if ready != nil {
		ready <- "http://" + ln.Addr().String()
	}

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// buildSessionStorage picks the session backend from config:
// Postgres if DATABASE_URL is set (with migrations + expiry cleanup loop),
// else Redis if REDIS_URL is set, else the signed-cookie backend.
// The returned cleanup func closes whatever was opened.
func buildSessionStorage(ctx context.Context, cfg *config.Config) (session.Storage, func(), error) {
	switch {
	case cfg.DatabaseURL != "":
		ps, err := session.NewPostgresStorage(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to set up postgres session storage: %w", err)
		}
		ps.TTL = cfg.SessionTTL

		migrationsFS, err := fs.Sub(migrationsDir, "migrations")
		if err != nil {
			ps.Close()
			return nil, nil, fmt.Errorf("failed to access embedded migrations: %w", err)
		}
		if err := ps.Migrate(ctx, migrationsFS); err != nil {
			ps.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		// Expired-session reaper; removes sessions expired >7 days ago, runs every 24h.
		cleanupCtx, cancelCleanup := context.WithCancel(ctx)
		go func() {
			const retention = 7 * 24 * time.Hour
			ticker := time.NewTicker(24 * time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					n, err := ps.DeleteExpired(cleanupCtx, retention)
					if err != nil {
						slog.Warn("session cleanup failed", "error", err)
					} else {
						slog.Info("session cleanup complete", "deleted", n)
					}
				case <-cleanupCtx.Done():
					return
				}
			}
		}()
		return ps, func() { cancelCleanup(); ps.Close() }, nil

	case cfg.RedisURL != "":
		rs, err := session.NewRedisStorage(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to set up redis session storage: %w", err)
		}
		rs.TTL = cfg.SessionTTL
		return rs, func() { rs.Close() }, nil

	default:
		cs, err := session.NewCookieStorage(cfg.SessionSecret)
		if err != nil {
			return nil, nil, err
		}
		cs.TTL = cfg.SessionTTL
		return cs, func() {}, nil
	}
}

// buildStrategies registers every provider the config enables.
func buildStrategies(ctx context.Context, cfg *config.Config) (map[string]strategy.Strategy, error) {
	strategies := make(map[string]strategy.Strategy)

	if cfg.OAuth != nil {
		s, err := oauth2.New("oauth2", oauth2.Config{
			AuthorizationURL: cfg.OAuth.AuthorizationURL,
			TokenURL:         cfg.OAuth.TokenURL,
			ClientID:         cfg.OAuth.ClientID,
			ClientSecret:     cfg.OAuth.ClientSecret,
			CallbackURL:      cfg.OAuth.CallbackURL,
		}, verifyProfile)
		if err != nil {
			return nil, fmt.Errorf("configuring oauth2 strategy: %w", err)
		}
		strategies[s.Name()] = s
	}

	if cfg.GoogleClientID != "" {
		// Fetches Google's discovery document; fails fast if unreachable.
		s, err := google.New(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL, verifyProfile)
		if err != nil {
			return nil, fmt.Errorf("configuring google strategy: %w", err)
		}
		strategies[s.Name()] = s
	}

	return strategies, nil
}

// verifyProfile is the demo verify function: it accepts any profile with an
// id and flattens it into the user object stored in the session. A real
// deployment replaces this with its own find-or-create logic.
func verifyProfile(_ context.Context, p oauth2.VerifyParams) (any, error) {
	if p.Profile == nil || p.Profile.ID == "" {
		return nil, fmt.Errorf("provider returned no usable profile")
	}
	user := map[string]any{
		"provider": p.Profile.Provider,
		"id":       p.Profile.ID,
		"name":     p.Profile.DisplayName,
	}
	if len(p.Profile.Emails) > 0 {
		user["email"] = p.Profile.Emails[0].Value
	}
	return user, nil
}

// buildRouter wires all routes and middleware.
// Called from run() and from smoke tests.
func buildRouter(h *gateway.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Both legs of the flow enter the same handler; the strategy decides the
	// phase from the request path.
	r.Get("/auth/{provider}", h.Authenticate)
	r.Get("/auth/{provider}/callback", h.Authenticate)

	r.Get("/me", h.Me)
	r.Post("/logout", h.Logout)

	return r
}
