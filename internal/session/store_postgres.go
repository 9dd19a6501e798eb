// store_postgres.go -- Postgres-backed session storage.
//
// pgxpool connection pool created at startup and shared across requests.
// Session data is a JSONB column; expiry is enforced in the query so stale
// rows are invisible even before cleanup deletes them.
// All queries use parameterized statements (no string concatenation).
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage persists session data in a sessions table.
type PostgresStorage struct {
	// Name overrides the cookie name; empty means DefaultCookieName.
	Name string
	// TTL overrides the session lifetime; zero means DefaultTTL.
	TTL time.Duration

	pool *pgxpool.Pool
}

// NewPostgresStorage creates a verified connection pool wrapped in a storage.
// Call once at startup; the returned storage is safe for concurrent use.
func NewPostgresStorage(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStorage{pool: pool}, nil
}

// Close shuts down the connection pool and releases all resources.
func (s *PostgresStorage) Close() { s.pool.Close() }

func (s *PostgresStorage) name() string {
	if s.Name != "" {
		return s.Name
	}
	return DefaultCookieName
}

func (s *PostgresStorage) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultTTL
}

// Load fetches non-expired session data for the id cookie.
// Missing cookie or row yields a fresh session.
func (s *PostgresStorage) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(s.name())
	if err != nil {
		return New(), nil
	}
	var raw []byte
	err = s.pool.QueryRow(ctx,
		"SELECT data FROM sessions WHERE id = $1 AND expires_at > now()",
		cookie.Value,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching session: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return New(), nil
	}
	return Restore(cookie.Value, data), nil
}

// Commit upserts the session row and returns the id cookie.
func (s *PostgresStorage) Commit(ctx context.Context, sess *Session) (string, error) {
	payload, err := json.Marshal(sess.Data())
	if err != nil {
		return "", fmt.Errorf("marshaling session: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO sessions (id, data, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at, updated_at = now()`,
		sess.ID(), payload, time.Now().Add(s.ttl()))
	if err != nil {
		return "", fmt.Errorf("storing session: %w", err)
	}
	return idCookie(s.name(), sess.ID(), int(s.ttl().Seconds())).String(), nil
}

// Destroy deletes the session row and expires the cookie.
func (s *PostgresStorage) Destroy(ctx context.Context, sess *Session) (string, error) {
	if _, err := s.pool.Exec(ctx, "DELETE FROM sessions WHERE id = $1", sess.ID()); err != nil {
		return "", fmt.Errorf("deleting session: %w", err)
	}
	return idCookie(s.name(), "", -1).String(), nil
}

// DeleteExpired removes sessions that expired before now minus retention.
// Returns the number of rows deleted. Called from the cleanup loop in main.
func (s *PostgresStorage) DeleteExpired(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM sessions WHERE expires_at < $1",
		time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Migrate applies all pending SQL migrations from the given filesystem.
// Each migration runs in its own transaction -- if any statement fails,
// that migration is rolled back entirely. Already-applied migrations are skipped.
func (s *PostgresStorage) Migrate(ctx context.Context, migrationsFS fs.FS) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	entries, err := fs.Glob(migrationsFS, "*.sql")
	if err != nil {
		return fmt.Errorf("reading migration files: %w", err)
	}
	sort.Strings(entries)

	for _, filename := range entries {
		var exists bool
		err := s.pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)",
			filename,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking migration %s: %w", filename, err)
		}
		if exists {
			slog.Info("migration already applied, skipping", "version", filename)
			continue
		}

		sql, err := fs.ReadFile(migrationsFS, filename)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", filename, err)
		}

		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("beginning transaction for %s: %w", filename, err)
		}
		if _, err := tx.Exec(ctx, string(sql)); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("executing migration %s: %w", filename, err)
		}
		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", filename); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("recording migration %s: %w", filename, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("committing migration %s: %w", filename, err)
		}

		slog.Info("migration applied", "version", filename)
	}

	return nil
}
