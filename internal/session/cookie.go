// cookie.go -- Cookie-backed session storage.
//
// The whole session data map travels in the cookie as base64(JSON) with an
// HMAC-SHA256 signature, so no server-side state is needed. Keep payloads
// small -- browsers cap cookies at ~4KB.
package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultCookieName is used by all backends unless overridden.
// The __Host- prefix pins the cookie to this host over HTTPS.
const DefaultCookieName = "__Host-session"

// DefaultTTL bounds how long a committed session stays valid.
const DefaultTTL = 24 * time.Hour

// CookieStorage stores session data entirely in a signed cookie.
type CookieStorage struct {
	// Name overrides the cookie name; empty means DefaultCookieName.
	Name string
	// TTL overrides the cookie lifetime; zero means DefaultTTL.
	TTL time.Duration

	secret []byte
}

// NewCookieStorage returns a CookieStorage signing payloads with secret.
// The secret must be non-empty and should be at least 32 random bytes.
func NewCookieStorage(secret string) (*CookieStorage, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	return &CookieStorage{secret: []byte(secret)}, nil
}

func (c *CookieStorage) name() string {
	if c.Name != "" {
		return c.Name
	}
	return DefaultCookieName
}

func (c *CookieStorage) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return DefaultTTL
}

// Load decodes and verifies the session cookie.
// A missing, malformed, or tampered cookie yields a fresh empty session --
// never an error, so a cleared browser can always start a new flow.
func (c *CookieStorage) Load(_ context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(c.name())
	if err != nil {
		return New(), nil
	}
	data, ok := c.decode(cookie.Value)
	if !ok {
		return New(), nil
	}
	return Restore(uuid7(), data), nil
}

// Commit serializes and signs the session, returning the Set-Cookie value.
func (c *CookieStorage) Commit(_ context.Context, sess *Session) (string, error) {
	value, err := c.encode(sess.Data())
	if err != nil {
		return "", fmt.Errorf("encoding session cookie: %w", err)
	}
	return c.cookie(value, int(c.ttl().Seconds())).String(), nil
}

// Destroy returns a Set-Cookie value that expires the session cookie.
func (c *CookieStorage) Destroy(_ context.Context, _ *Session) (string, error) {
	return c.cookie("", -1).String(), nil
}

// cookie builds the http.Cookie shared by Commit and Destroy.
// HttpOnly + Secure + SameSite=Lax: Lax still sends the cookie on the
// top-level redirect back from the provider, which the state check needs.
func (c *CookieStorage) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     c.name(),
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

// encode produces "base64(json).base64(hmac)".
func (c *CookieStorage) encode(data map[string]any) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + c.sign(encoded), nil
}

// decode verifies the signature and unmarshals the payload.
// Returns ok=false on any structural or signature failure.
func (c *CookieStorage) decode(value string) (map[string]any, bool) {
	encoded, sig, found := strings.Cut(value, ".")
	if !found {
		return nil, false
	}
	// Constant-time comparison prevents a timing oracle on the signature.
	if !hmac.Equal([]byte(c.sign(encoded)), []byte(sig)) {
		return nil, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, false
	}
	var data map[string]any
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, false
	}
	return data, true
}

func (c *CookieStorage) sign(encoded string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
