// strategy.go -- Pluggable authentication strategy contract.
//
// A Strategy turns an incoming request plus a session into an
// application-defined user. Concrete flows (OAuth2 today, others later)
// implement the one-method interface; the gateway dispatches to whichever
// strategy a route names. No registry, no inheritance.
package strategy

import (
	"context"
	"net/http"

	"github.com/MGallo-Code/authflow/internal/session"
)

// Strategy authenticates a single request.
//
// Authenticate returns the application user on success. Flow-control
// conditions come back as typed errors: *Redirect when the caller must issue
// an HTTP redirect, *HTTPError for protocol violations, *AuthError when the
// application's verify step rejected the user. Anything else is a transport
// or infrastructure failure.
type Strategy interface {
	Name() string
	Authenticate(ctx context.Context, r *http.Request, sess *session.Session, opts Options) (any, error)
}

// SuccessHook is invoked exactly once when a flow terminates successfully.
// The host's hook persists the user into the session; the returned value is
// what Authenticate hands back to the caller.
type SuccessHook func(ctx context.Context, user any, r *http.Request, sess *session.Session) (any, error)

// FailureHook is invoked exactly once when the verify step rejects the user.
// Protocol violations do not reach it -- those surface as *HTTPError.
type FailureHook func(ctx context.Context, message string, r *http.Request, sess *session.Session) (any, error)

// Context carries optional per-request endpoint overrides
// (multi-tenant / dynamic providers). Nil means use the configured endpoints.
type Context struct {
	AuthorizationURL string
	TokenURL         string
}

// Options carries the host-supplied collaborators for one Authenticate call.
type Options struct {
	// SessionKey is where the authenticated user lives in the session.
	// Strategies read it to short-circuit already-authenticated requests.
	SessionKey string

	// Sessions commits the session so flow state (the CSRF token) survives
	// the redirect round trip. Required for redirect-based strategies.
	Sessions session.Storage

	// Context holds per-request endpoint overrides; nil means none.
	Context *Context

	// Success / Failure report the flow outcome. Nil hooks fall back to
	// returning the user unchanged / returning an *AuthError.
	Success SuccessHook
	Failure FailureHook
}

// Succeed invokes the success hook, or returns user unchanged when none is set.
func (o Options) Succeed(ctx context.Context, user any, r *http.Request, sess *session.Session) (any, error) {
	if o.Success == nil {
		return user, nil
	}
	return o.Success(ctx, user, r, sess)
}

// Fail invokes the failure hook, or returns an *AuthError when none is set.
func (o Options) Fail(ctx context.Context, message string, r *http.Request, sess *session.Session) (any, error) {
	if o.Failure == nil {
		return nil, &AuthError{Message: message}
	}
	return o.Failure(ctx, message, r, sess)
}

// Redirect signals that the host must issue an HTTP redirect to URL, sending
// Header along (notably the Set-Cookie committing the session). It implements
// error so strategies can fail fast out of deep call paths.
type Redirect struct {
	URL    string
	Header http.Header
}

func (e *Redirect) Error() string { return "redirect to " + e.URL }

// HTTPError is a protocol-level violation with a fixed status code.
// Not retried; surfaced directly to the client by the host.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string { return e.Message }

// AuthError is an authentication failure produced by the application's verify
// step. Distinct from HTTPError: the flow ran clean, the user was rejected.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }
