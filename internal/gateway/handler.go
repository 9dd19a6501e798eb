// handler.go -- HTTP handlers dispatching auth requests to registered strategies.
//
// The gateway is the "host" side of the strategy contract: it loads and
// commits sessions, turns Redirect/HTTPError/AuthError signals into real
// HTTP responses, and persists the verified user under the session key.
package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/MGallo-Code/authflow/internal/oauth2"
	"github.com/MGallo-Code/authflow/internal/session"
	"github.com/MGallo-Code/authflow/internal/strategy"
	"github.com/go-chi/chi/v5"
)

// DefaultSessionKey is where the authenticated user lives in the session
// unless the handler is configured otherwise.
const DefaultSessionKey = "user"

// Handler holds dependencies for the auth endpoints.
type Handler struct {
	Sessions   session.Storage
	Strategies map[string]strategy.Strategy

	// SessionKey overrides where the user is stored; empty means DefaultSessionKey.
	SessionKey string
}

func (h *Handler) sessionKey() string {
	if h.SessionKey != "" {
		return h.SessionKey
	}
	return DefaultSessionKey
}

// Authenticate handles GET /auth/{provider} and GET /auth/{provider}/callback.
// Both legs enter the same strategy call; the strategy decides the phase from
// the request path.
func (h *Handler) Authenticate(w http.ResponseWriter, r *http.Request) {
	strat, ok := h.strategyFor(r, w)
	if !ok {
		return
	}

	sess, err := h.Sessions.Load(r.Context(), r)
	if err != nil {
		InternalServerError(w, r, err)
		return
	}

	opts := strategy.Options{
		SessionKey: h.sessionKey(),
		Sessions:   h.Sessions,
		Success: func(_ context.Context, user any, _ *http.Request, sess *session.Session) (any, error) {
			sess.Set(h.sessionKey(), user)
			return user, nil
		},
	}

	user, err := strat.Authenticate(r.Context(), r, sess, opts)
	if err != nil {
		h.writeFlowError(w, r, err)
		return
	}

	cookie, err := h.Sessions.Commit(r.Context(), sess)
	if err != nil {
		InternalServerError(w, r, err)
		return
	}
	w.Header().Set("Set-Cookie", cookie)
	logInfo(r, "user authenticated", "strategy", strat.Name())
	writeJSON(w, http.StatusOK, struct {
		User any `json:"user"`
	}{user})
}

// writeFlowError maps strategy error signals onto HTTP responses.
func (h *Handler) writeFlowError(w http.ResponseWriter, r *http.Request, err error) {
	var redirect *strategy.Redirect
	if errors.As(err, &redirect) {
		for key, values := range redirect.Header {
			for _, v := range values {
				w.Header().Add(key, v)
			}
		}
		http.Redirect(w, r, redirect.URL, http.StatusFound)
		return
	}

	var httpErr *strategy.HTTPError
	if errors.As(err, &httpErr) {
		logWarn(r, "authentication protocol error", "error", httpErr.Message)
		writeMessage(w, httpErr.Status, httpErr.Message)
		return
	}

	var exchangeErr *oauth2.ExchangeError
	if errors.As(err, &exchangeErr) {
		// Surface the provider's raw error body as-is, per the token
		// endpoint's content, with the exchange's fixed status.
		logWarn(r, "token exchange failed", "body", exchangeErr.Body)
		w.WriteHeader(exchangeErr.Status)
		w.Write([]byte(exchangeErr.Body))
		return
	}

	var authErr *strategy.AuthError
	if errors.As(err, &authErr) {
		logInfo(r, "authentication rejected", "reason", authErr.Message)
		Unauthorized(w, r, authErr.Message)
		return
	}

	InternalServerError(w, r, err)
}

// Me handles GET /me -- returns the session's authenticated user, or 401.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Sessions.Load(r.Context(), r)
	if err != nil {
		InternalServerError(w, r, err)
		return
	}
	user := sess.Get(h.sessionKey())
	if user == nil {
		Unauthorized(w, r, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		User any `json:"user"`
	}{user})
}

// Logout handles POST /logout -- destroys the session and expires its cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Sessions.Load(r.Context(), r)
	if err != nil {
		InternalServerError(w, r, err)
		return
	}
	cookie, err := h.Sessions.Destroy(r.Context(), sess)
	if err != nil {
		InternalServerError(w, r, err)
		return
	}
	w.Header().Set("Set-Cookie", cookie)
	logInfo(r, "user logged out")
	OK(w, "logged out")
}

// strategyFor reads the {provider} URL param and looks it up in Strategies.
// Writes 404 and returns (nil, false) when the strategy is not registered.
func (h *Handler) strategyFor(r *http.Request, w http.ResponseWriter) (strategy.Strategy, bool) {
	name := chi.URLParam(r, "provider")
	s, ok := h.Strategies[name]
	if !ok {
		NotFound(w)
		return nil, false
	}
	return s, true
}
