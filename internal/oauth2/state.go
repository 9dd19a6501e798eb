// state.go -- CSRF state token for the redirect round trip.
//
// One token per in-flight flow, stored under a fixed session key. Starting a
// second flow in the same session overwrites the first token, so only the
// most recently issued redirect is honorable.
package oauth2

import (
	"net/http"

	"github.com/MGallo-Code/authflow/internal/session"
	"github.com/MGallo-Code/authflow/internal/strategy"
	"github.com/gofrs/uuid/v5"
)

// stateKey is the fixed session key holding the in-flight state token.
const stateKey = "oauth2:state"

// generateState returns an unguessable per-flow token (128-bit random uuid).
func generateState() string {
	return uuid.Must(uuid.NewV4()).String()
}

// storeState writes the token into the session, replacing any prior one.
func storeState(sess *session.Session, state string) {
	sess.Set(stateKey, state)
}

// validateState checks the callback's state parameter against the session's
// stored token. Once both sides exist the stored token is removed before the
// comparison outcome is acted on -- a mismatch must not leave a reusable
// token behind, and a match must not be replayable.
func validateState(sess *session.Session, urlState string) error {
	if urlState == "" {
		return &strategy.HTTPError{Status: http.StatusBadRequest, Message: "Missing state on URL."}
	}
	stored, _ := sess.Get(stateKey).(string)
	if stored == "" {
		return &strategy.HTTPError{Status: http.StatusBadRequest, Message: "Missing state on session."}
	}
	sess.Unset(stateKey)
	if stored != urlState {
		return &strategy.HTTPError{Status: http.StatusBadRequest, Message: "State doesn't match."}
	}
	return nil
}
