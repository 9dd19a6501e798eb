// state_test.go -- unit tests for state generation and callback validation.
package oauth2

import (
	"errors"
	"testing"

	"github.com/MGallo-Code/authflow/internal/session"
	"github.com/MGallo-Code/authflow/internal/strategy"
)

// --- generateState ---

func TestGenerateState_Unique(t *testing.T) {
	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		state := generateState()
		if state == "" {
			t.Fatal("generateState returned empty string")
		}
		if seen[state] {
			t.Fatalf("generateState returned duplicate value %q after %d draws", state, i)
		}
		seen[state] = true
	}
}

// --- validateState ---

// expectBadRequest asserts err is a *strategy.HTTPError with status 400 and
// the given message.
func expectBadRequest(t *testing.T, err error, message string) {
	t.Helper()
	var httpErr *strategy.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *strategy.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Status != 400 {
		t.Errorf("status: expected 400, got %d", httpErr.Status)
	}
	if httpErr.Message != message {
		t.Errorf("message: expected %q, got %q", message, httpErr.Message)
	}
}

func TestValidateState(t *testing.T) {
	t.Run("matching state succeeds and clears the session key", func(t *testing.T) {
		sess := session.New()
		storeState(sess, "abc")

		if err := validateState(sess, "abc"); err != nil {
			t.Fatalf("validateState failed: %v", err)
		}
		if sess.Has(stateKey) {
			t.Error("state key survived a successful validation")
		}
	})

	t.Run("missing url state fails before touching the session", func(t *testing.T) {
		sess := session.New()
		storeState(sess, "abc")

		err := validateState(sess, "")
		expectBadRequest(t, err, "Missing state on URL.")
		// Nothing evaluated yet, so the stored token stays for a retry.
		if !sess.Has(stateKey) {
			t.Error("state key removed though no comparison happened")
		}
	})

	t.Run("missing session state fails", func(t *testing.T) {
		sess := session.New()

		err := validateState(sess, "abc")
		expectBadRequest(t, err, "Missing state on session.")
	})

	t.Run("mismatch fails and still clears the session key", func(t *testing.T) {
		sess := session.New()
		storeState(sess, "abc")

		err := validateState(sess, "xyz")
		expectBadRequest(t, err, "State doesn't match.")
		if sess.Has(stateKey) {
			t.Error("state key survived a failed comparison; token is replayable")
		}
	})

	t.Run("second flow overwrites the first token", func(t *testing.T) {
		sess := session.New()
		storeState(sess, "first")
		storeState(sess, "second")

		err := validateState(sess, "first")
		expectBadRequest(t, err, "State doesn't match.")
	})
}
