// token.go -- Authorization-code / refresh-token exchange against the
// provider's token endpoint.
package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// TokenResult is the canonical parse of a successful token response.
// Extra preserves every body field beyond the two tokens verbatim
// (token_type, expires_in, id_token, ...) for provider-specific use.
// Immutable after creation.
type TokenResult struct {
	AccessToken  string
	RefreshToken string
	Extra        map[string]any
}

// ExchangeError is a non-success response from the token endpoint.
// Body carries the provider's raw error body, or the read error's message if
// the body could not be read. Status is what the host should surface (401).
type ExchangeError struct {
	Status int
	Body   string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed: %s", e.Body)
}

// Exchange POSTs a form-encoded token request built from params and returns
// the parsed result.
//
// params already carries grant_type and any provider-specific extras; this
// sets client_id and client_secret on top. When grant_type is
// "refresh_token", code is sent under the refresh_token key instead of code,
// so the same path serves token refresh. An empty tokenURL means the
// configured endpoint; callers pass a per-request override here.
//
// Transport errors propagate unwrapped in meaning: no retries, no timeout of
// this function's own.
func (s *Strategy) Exchange(ctx context.Context, code string, params url.Values, tokenURL string) (*TokenResult, error) {
	body := url.Values{}
	for k, vs := range params {
		body[k] = append([]string(nil), vs...)
	}
	body.Set("client_id", s.cfg.ClientID)
	body.Set("client_secret", s.cfg.ClientSecret)
	if body.Get("grant_type") == "refresh_token" {
		body.Set("refresh_token", code)
	} else {
		body.Set("code", code)
	}

	if tokenURL == "" {
		tokenURL = s.cfg.TokenURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(body.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting token request: %w", err)
	}
	defer resp.Body.Close()

	// One read serves both the error path and the parse -- the body stream
	// cannot be consumed twice.
	raw, readErr := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(raw)
		if readErr != nil {
			msg = readErr.Error()
		}
		return nil, &ExchangeError{Status: http.StatusUnauthorized, Body: msg}
	}
	if readErr != nil {
		return nil, fmt.Errorf("reading token response: %w", readErr)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}
	result := &TokenResult{Extra: fields}
	if v, ok := fields["access_token"].(string); ok {
		result.AccessToken = v
	}
	if v, ok := fields["refresh_token"].(string); ok {
		result.RefreshToken = v
	}
	delete(fields, "access_token")
	delete(fields, "refresh_token")
	return result, nil
}

// Refresh exchanges a refresh token for a new token result against the
// configured token endpoint.
func (s *Strategy) Refresh(ctx context.Context, refreshToken string) (*TokenResult, error) {
	params := s.tokenParams()
	params.Set("grant_type", "refresh_token")
	return s.Exchange(ctx, refreshToken, params, "")
}
