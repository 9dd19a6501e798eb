// oauth2.go -- OAuth 2.0 Authorization Code Grant strategy.
//
// Drives a user through redirect-based delegated authentication with a
// third-party provider and yields whatever user object the application's
// verify function returns. One Authenticate entry point serves both legs:
// a request to any non-callback path issues the authorization redirect; a
// request to the callback path validates state, exchanges the code, fetches
// the profile, and runs verify.
//
// Provider packages (internal/provider/*) specialize a Strategy by setting
// the exported extension fields instead of subclassing.
package oauth2

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/MGallo-Code/authflow/internal/session"
	"github.com/MGallo-Code/authflow/internal/strategy"
)

// Config is the immutable, provider-bound configuration for one strategy.
// All five fields are required.
type Config struct {
	AuthorizationURL string // provider endpoint that obtains the authorization grant
	TokenURL         string // provider endpoint that exchanges the code for tokens
	ClientID         string
	ClientSecret     string
	CallbackURL      string // absolute, path-only, or host-relative callback target
}

// VerifyParams is everything the application's verify function gets to look at.
type VerifyParams struct {
	AccessToken  string
	RefreshToken string
	Extra        map[string]any // token response fields beyond the two tokens
	Profile      *Profile
	Context      *strategy.Context
}

// VerifyFunc maps flow results to an application user object, or rejects the
// authentication with an error. The error's message is surfaced through the
// failure hook; it is never retried.
type VerifyFunc func(ctx context.Context, p VerifyParams) (any, error)

// Strategy implements the Authorization Code Grant as a strategy.Strategy.
//
// The zero value is not usable; construct with New. The exported fields are
// extension points for provider packages -- nil means the generic default.
type Strategy struct {
	name   string
	cfg    Config
	verify VerifyFunc

	// UserProfile fetches/maps the provider profile given an access token and
	// the exchange's extra params. Default: a minimal profile carrying only
	// the provider name, with no network call.
	UserProfile ProfileFunc

	// AuthorizationParams returns extra authorization-request parameters,
	// starting from the incoming request's query. Default: pass-through.
	AuthorizationParams func(q url.Values) url.Values

	// TokenParams returns extra token-request parameters. Default: none.
	TokenParams func() url.Values

	// HTTPClient makes the outbound provider calls. Default: http.DefaultClient.
	// Apply timeouts here; the strategy sets none of its own.
	HTTPClient *http.Client
}

// New returns a Strategy named name (used as the Profile.Provider
// discriminator) for the given configuration and verify function.
func New(name string, cfg Config, verify VerifyFunc) (*Strategy, error) {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"AuthorizationURL", cfg.AuthorizationURL},
		{"TokenURL", cfg.TokenURL},
		{"ClientID", cfg.ClientID},
		{"ClientSecret", cfg.ClientSecret},
		{"CallbackURL", cfg.CallbackURL},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("oauth2 config missing %s", strings.Join(missing, ", "))
	}
	if verify == nil {
		return nil, fmt.Errorf("oauth2 verify function is required")
	}
	if name == "" {
		name = "oauth2"
	}
	return &Strategy{name: name, cfg: cfg, verify: verify}, nil
}

// Name returns the strategy/provider name.
func (s *Strategy) Name() string { return s.name }

// Authenticate runs one leg of the authorization-code flow.
//
// Phases, in order:
//  1. session already holds a user under opts.SessionKey -> success, no I/O.
//  2. request path is not the callback path -> store a fresh state token in
//     the session and fail fast with a *strategy.Redirect to the provider's
//     authorization URL (carrying the session commit header).
//  3. callback leg: validate state and code, exchange the code, fetch the
//     profile, run verify, then report through exactly one of the hooks.
func (s *Strategy) Authenticate(ctx context.Context, r *http.Request, sess *session.Session, opts strategy.Options) (any, error) {
	if user := sess.Get(opts.SessionKey); user != nil {
		return opts.Succeed(ctx, user, r, sess)
	}

	callback, err := resolveCallbackURL(s.cfg.CallbackURL, requestURL(r))
	if err != nil {
		return nil, fmt.Errorf("resolving callback url: %w", err)
	}

	if r.URL.Path != callback.Path {
		return nil, s.redirectToProvider(ctx, r, sess, opts)
	}

	// Callback leg: the provider sent the browser back with state + code.
	q := r.URL.Query()
	if err := validateState(sess, q.Get("state")); err != nil {
		return nil, err
	}
	code := q.Get("code")
	if code == "" {
		return nil, &strategy.HTTPError{Status: http.StatusBadRequest, Message: "Missing code."}
	}

	params := s.tokenParams()
	params.Set("grant_type", "authorization_code")
	params.Set("redirect_uri", callback.String())
	tokenURL := s.cfg.TokenURL
	if opts.Context != nil && opts.Context.TokenURL != "" {
		tokenURL = opts.Context.TokenURL
	}
	token, err := s.Exchange(ctx, code, params, tokenURL)
	if err != nil {
		return nil, err
	}

	// Profile needs the access token, so it strictly follows the exchange.
	profile, err := s.userProfile(ctx, token.AccessToken, token.Extra)
	if err != nil {
		return nil, fmt.Errorf("fetching user profile: %w", err)
	}

	user, err := s.verify(ctx, VerifyParams{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Extra:        token.Extra,
		Profile:      profile,
		Context:      opts.Context,
	})
	if err != nil {
		return opts.Fail(ctx, err.Error(), r, sess)
	}
	return opts.Succeed(ctx, user, r, sess)
}

// redirectToProvider stores a fresh state token in the session and builds the
// *strategy.Redirect for the authorization URL. The redirect carries the
// committed session so the state survives the round trip.
func (s *Strategy) redirectToProvider(ctx context.Context, r *http.Request, sess *session.Session, opts strategy.Options) error {
	state := generateState()
	storeState(sess, state)

	target, err := s.authorizationURL(r, state, opts.Context)
	if err != nil {
		return err
	}

	header := http.Header{}
	if opts.Sessions != nil {
		cookie, err := opts.Sessions.Commit(ctx, sess)
		if err != nil {
			return fmt.Errorf("committing session: %w", err)
		}
		header.Set("Set-Cookie", cookie)
	}
	return &strategy.Redirect{URL: target.String(), Header: header}
}

// authorizationURL builds the provider consent-page URL.
// redirect_uri is the configured callback string, not the resolved one --
// the provider must see exactly what was registered.
func (s *Strategy) authorizationURL(r *http.Request, state string, sctx *strategy.Context) (*url.URL, error) {
	params := s.authorizationParams(r.URL.Query())
	params.Set("response_type", "code")
	params.Set("client_id", s.cfg.ClientID)
	params.Set("redirect_uri", s.cfg.CallbackURL)
	params.Set("state", state)

	base := s.cfg.AuthorizationURL
	if sctx != nil && sctx.AuthorizationURL != "" {
		base = sctx.AuthorizationURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing authorization url: %w", err)
	}
	u.RawQuery = params.Encode()
	return u, nil
}

func (s *Strategy) authorizationParams(q url.Values) url.Values {
	if s.AuthorizationParams != nil {
		return s.AuthorizationParams(q)
	}
	return q
}

func (s *Strategy) tokenParams() url.Values {
	if s.TokenParams != nil {
		return s.TokenParams()
	}
	return url.Values{}
}

func (s *Strategy) httpClient() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return http.DefaultClient
}

// requestURL rebuilds the absolute URL of the incoming request.
// Server-side r.URL carries only path + query; scheme and host come from the
// connection and headers. X-Forwarded-Proto wins so TLS-terminating proxies
// resolve path-relative callbacks to https.
func requestURL(r *http.Request) *url.URL {
	u := *r.URL
	u.Host = r.Host
	u.Scheme = "http"
	if r.TLS != nil {
		u.Scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		u.Scheme = proto
	}
	return &u
}
