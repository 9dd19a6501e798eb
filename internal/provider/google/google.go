// google.go -- Google provider built on the generic OAuth2 strategy.
//
// Endpoints come from Google's OIDC discovery document; the profile comes
// from the id_token the token exchange already returned, verified against
// Google's JWKS -- no extra userinfo round trip.
package google

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/MGallo-Code/authflow/internal/oauth2"
	"github.com/coreos/go-oidc/v3/oidc"
)

const issuer = "https://accounts.google.com"

// New builds a "google" strategy by fetching Google's OIDC discovery
// document. Makes an outbound HTTP request at startup; returns an error if
// Google is unreachable.
func New(ctx context.Context, clientID, clientSecret, callbackURL string, verify oauth2.VerifyFunc) (*oauth2.Strategy, error) {
	p, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("google oidc discovery: %w", err)
	}
	endpoint := p.Endpoint()

	s, err := oauth2.New("google", oauth2.Config{
		AuthorizationURL: endpoint.AuthURL,
		TokenURL:         endpoint.TokenURL,
		ClientID:         clientID,
		ClientSecret:     clientSecret,
		CallbackURL:      callbackURL,
	}, verify)
	if err != nil {
		return nil, err
	}

	s.AuthorizationParams = func(q url.Values) url.Values {
		q.Set("scope", strings.Join([]string{oidc.ScopeOpenID, "email", "profile"}, " "))
		return q
	}

	verifier := p.Verifier(&oidc.Config{ClientID: clientID})
	s.UserProfile = func(ctx context.Context, _ string, extra map[string]any) (*oauth2.Profile, error) {
		rawIDToken, ok := extra["id_token"].(string)
		if !ok {
			return nil, fmt.Errorf("no id_token in token response")
		}
		// Verifies the signature against Google's JWKS, checks aud + exp.
		idToken, err := verifier.Verify(ctx, rawIDToken)
		if err != nil {
			return nil, fmt.Errorf("verifying id token: %w", err)
		}
		var c claims
		if err := idToken.Claims(&c); err != nil {
			return nil, fmt.Errorf("extracting id token claims: %w", err)
		}
		return profileFromClaims(c), nil
	}

	return s, nil
}

// claims is the subset of Google's id_token payload the profile uses.
// All fields are verified server-side; never trust client-supplied values.
type claims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// profileFromClaims maps verified id_token claims into the canonical shape.
// Empty claim fields stay empty -- Google omits them for some account types.
func profileFromClaims(c claims) *oauth2.Profile {
	p := &oauth2.Profile{
		Provider:    "google",
		ID:          c.Sub,
		DisplayName: c.Name,
		Name: oauth2.Name{
			GivenName:  c.GivenName,
			FamilyName: c.FamilyName,
		},
	}
	if c.Email != "" {
		p.Emails = append(p.Emails, oauth2.Email{Value: c.Email, Verified: c.EmailVerified})
	}
	if c.Picture != "" {
		p.Photos = append(p.Photos, oauth2.Photo{Value: c.Picture})
	}
	return p
}
