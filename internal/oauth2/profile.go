// profile.go -- Canonical user profile shape and the default resolver.
package oauth2

import "context"

// Profile is the provider-shaped user identity, normalized for the verify
// function. Only Provider is guaranteed; everything else is best-effort.
type Profile struct {
	Provider    string
	ID          string // provider-specific stable user id
	DisplayName string
	Name        Name
	Emails      []Email
	Photos      []Photo
}

// Name is the structured form of a display name.
type Name struct {
	GivenName  string
	FamilyName string
}

// Email is one address the provider attests to.
type Email struct {
	Value    string
	Verified bool
}

// Photo is a provider-hosted avatar URL from a verified source. Safe to
// store, but consuming apps should proxy or CSP-guard it before rendering.
type Photo struct {
	Value string
}

// ProfileFunc fetches/maps a provider profile given an access token and the
// exchange's extra params.
type ProfileFunc func(ctx context.Context, accessToken string, extra map[string]any) (*Profile, error)

// userProfile runs the configured resolver, or the no-network default that
// carries only the provider discriminator. Provider packages override via
// the UserProfile field to hit the provider's userinfo endpoint or verify an
// id_token from extra.
func (s *Strategy) userProfile(ctx context.Context, accessToken string, extra map[string]any) (*Profile, error) {
	if s.UserProfile != nil {
		return s.UserProfile(ctx, accessToken, extra)
	}
	return &Profile{Provider: s.name}, nil
}
