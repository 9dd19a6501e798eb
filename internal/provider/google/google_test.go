// google_test.go -- unit tests for the id_token claim mapping.
package google

import (
	"testing"

	"github.com/MGallo-Code/authflow/internal/oauth2"
)

func TestProfileFromClaims(t *testing.T) {
	t.Run("full claim set", func(t *testing.T) {
		p := profileFromClaims(claims{
			Sub:           "1098765",
			Email:         "jo@example.com",
			EmailVerified: true,
			Name:          "Jo Smith",
			GivenName:     "Jo",
			FamilyName:    "Smith",
			Picture:       "https://lh3.example.com/photo.jpg",
		})

		if p.Provider != "google" {
			t.Errorf("provider: expected google, got %q", p.Provider)
		}
		if p.ID != "1098765" {
			t.Errorf("id: expected 1098765, got %q", p.ID)
		}
		if p.DisplayName != "Jo Smith" {
			t.Errorf("display name: expected %q, got %q", "Jo Smith", p.DisplayName)
		}
		if p.Name.GivenName != "Jo" || p.Name.FamilyName != "Smith" {
			t.Errorf("name parts: got %+v", p.Name)
		}
		if len(p.Emails) != 1 {
			t.Fatalf("emails: expected 1, got %d", len(p.Emails))
		}
		if p.Emails[0] != (oauth2.Email{Value: "jo@example.com", Verified: true}) {
			t.Errorf("email: got %+v", p.Emails[0])
		}
		if len(p.Photos) != 1 || p.Photos[0].Value != "https://lh3.example.com/photo.jpg" {
			t.Errorf("photos: got %+v", p.Photos)
		}
	})

	t.Run("unverified email", func(t *testing.T) {
		p := profileFromClaims(claims{Sub: "1", Email: "jo@example.com"})
		if len(p.Emails) != 1 || p.Emails[0].Verified {
			t.Errorf("expected one unverified email, got %+v", p.Emails)
		}
	})

	t.Run("sparse claims omit empty slices", func(t *testing.T) {
		p := profileFromClaims(claims{Sub: "2"})
		if len(p.Emails) != 0 {
			t.Errorf("expected no emails, got %+v", p.Emails)
		}
		if len(p.Photos) != 0 {
			t.Errorf("expected no photos, got %+v", p.Photos)
		}
		if p.ID != "2" {
			t.Errorf("id: expected 2, got %q", p.ID)
		}
	})
}
