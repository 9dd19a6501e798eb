// callback_test.go -- unit tests for callback target resolution.
package oauth2

import (
	"net/url"
	"testing"
)

func TestResolveCallbackURL(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		request string
		want    string
	}{
		{
			name:    "absolute target ignores the request url",
			target:  "https://a/cb",
			request: "http://other.example.com/whatever?x=1",
			want:    "https://a/cb",
		},
		{
			name:    "path-only target resolves against the request origin",
			target:  "/cb",
			request: "https://host/x",
			want:    "https://host/cb",
		},
		{
			name:    "bare host target takes the request scheme",
			target:  "host2/cb",
			request: "https://host/x",
			want:    "https://host2/cb",
		},
		{
			name:    "bare host target over plain http",
			target:  "host2/cb",
			request: "http://host/x",
			want:    "http://host2/cb",
		},
		{
			name:    "path-only target drops the request path and query",
			target:  "/auth/callback",
			request: "https://app.example.com/deep/path?code=1",
			want:    "https://app.example.com/auth/callback",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reqURL, err := url.Parse(tc.request)
			if err != nil {
				t.Fatalf("parsing request url: %v", err)
			}
			got, err := resolveCallbackURL(tc.target, reqURL)
			if err != nil {
				t.Fatalf("resolveCallbackURL failed: %v", err)
			}
			if got.String() != tc.want {
				t.Errorf("resolved url: expected %q, got %q", tc.want, got.String())
			}
		})
	}
}
