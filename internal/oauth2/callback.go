// callback.go -- Callback target resolution.
package oauth2

import (
	"fmt"
	"net/url"
	"strings"
)

// resolveCallbackURL turns the configured callback target into an absolute
// URL using the current request URL for whatever the target leaves out.
//
// Rules, in order:
//   - already absolute (http/https scheme): returned as-is.
//   - path-only ("/cb"): resolved against the request's origin.
//   - bare host/path ("host/cb"): prefixed with the request's scheme.
//
// Pure function of its inputs; no session or network side effects.
func resolveCallbackURL(target string, requestURL *url.URL) (*url.URL, error) {
	switch {
	case strings.HasPrefix(target, "http:") || strings.HasPrefix(target, "https:"):
		u, err := url.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("invalid callback url %q: %w", target, err)
		}
		return u, nil
	case strings.HasPrefix(target, "/"):
		origin := &url.URL{Scheme: requestURL.Scheme, Host: requestURL.Host}
		u, err := origin.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("invalid callback path %q: %w", target, err)
		}
		return u, nil
	default:
		u, err := url.Parse(requestURL.Scheme + "://" + target)
		if err != nil {
			return nil, fmt.Errorf("invalid callback host %q: %w", target, err)
		}
		return u, nil
	}
}
