package frontier

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL canonicalizes a raw URL for dedup purposes: the scheme and
// host are lowercased, default ports are stripped, the fragment is dropped
// and an empty path becomes "/". It returns the normalized URL and the host
// it belongs to.
func NormalizeURL(rawURL string) (normalized, domain string, err error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}

	host := strings.ToLower(u.Host)
	if host == "" {
		return "", "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	switch {
	case u.Scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}
	u.Host = host

	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String(), u.Hostname(), nil
}
