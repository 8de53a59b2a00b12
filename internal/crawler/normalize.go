package crawler

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"unicode"
)

// Normalize returns the canonical form of rawURL, or an error wrapping
// ErrRejected when rawURL is malformed, not http(s), or not on domain.
//
// The canonical form has a lower-case scheme and host, no fragment or user
// info, and no trailing slash except for the root path "/". A missing
// scheme defaults to https. The port is part of the host.
func Normalize(rawURL, domain string) (string, error) {
	u, err := parseWebURL(rawURL)
	if err != nil {
		return "", err
	}

	if !strings.EqualFold(u.Host, domain) {
		return "", fmt.Errorf("%w: host %q is outside %q", ErrRejected, u.Host, domain)
	}

	return canonical(u), nil
}

// Resolve resolves href against the page URL it was found on.
func Resolve(base, href string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: bad base %q: %v", ErrRejected, base, err)
	}
	h, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("%w: bad href %q: %v", ErrRejected, href, err)
	}
	return b.ResolveReference(h).String(), nil
}

// Domain returns the crawl domain (lower-case host, port included) of a
// seed URL. Seeds whose host cannot be a real site, such as "notaurl",
// are rejected with ErrInvalidSeed.
func Domain(seed string) (string, error) {
	u, err := parseWebURL(seed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}

	if !plausibleHost(u.Hostname()) {
		return "", fmt.Errorf("%w: %q is not a host name", ErrInvalidSeed, u.Hostname())
	}

	return u.Host, nil
}

func parseWebURL(rawURL string) (*url.URL, error) {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return nil, fmt.Errorf("%w: empty url", ErrRejected)
	}
	if !hasScheme(s) {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRejected, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrRejected, u.Scheme)
	}

	u.Host = strings.ToLower(u.Host)
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrRejected, rawURL)
	}

	return u, nil
}

func canonical(u *url.URL) string {
	c := *u
	c.User = nil
	c.Fragment = ""
	c.RawFragment = ""
	c.ForceQuery = false

	if c.Path == "" {
		c.Path = "/"
		c.RawPath = ""
	} else if len(c.Path) > 1 {
		// Trim every trailing slash so that canonical(canonical(u)) == canonical(u).
		c.Path = strings.TrimRight(c.Path, "/")
		c.RawPath = strings.TrimRight(c.RawPath, "/")
		if c.Path == "" {
			c.Path = "/"
			c.RawPath = ""
		}
	}

	return c.String()
}

// hasScheme reports whether s starts with a URL scheme. "host:port/..."
// is not treated as a scheme.
func hasScheme(s string) bool {
	if strings.Contains(s, "://") {
		return true
	}

	i := strings.IndexByte(s, ':')
	if i <= 0 {
		return false
	}

	for j, c := range s[:i] {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case j > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}

	rest := s[i+1:]
	return rest == "" || rest[0] < '0' || rest[0] > '9'
}

func plausibleHost(host string) bool {
	if host == "localhost" || net.ParseIP(host) != nil {
		return true
	}
	if !strings.Contains(host, ".") || strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") {
		return false
	}
	for _, r := range host {
		if r != '.' && r != '-' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
