package crawler

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		domain string
		want   string
		reject bool
	}{
		{"scheme defaults to https", "example.com", "example.com", "https://example.com/", false},
		{"scheme-less with path", "example.com/docs/", "example.com", "https://example.com/docs", false},
		{"root keeps slash", "https://example.com/", "example.com", "https://example.com/", false},
		{"empty path becomes root", "https://example.com", "example.com", "https://example.com/", false},
		{"trailing slash dropped", "https://example.com/about/", "example.com", "https://example.com/about", false},
		{"repeated trailing slashes dropped", "https://example.com/about//", "example.com", "https://example.com/about", false},
		{"fragment stripped", "https://example.com/a#section", "example.com", "https://example.com/a", false},
		{"query kept", "https://example.com/search?q=go", "example.com", "https://example.com/search?q=go", false},
		{"empty query dropped", "https://example.com/a?", "example.com", "https://example.com/a", false},
		{"host case folded", "HTTPS://Example.COM/Path", "example.com", "https://example.com/Path", false},
		{"domain case folded", "https://example.com/", "EXAMPLE.com", "https://example.com/", false},
		{"http allowed", "http://example.com/a", "example.com", "http://example.com/a", false},
		{"user info dropped", "https://user:pw@example.com/a", "example.com", "https://example.com/a", false},
		{"port is part of host", "localhost:8080/x", "localhost:8080", "https://localhost:8080/x", false},
		{"other host rejected", "https://other.com/", "example.com", "", true},
		{"subdomain rejected", "https://www.example.com/", "example.com", "", true},
		{"other port rejected", "https://example.com:8443/", "example.com", "", true},
		{"mailto rejected", "mailto:someone@example.com", "example.com", "", true},
		{"javascript rejected", "javascript:void(0)", "example.com", "", true},
		{"ftp rejected", "ftp://example.com/file", "example.com", "", true},
		{"empty rejected", "   ", "example.com", "", true},
		{"malformed rejected", "https://exa mple.com/", "example.com", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw, tt.domain)
			if tt.reject {
				if !errors.Is(err, ErrRejected) {
					t.Fatalf("Normalize(%q) = %q, %v; want ErrRejected", tt.raw, got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize(%q) unexpected error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"example.com",
		"example.com/a/b/",
		"https://EXAMPLE.com/a//#frag",
		"http://example.com/search?q=a+b&page=2",
		"https://example.com/caf%C3%A9/",
		"https://example.com/a%2Fb/",
		"https://example.com/?",
	}

	for _, in := range inputs {
		once, err := Normalize(in, "example.com")
		if err != nil {
			t.Fatalf("Normalize(%q) error: %v", in, err)
		}
		twice, err := Normalize(once, "example.com")
		if err != nil {
			t.Fatalf("Normalize(%q) error: %v", once, err)
		}
		if once != twice {
			t.Errorf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestNormalizeDomainContainment(t *testing.T) {
	links := []string{
		"/a", "b", "../c", "//example.com/d", "//evil.com/e",
		"https://evil.com/", "https://example.com.evil.com/",
		"http://example.com/f", "?page=2", "#top",
	}

	for _, href := range links {
		abs, err := Resolve("https://example.com/dir/page", href)
		if err != nil {
			continue
		}
		got, err := Normalize(abs, "example.com")
		if err != nil {
			continue
		}
		if !strings.HasPrefix(got, "https://example.com/") && !strings.HasPrefix(got, "http://example.com/") {
			t.Errorf("link %q accepted as %q outside example.com", href, got)
		}
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		base, href, want string
	}{
		{"https://example.com/docs/", "intro", "https://example.com/docs/intro"},
		{"https://example.com/docs", "intro", "https://example.com/intro"},
		{"https://example.com/a/b", "/root", "https://example.com/root"},
		{"https://example.com/a/b", "../up", "https://example.com/up"},
		{"https://example.com/a", "//other.com/x", "https://other.com/x"},
		{"https://example.com/a", "https://example.com/z", "https://example.com/z"},
	}

	for _, tt := range tests {
		got, err := Resolve(tt.base, tt.href)
		if err != nil {
			t.Errorf("Resolve(%q, %q) error: %v", tt.base, tt.href, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", tt.base, tt.href, got, tt.want)
		}
	}
}

func TestDomain(t *testing.T) {
	tests := []struct {
		seed    string
		want    string
		wantErr bool
	}{
		{"example.com", "example.com", false},
		{"https://Example.com/start", "example.com", false},
		{"http://127.0.0.1:8080", "127.0.0.1:8080", false},
		{"localhost:3000", "localhost:3000", false},
		{"http://[::1]:9000/", "[::1]:9000", false},
		{"notaurl", "", true},
		{"", "", true},
		{"ftp://example.com", "", true},
		{"https://", "", true},
		{"https://bad_host.com", "", true},
		{"https://.example.com", "", true},
	}

	for _, tt := range tests {
		got, err := Domain(tt.seed)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidSeed) {
				t.Errorf("Domain(%q) = %q, %v; want ErrInvalidSeed", tt.seed, got, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Domain(%q) unexpected error: %v", tt.seed, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Domain(%q) = %q, want %q", tt.seed, got, tt.want)
		}
	}
}
