package crawler

import (
	"errors"
	"net/url"
	"testing"
)

// TestNormalize tests URL canonicalization.
func TestNormalize(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("https://example.com/dir/page")
	if err != nil {
		t.Fatalf("failed to parse base: %v", err)
	}

	testCases := []struct {
		name     string
		raw      string
		expected string
	}{
		{"relative path", "other", "https://example.com/dir/other"},
		{"root relative", "/top", "https://example.com/top"},
		{"absolute", "https://example.com/a", "https://example.com/a"},
		{"uppercase scheme and host", "HTTPS://EXAMPLE.COM/Path", "https://example.com/Path"},
		{"default https port", "https://example.com:443/a", "https://example.com/a"},
		{"default http port", "http://example.com:80/a", "http://example.com/a"},
		{"fragment stripped", "/a#section", "https://example.com/a"},
		{"trailing slash stripped", "/a/", "https://example.com/a"},
		{"empty path becomes root", "https://example.com", "https://example.com/"},
		{"root slash kept", "https://example.com/", "https://example.com/"},
		{"query kept", "/a?x=1", "https://example.com/a?x=1"},
		{"whitespace trimmed", "  /a  ", "https://example.com/a"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Normalize(base, tc.raw)
			if err != nil {
				t.Fatalf("Normalize(%q) unexpected error: %v", tc.raw, err)
			}
			if got != tc.expected {
				t.Errorf("Normalize(%q) = %q, expected %q", tc.raw, got, tc.expected)
			}
		})
	}
}

// TestNormalizeRejections tests that disallowed links are rejected.
func TestNormalizeRejections(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("https://example.com/")
	if err != nil {
		t.Fatalf("failed to parse base: %v", err)
	}

	rejected := []struct {
		name string
		raw  string
	}{
		{"javascript pseudo-link", "javascript:void(0)"},
		{"mailto pseudo-link", "mailto:user@example.com"},
		{"tel pseudo-link", "tel:+123456"},
		{"data URI", "data:text/plain,hello"},
		{"bare fragment", "#"},
		{"empty", ""},
		{"ftp scheme", "ftp://example.com/file"},
	}

	for _, tc := range rejected {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Normalize(base, tc.raw); !errors.Is(err, ErrRejectedURL) {
				t.Errorf("Normalize(%q) = %v, expected ErrRejectedURL", tc.raw, err)
			}
		})
	}
}

// TestNormalizeIsPure tests that repeated normalization is stable.
func TestNormalizeIsPure(t *testing.T) {
	t.Parallel()

	first, err := Normalize(nil, "HTTP://Example.COM:80/a/?x=1#frag")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Normalize(nil, first)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("normalization not idempotent: %q != %q", first, second)
	}
}

// TestPolicy tests the registrable-domain allow policy.
func TestPolicy(t *testing.T) {
	t.Parallel()

	policy, err := NewPolicy("https://www.example.com/", false)
	if err != nil {
		t.Fatalf("failed to create policy: %v", err)
	}

	t.Run("same domain is internal", func(t *testing.T) {
		t.Parallel()
		internal := []string{
			"https://example.com/page",
			"https://www.example.com/page",
			"https://blog.example.com/post/1",
		}
		for _, link := range internal {
			if !policy.Internal(link) {
				t.Errorf("expected %q to be internal", link)
			}
			if !policy.Enqueueable(link) {
				t.Errorf("expected %q to be enqueueable", link)
			}
		}
	})

	t.Run("other domain is external", func(t *testing.T) {
		t.Parallel()
		external := []string{
			"https://other.com/page",
			"https://notexample.com/page",
		}
		for _, link := range external {
			if policy.Internal(link) {
				t.Errorf("expected %q to be external", link)
			}
			if policy.Enqueueable(link) {
				t.Errorf("expected %q not to be enqueueable", link)
			}
		}
	})

	t.Run("cross-domain enables external enqueue", func(t *testing.T) {
		t.Parallel()
		open, err := NewPolicy("https://example.com/", true)
		if err != nil {
			t.Fatalf("failed to create policy: %v", err)
		}
		if !open.Enqueueable("https://other.com/page") {
			t.Error("expected external URL to be enqueueable with cross-domain enabled")
		}
		if open.Internal("https://other.com/page") {
			t.Error("cross-domain must not reclassify external links as internal")
		}
	})
}

// TestPolicyInvalidSeed tests that an unusable seed is a fatal error.
func TestPolicyInvalidSeed(t *testing.T) {
	t.Parallel()

	if _, err := NewPolicy("://not-a-url", false); err == nil {
		t.Error("expected error for invalid seed")
	}
}
