package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ErrRejectedURL is returned by Normalize for links that must never become
// crawl targets: pseudo-links, non-HTTP(S) schemes, and unparseable values.
// Rejections are policy decisions, not failures; callers drop them silently.
var ErrRejectedURL = errors.New("rejected URL")

// Normalize resolves a raw link against its base URL and canonicalizes the
// result so that equivalent URLs map to one normalized form:
//
//   - relative references are resolved against base
//   - scheme and host are lower-cased
//   - default ports (:80 for http, :443 for https) are stripped
//   - the fragment is stripped
//   - an empty path becomes "/" and a redundant trailing slash on a
//     non-root path is removed
//
// Normalize is a pure function with no side effects. It returns
// ErrRejectedURL for javascript:/mailto:/tel:/data: pseudo-links, bare
// fragments, and any scheme other than http or https.
func Normalize(base *url.URL, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "#" {
		return "", fmt.Errorf("%w: empty link", ErrRejectedURL)
	}

	lower := strings.ToLower(raw)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return "", fmt.Errorf("%w: pseudo-link %s", ErrRejectedURL, prefix)
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRejectedURL, err)
	}
	if base != nil {
		u = base.ResolveReference(u)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q", ErrRejectedURL, u.Scheme)
	}

	u.Host = strings.ToLower(u.Host)
	switch {
	case u.Scheme == "http" && strings.HasSuffix(u.Host, ":80"):
		u.Host = strings.TrimSuffix(u.Host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(u.Host, ":443"):
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrRejectedURL)
	}

	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	} else if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String(), nil
}

// Policy decides which discovered URLs belong to the crawl's own site.
// Internal URLs may be enqueued; external URLs are recorded as edges only.
//
// Design decision: We compare registrable domains (eTLD+1) rather than exact
// hosts because:
//  1. www.example.com and example.com are the same site in practice
//  2. Subdomain layouts (blog.example.com) are part of the same property
//  3. The public suffix list handles multi-label TLDs (co.uk) correctly
type Policy struct {
	// domain is the registrable domain of the seed.
	domain string

	// crossDomain allows enqueueing any host when true. External links
	// are still classified as external edges.
	crossDomain bool
}

// NewPolicy creates a Policy anchored at the given normalized seed URL.
func NewPolicy(seed string, crossDomain bool) (*Policy, error) {
	u, err := url.Parse(seed)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL: %w", err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("invalid seed URL: missing host in %q", seed)
	}
	return &Policy{
		domain:      registrableDomain(u.Hostname()),
		crossDomain: crossDomain,
	}, nil
}

// Internal reports whether the URL belongs to the same registrable domain
// as the seed.
func (p *Policy) Internal(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return registrableDomain(u.Hostname()) == p.domain
}

// Enqueueable reports whether the URL may enter the frontier. Internal URLs
// always may; external URLs only when cross-domain crawling is enabled.
func (p *Policy) Enqueueable(rawURL string) bool {
	if p.crossDomain {
		return true
	}
	return p.Internal(rawURL)
}

// registrableDomain returns the eTLD+1 for a host, falling back to the host
// itself for names the public suffix list cannot split (bare hosts, IPs,
// private test domains).
func registrableDomain(host string) string {
	host = strings.ToLower(host)
	if domain, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return domain
	}
	return host
}
