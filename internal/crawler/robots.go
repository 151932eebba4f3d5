package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsGate checks URLs against each host's robots.txt. The policy file is
// fetched once per host and cached for the lifetime of the crawl.
//
// A URL disallowed by robots.txt is a policy rejection: it is skipped
// silently and never counted as a failure. Hosts whose robots.txt cannot be
// fetched are treated permissively, matching the de facto convention that
// an unreachable policy file does not forbid crawling.
type RobotsGate struct {
	// client fetches robots.txt files.
	client *http.Client

	// userAgent selects the matching robots.txt group.
	userAgent string

	// mu protects groups.
	mu sync.Mutex

	// groups caches the matched group per "scheme://host".
	groups map[string]*robotstxt.Group
}

// NewRobotsGate creates a gate that evaluates robots.txt rules for the
// given user agent.
func NewRobotsGate(transport http.RoundTripper, userAgent string) *RobotsGate {
	return &RobotsGate{
		client: &http.Client{
			Transport: transport,
			Timeout:   10 * time.Second,
		},
		userAgent: userAgent,
		groups:    make(map[string]*robotstxt.Group),
	}
}

// Allowed reports whether the URL may be crawled under its host's
// robots.txt rules.
func (g *RobotsGate) Allowed(ctx context.Context, rawURL string) bool {
	if g == nil {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	group := g.groupFor(ctx, u)
	if group == nil {
		return true
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

// groupFor returns the cached robots.txt group for the URL's host, fetching
// and parsing the policy file on first use.
func (g *RobotsGate) groupFor(ctx context.Context, u *url.URL) *robotstxt.Group {
	key := u.Scheme + "://" + u.Host

	g.mu.Lock()
	group, ok := g.groups[key]
	g.mu.Unlock()
	if ok {
		return group
	}

	group = g.fetchGroup(ctx, key)

	g.mu.Lock()
	g.groups[key] = group
	g.mu.Unlock()
	return group
}

// fetchGroup retrieves and parses one host's robots.txt. A nil group means
// no restrictions.
func (g *RobotsGate) fetchGroup(ctx context.Context, base string) *robotstxt.Group {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/robots.txt", base), nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil
	}

	robots, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil
	}
	return robots.FindGroup(g.userAgent)
}
