package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/webrecon/internal/graph"
	"github.com/nao1215/webrecon/internal/model"
)

// Spider drives the breadth-first traversal of one site to completion under
// a bounded number of concurrent in-flight fetches.
//
// Design decision: We call it "Spider" rather than "Crawler" because:
//  1. "Spider" is the traditional term for web crawlers
//  2. It distinguishes the component from the package name
//  3. Clearer in code: crawler.NewSpider() vs crawler.NewCrawler()
type Spider struct {
	// fetcher retrieves pages; it owns retries and politeness pacing.
	fetcher *Fetcher

	// robots gates URLs against robots.txt when non-nil.
	robots *RobotsGate

	// maxDepth limits how deep to crawl from the seed. 0 means only the
	// seed page; negative disables the limit.
	maxDepth int

	// maxPages is the page budget for the whole run.
	maxPages int

	// concurrency is the worker pool size.
	concurrency int

	// crossDomain allows enqueueing URLs outside the seed's registrable
	// domain. Cross-domain links are always recorded as external edges
	// regardless of this setting.
	crossDomain bool

	// logger receives structured progress output.
	logger *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth. 0 = only the seed page.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) { s.maxDepth = depth }
}

// WithMaxPages sets the page budget for the run.
func WithMaxPages(n int) SpiderOption {
	return func(s *Spider) { s.maxPages = n }
}

// WithConcurrency sets the number of concurrent fetch workers.
func WithConcurrency(n int) SpiderOption {
	return func(s *Spider) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithCrossDomain enables crawling beyond the seed's registrable domain.
func WithCrossDomain(enabled bool) SpiderOption {
	return func(s *Spider) { s.crossDomain = enabled }
}

// WithRobotsGate installs a robots.txt gate.
func WithRobotsGate(gate *RobotsGate) SpiderOption {
	return func(s *Spider) { s.robots = gate }
}

// WithSpiderLogger sets a custom logger.
func WithSpiderLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) { s.logger = logger }
}

// NewSpider creates a Spider using the given fetcher.
func NewSpider(fetcher *Fetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:     fetcher,
		maxDepth:    5,
		maxPages:    100,
		concurrency: 3,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Crawl runs the traversal from the seed URL and returns the finalized
// crawl result. Per-URL failures never abort the run; the only error Crawl
// itself returns is a fatal misconfiguration such as an invalid seed.
// Cancelling the context stops dequeues promptly, lets in-flight fetches
// abort within the per-request timeout, and still yields a consistent
// partial result marked incomplete.
func (s *Spider) Crawl(ctx context.Context, seed string) (*model.CrawlResult, error) {
	seedURL, err := normalizeSeed(seed)
	if err != nil {
		return nil, err
	}

	policy, err := NewPolicy(seedURL, s.crossDomain)
	if err != nil {
		return nil, err
	}

	frontier := NewFrontier(s.maxDepth, s.maxPages)
	builder := graph.NewBuilder()

	builder.AddNode(seedURL, 0)
	frontier.Enqueue(seedURL, 0)

	// Cancellation closes the frontier so blocked dequeuers exit.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			frontier.Close()
		case <-watchDone:
		}
	}()

	start := time.Now()
	s.logger.Info("starting crawl",
		"seed", seedURL,
		"max_depth", s.maxDepth,
		"max_pages", s.maxPages,
		"concurrency", s.concurrency,
	)

	var g errgroup.Group
	for i := 0; i < s.concurrency; i++ {
		g.Go(func() error {
			for {
				pageURL, depth, ok := frontier.Dequeue()
				if !ok {
					return nil
				}
				s.processPage(ctx, pageURL, depth, policy, frontier, builder)
				frontier.Done()
			}
		})
	}
	// Workers never return errors; per-URL failures live in the graph.
	_ = g.Wait()
	close(watchDone)

	return s.finalize(ctx, seedURL, start, frontier, builder), nil
}

// processPage fetches one page, records its outcome, and feeds discovered
// links back into the graph and the frontier.
func (s *Spider) processPage(ctx context.Context, pageURL string, depth int, policy *Policy, frontier *Frontier, builder *graph.Builder) {
	result, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		// A cancelled fetch is not a page failure; the node stays
		// pending and counts as skipped.
		if ctx.Err() != nil {
			return
		}
		var ferr *FetchError
		if errors.As(err, &ferr) {
			builder.MarkFailed(pageURL, ferr.Kind, ferr.StatusCode, ferr.Latency)
			s.logger.Warn("page failed", "url", pageURL, "kind", ferr.Kind, "status", ferr.StatusCode)
		} else {
			builder.MarkFailed(pageURL, model.ErrConnection, 0, 0)
			s.logger.Warn("page failed", "url", pageURL, "error", err)
		}
		return
	}

	builder.MarkFetched(pageURL, result.StatusCode, result.Latency)

	parsed := ExtractLinks(result.Body)
	builder.Annotate(pageURL, Classify(pageURL), parsed.Title, parsed.ImageCount)
	s.logger.Debug("page fetched",
		"url", pageURL,
		"depth", depth,
		"status", result.StatusCode,
		"links", len(parsed.Links),
	)

	base, err := url.Parse(pageURL)
	if err != nil {
		return
	}

	for _, raw := range parsed.Links {
		target, err := Normalize(base, raw)
		if err != nil {
			// Policy rejection: dropped silently, never enqueued,
			// never counted as a failure.
			continue
		}

		internal := policy.Internal(target)
		builder.AddEdge(pageURL, target, depth, internal)

		if !policy.Enqueueable(target) {
			continue
		}
		if !s.robots.Allowed(ctx, target) {
			s.logger.Debug("robots.txt disallows", "url", target)
			continue
		}
		frontier.Enqueue(target, depth+1)
	}
}

// finalize freezes the graph and assembles the crawl result.
func (s *Spider) finalize(ctx context.Context, seedURL string, start time.Time, frontier *Frontier, builder *graph.Builder) *model.CrawlResult {
	nodes, edges := builder.Finalize()

	result := &model.CrawlResult{
		Seed:        seedURL,
		StartedAt:   start,
		Elapsed:     time.Since(start),
		Termination: model.TermExhausted,
		Nodes:       nodes,
		Edges:       edges,
	}

	for _, n := range nodes {
		switch n.State {
		case model.StateFetched:
			result.Fetched++
		case model.StateFailed:
			result.Failed++
		}
	}
	result.Skipped = frontier.Admitted() - result.Fetched - result.Failed
	if result.Skipped < 0 {
		result.Skipped = 0
	}

	switch {
	case ctx.Err() != nil:
		result.Termination = model.TermCancelled
		result.Incomplete = true
	case frontier.BudgetReached():
		result.Termination = model.TermPageBudget
	}

	s.logger.Info("crawl finished",
		"seed", seedURL,
		"termination", result.Termination,
		"fetched", result.Fetched,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"nodes", len(nodes),
		"edges", len(edges),
		"elapsed", result.Elapsed,
	)
	return result
}

// normalizeSeed validates and canonicalizes a user-supplied seed URL,
// defaulting to https when no scheme was given.
func normalizeSeed(seed string) (string, error) {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return "", errors.New("empty seed URL")
	}
	if !strings.Contains(seed, "://") {
		seed = "https://" + seed
	}
	normalized, err := Normalize(nil, seed)
	if err != nil {
		return "", fmt.Errorf("invalid seed URL %q: %w", seed, err)
	}
	return normalized, nil
}
