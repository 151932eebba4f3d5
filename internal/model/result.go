package model

import (
	"sort"
	"time"
)

// Termination explains why a crawl run stopped.
type Termination string

const (
	// TermExhausted means the frontier drained with no in-flight work left.
	TermExhausted Termination = "exhausted"

	// TermPageBudget means the configured page budget was reached.
	TermPageBudget Termination = "page_budget"

	// TermCancelled means an external cancellation or deadline fired.
	TermCancelled Termination = "cancelled"
)

// CrawlResult is the finalized artifact of one crawl run: the annotated link
// graph plus run-level counters. It is the sole output handed to reporting
// and persistence collaborators.
//
// Design decision: We hand consumers a frozen value rather than live access
// to crawl state because the ranker and the report writers must never race
// with worker mutation. The coordinator builds this snapshot only after
// traversal has fully quiesced.
type CrawlResult struct {
	// Seed is the normalized start URL of the run.
	Seed string `json:"seed"`

	// StartedAt is when the crawl began.
	StartedAt time.Time `json:"started_at"`

	// Elapsed is the total wall-clock duration of the crawl.
	Elapsed time.Duration `json:"elapsed_ns"`

	// Termination records why the run stopped.
	Termination Termination `json:"termination"`

	// Incomplete is true when the run was cancelled before the frontier
	// drained. The graph is still a consistent snapshot.
	Incomplete bool `json:"incomplete"`

	// Fetched is the number of pages fetched successfully.
	Fetched int `json:"fetched"`

	// Failed is the number of pages that failed terminally.
	Failed int `json:"failed"`

	// Skipped is the number of admitted pages left pending when the crawl
	// stopped, whether by the page-budget stop, cancellation, or a
	// robots.txt disallow. URLs rejected at discovery time (already
	// visited, depth cap, budget full) are never admitted and do not
	// appear in any counter.
	Skipped int `json:"skipped"`

	// Nodes holds every page node keyed by normalized URL.
	Nodes map[string]*PageNode `json:"nodes"`

	// Edges holds the deduplicated, classified link edges.
	Edges []LinkEdge `json:"edges"`
}

// Node returns the node for the given normalized URL, or nil.
func (r *CrawlResult) Node(url string) *PageNode {
	return r.Nodes[url]
}

// Failures returns the manifest of pages that failed terminally, ordered by
// normalized URL for stable report output.
func (r *CrawlResult) Failures() []*PageNode {
	failed := make([]*PageNode, 0)
	for _, n := range r.Nodes {
		if n.State == StateFailed {
			failed = append(failed, n)
		}
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i].URL < failed[j].URL })
	return failed
}

// Ranked returns all nodes ordered by descending importance score.
// Ties are broken by ascending discovery depth, then by normalized URL, so
// report ordering is deterministic for a fixed graph.
func (r *CrawlResult) Ranked() []*PageNode {
	nodes := make([]*PageNode, 0, len(r.Nodes))
	for _, n := range r.Nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		return a.URL < b.URL
	})
	return nodes
}

// InternalEdgeCount returns the number of internal edges.
func (r *CrawlResult) InternalEdgeCount() int {
	count := 0
	for _, e := range r.Edges {
		if e.Internal {
			count++
		}
	}
	return count
}

// ExternalEdgeCount returns the number of external edges.
func (r *CrawlResult) ExternalEdgeCount() int {
	return len(r.Edges) - r.InternalEdgeCount()
}

// CrawlReport carries one site's crawl through the analysis pipeline.
// Steps fill it in sequence: the crawl step produces Result, the rank step
// annotates node scores, and the persist step records DatabaseID.
type CrawlReport struct {
	// Seed is the requested start URL, as given by the user.
	Seed string `json:"seed"`

	// Result is the finalized crawl result. Nil until the crawl step runs.
	Result *CrawlResult `json:"result,omitempty"`

	// Stats holds aggregate statistics. Nil until computed.
	Stats *Stats `json:"stats,omitempty"`

	// DatabaseID is the run's row ID once persisted, zero otherwise.
	DatabaseID int64 `json:"database_id,omitempty"`

	// PerformedSteps lists the pipeline steps that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error records a fatal per-site error (e.g. an invalid seed URL).
	// Per-page failures live in Result.Failures instead.
	Error error `json:"-"`

	// ErrorMessage mirrors Error for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewCrawlReport creates an empty report for the given seed URL.
func NewCrawlReport(seed string) *CrawlReport {
	return &CrawlReport{Seed: seed}
}
