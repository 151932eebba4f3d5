package model

import "time"

// Stats holds aggregate statistics computed from a finished CrawlResult.
// It is a derived view: computing it never mutates the result.
type Stats struct {
	// TotalPages is the number of nodes in the graph, fetched or not.
	TotalPages int `json:"total_pages"`

	// SuccessfulPages is the number of pages fetched successfully.
	SuccessfulPages int `json:"successful_pages"`

	// FailedPages is the number of pages that failed terminally.
	FailedPages int `json:"failed_pages"`

	// PendingPages is the number of pages discovered but never fetched
	// (external targets and pages cut off by limits or cancellation).
	PendingPages int `json:"pending_pages"`

	// InternalLinks is the number of deduplicated internal edges.
	InternalLinks int `json:"internal_links"`

	// ExternalLinks is the number of deduplicated external edges.
	ExternalLinks int `json:"external_links"`

	// TotalImages is the number of image references across fetched pages.
	TotalImages int `json:"total_images"`

	// MaxDepth is the deepest level at which any page was discovered.
	MaxDepth int `json:"max_depth"`

	// PageTypes is the distribution of inferred page types over fetched pages.
	PageTypes map[PageType]int `json:"page_types"`

	// DepthDistribution is the number of pages first seen at each depth.
	DepthDistribution map[int]int `json:"depth_distribution"`

	// MinLatency, AvgLatency, and MaxLatency summarize response times of
	// successfully fetched pages. All zero when nothing was fetched.
	MinLatency time.Duration `json:"min_latency_ns"`
	AvgLatency time.Duration `json:"avg_latency_ns"`
	MaxLatency time.Duration `json:"max_latency_ns"`
}

// ComputeStats derives aggregate statistics from a finished crawl result.
func ComputeStats(r *CrawlResult) *Stats {
	s := &Stats{
		TotalPages:        len(r.Nodes),
		InternalLinks:     r.InternalEdgeCount(),
		PageTypes:         make(map[PageType]int),
		DepthDistribution: make(map[int]int),
	}
	s.ExternalLinks = len(r.Edges) - s.InternalLinks

	var latencySum time.Duration
	for _, n := range r.Nodes {
		s.DepthDistribution[n.Depth]++
		if n.Depth > s.MaxDepth {
			s.MaxDepth = n.Depth
		}

		switch n.State {
		case StateFetched:
			s.SuccessfulPages++
			s.PageTypes[n.Type]++
			s.TotalImages += n.ImageCount

			latencySum += n.Latency
			if s.MinLatency == 0 || n.Latency < s.MinLatency {
				s.MinLatency = n.Latency
			}
			if n.Latency > s.MaxLatency {
				s.MaxLatency = n.Latency
			}
		case StateFailed:
			s.FailedPages++
		case StatePending:
			s.PendingPages++
		}
	}

	if s.SuccessfulPages > 0 {
		s.AvgLatency = latencySum / time.Duration(s.SuccessfulPages)
	}
	return s
}
