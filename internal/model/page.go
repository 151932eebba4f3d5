package model

import "time"

// PageState represents the lifecycle state of a page during a crawl.
// A page is created in StatePending when first referenced (as a seed or as
// a discovered link) and transitions exactly once to StateFetched or
// StateFailed when the fetcher resolves it. Pages are never deleted during
// a run.
type PageState string

const (
	// StatePending means the page has been discovered but not yet fetched.
	StatePending PageState = "pending"

	// StateFetched means the page was fetched successfully.
	StateFetched PageState = "fetched"

	// StateFailed means fetching the page failed terminally.
	StateFailed PageState = "failed"
)

// ErrorKind classifies the terminal failure of a fetch attempt.
//
// Design decision: We use typed string constants rather than iota-based
// integers because these values appear verbatim in JSON reports and the
// database, and a stable wire representation matters more than comparison
// speed here.
type ErrorKind string

const (
	// ErrTimeout means the request exceeded the per-request timeout.
	ErrTimeout ErrorKind = "timeout"

	// ErrConnection means the connection was refused, reset, or otherwise
	// failed below the HTTP layer.
	ErrConnection ErrorKind = "connection"

	// ErrHTTP4xx means the server returned a 4xx status. Never retried.
	ErrHTTP4xx ErrorKind = "http_4xx"

	// ErrHTTP5xx means the server returned a 5xx status. Retried.
	ErrHTTP5xx ErrorKind = "http_5xx"

	// ErrTooManyRedirects means the redirect chain exceeded the limit.
	ErrTooManyRedirects ErrorKind = "too_many_redirects"

	// ErrContentType means the response was not a parseable content type.
	// Never retried.
	ErrContentType ErrorKind = "content_type_unsupported"
)

// Retryable reports whether a failure of this kind is transient and worth
// retrying with backoff. 4xx and unsupported content types are terminal on
// the first attempt.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrTimeout, ErrConnection, ErrHTTP5xx:
		return true
	default:
		return false
	}
}

// PageType is the heuristic classification of a page inferred from its URL.
// Classification is best effort and degrades to TypeUnknown rather than
// failing the fetch.
type PageType string

const (
	// TypeHomepage is the site root.
	TypeHomepage PageType = "homepage"

	// TypeBlogPost is an article-like page (blog, post, news, dated paths).
	TypeBlogPost PageType = "blog_post"

	// TypeProduct is a product or item detail page.
	TypeProduct PageType = "product"

	// TypeListing is an index page over other pages (category, tag, archive).
	TypeListing PageType = "listing"

	// TypeStatic is an evergreen informational page (about, contact, faq).
	TypeStatic PageType = "static"

	// TypeSearch is a search or results page.
	TypeSearch PageType = "search"

	// TypeAsset is a non-HTML resource addressed by file extension.
	TypeAsset PageType = "asset"

	// TypePage is an ordinary content page with no stronger signal.
	TypePage PageType = "page"

	// TypeUnknown is the fallback when no rule matches.
	TypeUnknown PageType = "unknown"
)

// PageNode represents a single page discovered during a crawl.
// Its identity is the normalized URL; the Frontier guarantees at most one
// node exists per normalized URL, and Depth is the minimum depth over all
// discovery paths because traversal is breadth first.
type PageNode struct {
	// URL is the normalized URL identifying this page.
	URL string `json:"url"`

	// Depth is the depth at which the page was first discovered.
	// Seeds are depth 0.
	Depth int `json:"depth"`

	// State is the page's lifecycle state.
	State PageState `json:"state"`

	// StatusCode is the HTTP response status. Zero until fetched.
	StatusCode int `json:"status_code,omitempty"`

	// Latency is how long the successful (or final failed) fetch took.
	Latency time.Duration `json:"latency_ns,omitempty"`

	// ErrorKind records the terminal failure kind for failed pages.
	ErrorKind ErrorKind `json:"error_kind,omitempty"`

	// Type is the inferred page type.
	Type PageType `json:"page_type"`

	// Title is the page title from the <title> tag, if any.
	Title string `json:"title,omitempty"`

	// ImageCount is the number of image references on the page.
	ImageCount int `json:"image_count,omitempty"`

	// Outbound holds the normalized outbound link targets in the order
	// they were discovered on the page, deduplicated per target.
	Outbound []string `json:"outbound,omitempty"`

	// Inbound is the number of distinct pages linking to this one,
	// excluding self-loops. Derived by the graph builder.
	Inbound int `json:"inbound"`

	// Score is the importance score assigned by the ranker.
	Score float64 `json:"score"`
}

// LinkEdge is a directed reference from one page to another.
// A given (Source, Target) pair is recorded at most once.
type LinkEdge struct {
	// Source is the normalized URL of the linking page.
	Source string `json:"source"`

	// Target is the normalized URL of the linked page.
	Target string `json:"target"`

	// Internal is true when the target is within the crawl's allowed
	// domain. External edges are recorded but their targets are never
	// fetched.
	Internal bool `json:"internal"`
}

// SelfLoop reports whether the edge points from a page to itself.
// Self-loops are recorded but excluded from inbound counts so a page cannot
// boost its own importance.
func (e LinkEdge) SelfLoop() bool {
	return e.Source == e.Target
}
