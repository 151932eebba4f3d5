package graph

import (
	"sync"
	"time"

	"github.com/nao1215/webrecon/internal/model"
)

// edgeKey identifies a directed edge for deduplication.
type edgeKey struct {
	source string
	target string
}

// Builder accumulates nodes and edges into a directed link graph while a
// crawl is running. All methods are safe for concurrent use.
type Builder struct {
	// mu protects all fields below.
	mu sync.Mutex

	// nodes maps normalized URL to its page node.
	nodes map[string]*model.PageNode

	// edges deduplicates (source, target) pairs.
	edges map[edgeKey]struct{}

	// edgeList preserves edges in discovery order for the result.
	edgeList []model.LinkEdge

	// outbound is the adjacency list keyed by source URL.
	outbound map[string][]string

	// inbound counts distinct inbound edges per target, excluding
	// self-loops so a page cannot inflate its own importance.
	inbound map[string]int
}

// NewBuilder creates an empty graph builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes:    make(map[string]*model.PageNode),
		edges:    make(map[edgeKey]struct{}),
		outbound: make(map[string][]string),
		inbound:  make(map[string]int),
	}
}

// AddNode records a page at the given depth if it is not already present.
// The call is idempotent: repeated calls keep the minimum depth and never
// reset the node's state. New nodes start in StatePending.
func (b *Builder) AddNode(url string, depth int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addNodeLocked(url, depth)
}

func (b *Builder) addNodeLocked(url string, depth int) *model.PageNode {
	if n, ok := b.nodes[url]; ok {
		if depth < n.Depth {
			n.Depth = depth
		}
		return n
	}
	n := &model.PageNode{
		URL:   url,
		Depth: depth,
		State: model.StatePending,
		Type:  model.TypeUnknown,
	}
	b.nodes[url] = n
	return n
}

// AddEdge records a directed edge from source to target. The call is
// idempotent: a (source, target) pair is stored at most once, and repeated
// calls leave the edge count unchanged. Both endpoints are created in
// pending state if they do not exist yet, so an edge never references a
// missing node. Self-loops are stored but excluded from inbound counts.
func (b *Builder) AddEdge(source, target string, depth int, internal bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := edgeKey{source: source, target: target}
	if _, ok := b.edges[key]; ok {
		return
	}

	b.addNodeLocked(source, depth)
	b.addNodeLocked(target, depth+1)

	b.edges[key] = struct{}{}
	edge := model.LinkEdge{Source: source, Target: target, Internal: internal}
	b.edgeList = append(b.edgeList, edge)
	b.outbound[source] = append(b.outbound[source], target)
	if !edge.SelfLoop() {
		b.inbound[target]++
	}
}

// MarkFetched transitions a node to the fetched state and records the
// response attributes observed by the fetcher.
func (b *Builder) MarkFetched(url string, status int, latency time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n, ok := b.nodes[url]; ok {
		n.State = model.StateFetched
		n.StatusCode = status
		n.Latency = latency
	}
}

// MarkFailed transitions a node to the failed state with its terminal
// error kind.
func (b *Builder) MarkFailed(url string, kind model.ErrorKind, status int, latency time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n, ok := b.nodes[url]; ok {
		n.State = model.StateFailed
		n.ErrorKind = kind
		n.StatusCode = status
		n.Latency = latency
	}
}

// Annotate applies extractor metadata to a node.
func (b *Builder) Annotate(url string, pageType model.PageType, title string, imageCount int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n, ok := b.nodes[url]; ok {
		n.Type = pageType
		n.Title = title
		n.ImageCount = imageCount
	}
}

// InboundCount returns the number of inbound edges to the given URL,
// excluding self-loops. O(1).
func (b *Builder) InboundCount(url string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inbound[url]
}

// NodeCount returns the number of nodes recorded so far.
func (b *Builder) NodeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.nodes)
}

// EdgeCount returns the number of deduplicated edges recorded so far.
func (b *Builder) EdgeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.edgeList)
}

// Finalize fills each node's derived attributes and hands out the
// accumulated nodes and edges.
//
// Finalize must be called only after traversal has fully quiesced: the
// returned maps share the builder's node pointers, and callers treat the
// snapshot as immutable from that point on. Even a cancellation-time
// snapshot is consistent because edges only ever reference existing nodes.
func (b *Builder) Finalize() (map[string]*model.PageNode, []model.LinkEdge) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for url, n := range b.nodes {
		n.Inbound = b.inbound[url]
		n.Outbound = b.outbound[url]
	}

	edges := make([]model.LinkEdge, len(b.edgeList))
	copy(edges, b.edgeList)
	return b.nodes, edges
}
