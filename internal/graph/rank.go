package graph

import (
	"math"
	"sort"

	"github.com/nao1215/webrecon/internal/model"
)

// Default parameters for iterative ranking. The damping factor follows the
// convention established by the original PageRank paper; the iteration cap
// guarantees termination even when the epsilon test never fires.
const (
	// DefaultDamping is the probability mass propagated along edges.
	DefaultDamping = 0.85

	// DefaultMaxIterations caps the fixed-point iteration count.
	DefaultMaxIterations = 50

	// DefaultEpsilon stops iteration once the total score movement
	// between rounds drops below this threshold.
	DefaultEpsilon = 1e-6
)

// RankInbound computes the baseline importance score for every node:
// the raw inbound-link count, excluding self-loops. This is the mandatory
// scoring mode; iterative propagation below is an optional refinement.
func RankInbound(nodes map[string]*model.PageNode) map[string]float64 {
	scores := make(map[string]float64, len(nodes))
	for url, n := range nodes {
		scores[url] = float64(n.Inbound)
	}
	return scores
}

// Ranker computes iterative importance scores over a finalized graph.
// The computation is a damped fixed-point iteration: each round, every
// node's score is redistributed proportionally along its outbound edges and
// summed at the targets. Nodes with no outbound edges spread their mass
// uniformly so score is conserved.
type Ranker struct {
	// damping is the fraction of score propagated along edges; the
	// remainder is distributed uniformly.
	damping float64

	// maxIterations bounds the iteration count to guarantee termination.
	maxIterations int

	// epsilon is the convergence threshold on total score movement.
	epsilon float64
}

// RankerOption configures a Ranker.
type RankerOption func(*Ranker)

// WithDamping sets the damping factor. Values outside (0, 1) are ignored.
func WithDamping(d float64) RankerOption {
	return func(r *Ranker) {
		if d > 0 && d < 1 {
			r.damping = d
		}
	}
}

// WithMaxIterations sets the iteration cap.
func WithMaxIterations(n int) RankerOption {
	return func(r *Ranker) {
		if n > 0 {
			r.maxIterations = n
		}
	}
}

// WithEpsilon sets the convergence threshold.
func WithEpsilon(e float64) RankerOption {
	return func(r *Ranker) {
		if e > 0 {
			r.epsilon = e
		}
	}
}

// NewRanker creates a Ranker with the default damping, iteration cap, and
// convergence threshold.
func NewRanker(opts ...RankerOption) *Ranker {
	r := &Ranker{
		damping:       DefaultDamping,
		maxIterations: DefaultMaxIterations,
		epsilon:       DefaultEpsilon,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank computes iterative importance scores for every node in the graph.
// Self-loops are excluded from both propagation and out-degrees. The result
// is deterministic for a fixed graph: iteration order is fixed by sorting
// URLs, and the computation stops at convergence or at the iteration cap.
func (r *Ranker) Rank(nodes map[string]*model.PageNode, edges []model.LinkEdge) map[string]float64 {
	n := len(nodes)
	if n == 0 {
		return map[string]float64{}
	}

	// Fixed iteration order for determinism.
	urls := make([]string, 0, n)
	for url := range nodes {
		urls = append(urls, url)
	}
	sort.Strings(urls)

	// Adjacency without self-loops.
	incoming := make(map[string][]string, n)
	outDegree := make(map[string]int, n)
	for _, e := range edges {
		if e.SelfLoop() {
			continue
		}
		incoming[e.Target] = append(incoming[e.Target], e.Source)
		outDegree[e.Source]++
	}

	size := float64(n)
	scores := make(map[string]float64, n)
	for _, url := range urls {
		scores[url] = 1.0 / size
	}

	for iter := 0; iter < r.maxIterations; iter++ {
		// Mass from sink nodes is spread uniformly so total score
		// stays conserved across rounds.
		var sinkMass float64
		for _, url := range urls {
			if outDegree[url] == 0 {
				sinkMass += scores[url]
			}
		}

		next := make(map[string]float64, n)
		base := (1.0-r.damping)/size + r.damping*sinkMass/size
		for _, url := range urls {
			sum := 0.0
			for _, src := range incoming[url] {
				sum += scores[src] / float64(outDegree[src])
			}
			next[url] = base + r.damping*sum
		}

		var moved float64
		for _, url := range urls {
			moved += math.Abs(next[url] - scores[url])
		}
		scores = next

		if moved < r.epsilon {
			break
		}
	}
	return scores
}

// ApplyScores writes the given scores onto the nodes. URLs missing from the
// score map keep a zero score.
func ApplyScores(nodes map[string]*model.PageNode, scores map[string]float64) {
	for url, n := range nodes {
		n.Score = scores[url]
	}
}
