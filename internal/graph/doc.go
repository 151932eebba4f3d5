// Package graph accumulates the directed link graph of a crawl and computes
// per-page importance over the finished graph.
//
// # Architecture
//
// The Builder is the single owner of graph state during a crawl. Workers call
// its synchronized mutators (AddNode, AddEdge, MarkFetched, MarkFailed) while
// traversal is running; once the coordinator has quiesced, Finalize hands out
// the accumulated nodes and edges and no further mutation occurs. Ranking
// operates only on that finalized snapshot, so it never races with workers.
//
// Design decision: We guard the builder with a single mutex rather than a
// dedicated owner goroutine because:
//  1. Mutations are short map operations, so lock contention is negligible
//     next to network latency
//  2. A message-passing owner would add a channel protocol for no observable
//     benefit
//  3. It keeps the builder trivially testable without goroutines
//
// # Importance
//
// Two scoring modes are provided. RankInbound is the mandatory baseline: a
// page's score is its inbound-link count, excluding self-loops. Ranker.Rank
// is the optional refinement: a damped iterative propagation (PageRank) that
// converges to a fixed point or stops at a capped iteration count. Both are
// deterministic for a fixed graph.
package graph
