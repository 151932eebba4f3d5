// Package crawler provides the concurrent reconnaissance crawl engine.
//
// # Architecture
//
// The crawler package is designed around the Spider type, which drives a
// breadth-first traversal over a shared Frontier with a bounded pool of
// worker goroutines. Workers fetch pages through the Fetcher (which owns
// retry/backoff and politeness pacing), extract links with the Parser, and
// feed the graph.Builder and the Frontier.
//
// # Components
//
//   - Spider: bounded-concurrency coordinator driving the traversal
//   - Frontier: deduplicated FIFO work queue, the single source of truth
//     for visited membership
//   - Fetcher: one HTTP GET with timeout, outcome classification, and
//     exponential backoff with jitter for transient failures
//   - Limiter: global politeness gate pacing dispatches across all workers
//   - Parser: structural HTML link extraction
//   - Classify: data-driven page-type heuristics
//   - Policy / Normalize: URL canonicalization and the enqueue allow policy
//   - RobotsGate: optional robots.txt gate
//
// # Politeness
//
// The crawler is designed to be polite:
//   - A single pacing gate bounds the request rate regardless of concurrency
//   - robots.txt is respected when enabled
//   - Backoff with jitter avoids hammering a struggling server
//   - Depth and page budgets bound the total load on a site
//
// # Termination
//
// A run ends when the frontier is empty and no worker has in-flight work,
// when the page budget is reached (in-flight fetches finish, nothing more is
// dequeued), or when the context is cancelled. The two-phase empty check in
// the Frontier prevents the false-empty race where one worker is about to
// enqueue while another observes an empty queue.
package crawler
