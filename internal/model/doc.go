// Package model defines the core data structures used throughout webrecon.
//
// This package contains the following main types:
//   - PageNode: A single page's identity and recorded crawl attributes
//   - LinkEdge: A directed, classified reference between two pages
//   - CrawlResult: The finalized artifact of one crawl run
//   - Stats: Aggregate statistics derived from a finished result
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (crawler, graph, report, database) need to
// use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
