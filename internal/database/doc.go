// Package database provides SQLite-based persistence for crawl runs.
//
// Each crawl is stored as one run row plus normalized page and edge rows,
// alongside a JSON snapshot of the full result. The normalized tables make
// cross-run queries cheap (how did this page's rank move between runs?)
// while the snapshot preserves everything for exact re-rendering.
//
// The package uses modernc.org/sqlite, a pure Go SQLite implementation,
// so webrecon builds without CGO.
package database
