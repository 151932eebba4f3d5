// Package main provides the entry point for the webrecon CLI.
//
// webrecon is a reconnaissance web crawler. It maps a site's link
// structure, ranks pages by importance, and reports the most
// significant pages first.
//
// Usage:
//
//	webrecon crawl <seed-url>
//	webrecon history <seed-url>
//
// See --help for all available options.
package main

// main is the entry point for webrecon.
func main() {
	Execute()
}
