package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/nao1215/webrecon/internal/model"
)

// DefaultTopPages is how many ranked pages the text and markdown reports
// show by default.
const DefaultTopPages = 20

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// topPages limits the ranked page table. 0 or less shows everything.
	topPages int

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithTopPages limits the number of ranked pages shown.
func WithTopPages(n int) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.topPages = n
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		topPages:   DefaultTopPages,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full report in human-readable format.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)

	if report.Result != nil {
		stats := reportStats(report)
		w.writeSummary(&sb, report.Result, stats)
		w.writeTopPages(&sb, report.Result)
		w.writePageTypes(&sb, stats)
		w.writeFailures(&sb, report.Result)
	}

	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with crawl information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         WEBRECON REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	seed := report.Seed
	if report.Result != nil && report.Result.Seed != "" {
		seed = report.Result.Seed
	}
	sb.WriteString(fmt.Sprintf("Seed URL:       %s\n", seed))

	if report.Error != nil {
		sb.WriteString(fmt.Sprintf("Status:         ERROR - %s\n", report.Error))
		sb.WriteString("\n")
		return
	}
	if report.Result == nil {
		sb.WriteString("Status:         No crawl data\n\n")
		return
	}

	r := report.Result
	sb.WriteString(fmt.Sprintf("Crawl Date:     %s\n", r.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Elapsed:        %s\n", r.Elapsed.Round(time.Millisecond)))
	switch {
	case r.Incomplete:
		sb.WriteString("Status:         CANCELLED (partial results)\n")
	case r.Termination == model.TermPageBudget:
		sb.WriteString("Status:         Complete (page budget reached)\n")
	default:
		sb.WriteString("Status:         Complete\n")
	}
	sb.WriteString("\n")
}

// writeSummary writes the crawl summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, r *model.CrawlResult, stats *model.Stats) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("CRAWL SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  Fetched:        %d\n", r.Fetched))
	sb.WriteString(fmt.Sprintf("  Failed:         %d\n", r.Failed))
	sb.WriteString(fmt.Sprintf("  Skipped:        %d\n", r.Skipped))
	sb.WriteString(fmt.Sprintf("  Total nodes:    %d\n", stats.TotalPages))
	sb.WriteString(fmt.Sprintf("  Internal links: %d\n", stats.InternalLinks))
	sb.WriteString(fmt.Sprintf("  External links: %d\n", stats.ExternalLinks))
	sb.WriteString(fmt.Sprintf("  Max depth:      %d\n", stats.MaxDepth))
	if stats.SuccessfulPages > 0 {
		sb.WriteString(fmt.Sprintf("  Latency:        min %s / avg %s / max %s\n",
			stats.MinLatency.Round(time.Millisecond), stats.AvgLatency.Round(time.Millisecond), stats.MaxLatency.Round(time.Millisecond)))
	}
	sb.WriteString("\n")
}

// writeTopPages writes the ranked page table.
func (w *SimpleWriter) writeTopPages(sb *strings.Builder, r *model.CrawlResult) {
	ranked := r.Ranked()
	if len(ranked) == 0 {
		return
	}
	if w.topPages > 0 && len(ranked) > w.topPages {
		ranked = ranked[:w.topPages]
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("TOP PAGES BY IMPORTANCE\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for i, n := range ranked {
		sb.WriteString(fmt.Sprintf("  %3d. [%.4f] %s\n", i+1, n.Score, n.URL))
		if w.verbose {
			sb.WriteString(fmt.Sprintf("       depth=%d inbound=%d outbound=%d type=%s\n",
				n.Depth, n.Inbound, len(n.Outbound), n.Type))
		}
	}
	sb.WriteString("\n")
}

// writePageTypes writes the page type distribution.
func (w *SimpleWriter) writePageTypes(sb *strings.Builder, stats *model.Stats) {
	if len(stats.PageTypes) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("PAGE TYPES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, pt := range sortedPageTypes(stats.PageTypes) {
		sb.WriteString(fmt.Sprintf("  %-12s %d\n", pt, stats.PageTypes[pt]))
	}
	sb.WriteString("\n")
}

// writeFailures writes the failure manifest.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, r *model.CrawlResult) {
	failures := r.Failures()
	if len(failures) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("FAILED PAGES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, n := range failures {
		if n.StatusCode > 0 {
			sb.WriteString(fmt.Sprintf("  [%s] %s (HTTP %d)\n", n.ErrorKind, n.URL, n.StatusCode))
		} else {
			sb.WriteString(fmt.Sprintf("  [%s] %s\n", n.ErrorKind, n.URL))
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by webrecon\n")
	sb.WriteString("https://github.com/nao1215/webrecon\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// sortedPageTypes returns the page types ordered by descending count,
// breaking ties by name for stable output.
func sortedPageTypes(types map[model.PageType]int) []model.PageType {
	keys := make([]model.PageType, 0, len(types))
	for pt := range types {
		keys = append(keys, pt)
	}
	sort.Slice(keys, func(i, j int) bool {
		if types[keys[i]] != types[keys[j]] {
			return types[keys[i]] > types[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
