package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/webrecon/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter

	// topPages limits the ranked page table. 0 or less shows everything.
	topPages int
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMarkdownTopPages limits the number of ranked pages shown.
func WithMarkdownTopPages(n int) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.topPages = n
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given
// writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		topPages:   DefaultTopPages,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)

	if report.Result != nil {
		stats := reportStats(report)
		w.writeSummary(md, report.Result, stats)
		w.writeTopPages(md, report.Result)
		w.writePageTypes(md, stats)
		w.writeFailures(md, report.Result)
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with crawl information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("webrecon Crawl Report")
	md.PlainText("")

	seed := report.Seed
	if report.Result != nil && report.Result.Seed != "" {
		seed = report.Result.Seed
	}

	rows := [][]string{
		{"Seed URL", "`" + seed + "`"},
	}
	if report.Result != nil {
		r := report.Result
		rows = append(rows,
			[]string{"Crawl Date", r.StartedAt.Format("2006-01-02 15:04:05 MST")},
			[]string{"Elapsed", r.Elapsed.String()},
			[]string{"Status", w.getStatusText(report)},
		)
	} else {
		rows = append(rows, []string{"Status", w.getStatusText(report)})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.CrawlReport) string {
	if report.Error != nil {
		return "❌ Error - " + report.Error.Error()
	}
	if report.Result == nil {
		return "❌ No crawl data"
	}
	switch {
	case report.Result.Incomplete:
		return "⚠️ Cancelled (partial results)"
	case report.Result.Termination == model.TermPageBudget:
		return "✅ Complete (page budget reached)"
	default:
		return "✅ Complete"
	}
}

// writeSummary writes the crawl summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, r *model.CrawlResult, stats *model.Stats) {
	md.H2("Crawl Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Fetched", strconv.Itoa(r.Fetched)},
			{"Failed", strconv.Itoa(r.Failed)},
			{"Skipped", strconv.Itoa(r.Skipped)},
			{"Total nodes", strconv.Itoa(stats.TotalPages)},
			{"Internal links", strconv.Itoa(stats.InternalLinks)},
			{"External links", strconv.Itoa(stats.ExternalLinks)},
			{"Max depth", strconv.Itoa(stats.MaxDepth)},
		},
	})
	md.PlainText("")

	w.writeAlert(md, r)
}

// writeAlert writes an appropriate alert based on the crawl outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, r *model.CrawlResult) {
	switch {
	case r.Incomplete:
		md.Warningf(
			"The crawl was cancelled before the site was fully explored. %d page(s) were fetched before the stop.",
			r.Fetched,
		)
	case r.Failed > 0:
		md.Importantf(
			"%d page(s) failed to fetch. See the failed pages section for details.",
			r.Failed,
		)
	default:
		md.Tip("All discovered in-scope pages were fetched successfully.")
	}
	md.PlainText("")
}

// writeTopPages writes the ranked page table.
func (w *MarkdownWriter) writeTopPages(md *markdown.Markdown, r *model.CrawlResult) {
	ranked := r.Ranked()
	if len(ranked) == 0 {
		return
	}
	if w.topPages > 0 && len(ranked) > w.topPages {
		ranked = ranked[:w.topPages]
	}

	md.H2("Top Pages by Importance")
	md.PlainText("")

	rows := make([][]string, len(ranked))
	for i, n := range ranked {
		title := n.Title
		if title == "" {
			title = "-"
		}
		rows[i] = []string{
			strconv.Itoa(i + 1),
			"`" + truncateString(n.URL, 60) + "`",
			fmt.Sprintf("%.4f", n.Score),
			strconv.Itoa(n.Inbound),
			strconv.Itoa(n.Depth),
			string(n.Type),
			truncateString(title, 40),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Rank", "URL", "Score", "Inbound", "Depth", "Type", "Title"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writePageTypes writes the page type distribution with a pie chart.
func (w *MarkdownWriter) writePageTypes(md *markdown.Markdown, stats *model.Stats) {
	if len(stats.PageTypes) == 0 {
		return
	}

	md.H2("Page Types")
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page Type Distribution"),
		piechart.WithShowData(true),
	)
	rows := make([][]string, 0, len(stats.PageTypes))
	for _, pt := range sortedPageTypes(stats.PageTypes) {
		count := stats.PageTypes[pt]
		rows = append(rows, []string{string(pt), strconv.Itoa(count)})
		chart.LabelAndIntValue(string(pt), uint64(count))
	}

	md.Table(markdown.TableSet{
		Header: []string{"Type", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFailures writes the failure manifest.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, r *model.CrawlResult) {
	failures := r.Failures()
	if len(failures) == 0 {
		return
	}

	md.H2("Failed Pages")
	md.PlainText("")

	rows := make([][]string, len(failures))
	for i, n := range failures {
		status := "-"
		if n.StatusCode > 0 {
			status = strconv.Itoa(n.StatusCode)
		}
		rows[i] = []string{
			"`" + truncateString(n.URL, 60) + "`",
			string(n.ErrorKind),
			status,
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Error", "HTTP Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [webrecon](https://github.com/nao1215/webrecon)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
