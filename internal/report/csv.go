package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/webrecon/internal/model"
)

// CSVWriter outputs the ranked page table as CSV.
// This format is designed for spreadsheet analysis and ad hoc querying
// with standard tooling.
//
// Design decision: CSV output covers only the per-page table, not the
// edge list or run metadata. A flat file format fits flat data; anyone
// who needs the full graph uses the JSON report or the database.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{
		baseWriter: newBaseWriter(output),
	}
}

// csvHeader is the column layout of the page table.
var csvHeader = []string{
	"rank", "url", "score", "state", "depth",
	"inbound", "outbound", "status_code", "page_type", "title", "error_kind",
}

// Write outputs every page of the report as one CSV row, ranked pages
// first. The byte count is approximate because encoding/csv buffers
// internally; it reports the count on success and 0 on failure.
func (w *CSVWriter) Write(report *model.CrawlReport) (int, error) {
	if report.Result == nil {
		if report.Error != nil {
			return 0, fmt.Errorf("no crawl data: %w", report.Error)
		}
		return 0, fmt.Errorf("no crawl data for %s", report.Seed)
	}

	counter := &countingWriter{w: w.output}
	cw := csv.NewWriter(counter)

	if err := cw.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i, n := range report.Result.Ranked() {
		row := []string{
			strconv.Itoa(i + 1),
			n.URL,
			strconv.FormatFloat(n.Score, 'f', 6, 64),
			string(n.State),
			strconv.Itoa(n.Depth),
			strconv.Itoa(n.Inbound),
			strconv.Itoa(len(n.Outbound)),
			strconv.Itoa(n.StatusCode),
			string(n.Type),
			n.Title,
			string(n.ErrorKind),
		}
		if err := cw.Write(row); err != nil {
			return counter.n, fmt.Errorf("failed to write CSV row for %s: %w", n.URL, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return counter.n, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return counter.n, nil
}

// countingWriter counts bytes passed through to the wrapped writer.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
