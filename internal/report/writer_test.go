package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/webrecon/internal/model"
)

// sampleReport builds a small finished crawl report for writer tests.
func sampleReport() *model.CrawlReport {
	const seed = "https://example.com/"
	home := &model.PageNode{
		URL: seed, State: model.StateFetched, StatusCode: 200,
		Type: model.TypeHomepage, Title: "Example Home",
		Outbound: []string{seed + "blog/first-post", seed + "gone"},
		Score:    0.5, Latency: 40 * time.Millisecond,
	}
	blog := &model.PageNode{
		URL: seed + "blog/first-post", Depth: 1, State: model.StateFetched,
		StatusCode: 200, Type: model.TypeBlogPost, Title: "First Post",
		Inbound: 1, Score: 0.3, Latency: 60 * time.Millisecond,
	}
	missing := &model.PageNode{
		URL: seed + "gone", Depth: 1, State: model.StateFailed,
		StatusCode: 404, ErrorKind: model.ErrHTTP4xx, Inbound: 1,
	}

	result := &model.CrawlResult{
		Seed:        seed,
		StartedAt:   time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Elapsed:     2 * time.Second,
		Termination: model.TermExhausted,
		Fetched:     2,
		Failed:      1,
		Nodes: map[string]*model.PageNode{
			home.URL:    home,
			blog.URL:    blog,
			missing.URL: missing,
		},
		Edges: []model.LinkEdge{
			{Source: home.URL, Target: blog.URL, Internal: true},
			{Source: home.URL, Target: missing.URL, Internal: true},
		},
	}

	report := model.NewCrawlReport(seed)
	report.Result = result
	return report
}

// TestSimpleWriter tests the text report sections.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewSimpleWriter(&buf)
	n, err := w.Write(sampleReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != buf.Len() {
		t.Errorf("byte count = %d, buffer has %d", n, buf.Len())
	}

	out := buf.String()
	for _, want := range []string{
		"WEBRECON REPORT",
		"https://example.com/",
		"CRAWL SUMMARY",
		"Fetched:        2",
		"Failed:         1",
		"TOP PAGES BY IMPORTANCE",
		"PAGE TYPES",
		"FAILED PAGES",
		"http_4xx",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}

	// The highest scoring page leads the ranking.
	if strings.Index(out, "https://example.com/\n") > strings.Index(out, "blog/first-post") {
		t.Error("ranked pages out of order")
	}
}

// TestSimpleWriterVerbose tests the per-page detail line.
func TestSimpleWriterVerbose(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewSimpleWriter(&buf, WithVerbose(true))
	if _, err := w.Write(sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "depth=0 inbound=0 outbound=2 type=homepage") {
		t.Errorf("verbose detail line missing:\n%s", buf.String())
	}
}

// TestSimpleWriterTopPagesLimit tests trimming the ranked table.
func TestSimpleWriterTopPagesLimit(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewSimpleWriter(&buf, WithTopPages(1))
	if _, err := w.Write(sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "  2. ") {
		t.Error("top pages limit not applied")
	}
}

// TestSimpleWriterCrawlError tests rendering of a failed crawl.
func TestSimpleWriterCrawlError(t *testing.T) {
	t.Parallel()

	report := model.NewCrawlReport("not-a-url")
	report.Error = errors.New("invalid seed URL")

	var buf bytes.Buffer
	if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "ERROR - invalid seed URL") {
		t.Errorf("error status missing:\n%s", buf.String())
	}
}

// TestJSONWriter tests that the JSON output decodes back to the report.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewJSONWriter(&buf, WithPrettyPrint())
	if _, err := w.Write(sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded model.CrawlReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Result == nil || decoded.Result.Fetched != 2 {
		t.Errorf("result not preserved: %+v", decoded.Result)
	}
	if decoded.Stats == nil || decoded.Stats.SuccessfulPages != 2 {
		t.Errorf("stats not computed: %+v", decoded.Stats)
	}
}

// TestFullJSONWriter tests the version metadata wrapper.
func TestFullJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewFullJSONWriter(&buf, "1.2.3")
	if _, err := w.Write(sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded JSONReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Version != "1.2.3" {
		t.Errorf("version = %s, expected 1.2.3", decoded.Version)
	}
	if decoded.Report == nil || decoded.Report.Result == nil {
		t.Fatal("wrapped report missing")
	}
}

// TestMarkdownWriter tests the markdown report sections.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewMarkdownWriter(&buf)
	if _, err := w.Write(sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"# webrecon Crawl Report",
		"## Crawl Summary",
		"## Top Pages by Importance",
		"## Page Types",
		"## Failed Pages",
		"`https://example.com/`",
		"blog_post",
		"mermaid",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
}

// TestCSVWriter tests that the page table parses back as CSV.
func TestCSVWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewCSVWriter(&buf)
	n, err := w.Write(sampleReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != buf.Len() {
		t.Errorf("byte count = %d, buffer has %d", n, buf.Len())
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 4 { // header + 3 pages
		t.Fatalf("rows = %d, expected 4", len(records))
	}
	if records[0][0] != "rank" || records[0][1] != "url" {
		t.Errorf("unexpected header: %v", records[0])
	}
	if records[1][1] != "https://example.com/" {
		t.Errorf("top ranked URL = %s", records[1][1])
	}
	// The outbound column is a link count, not the link list itself.
	if records[1][6] != "2" {
		t.Errorf("outbound count = %s, expected 2: %v", records[1][6], records[1])
	}
	if records[3][10] == "" && records[3][3] == string(model.StateFailed) {
		t.Errorf("failed row missing error kind: %v", records[3])
	}
}

// TestCSVWriterNoResult tests the error path for an empty report.
func TestCSVWriterNoResult(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewCSVWriter(&buf).Write(model.NewCrawlReport("https://example.com")); err == nil {
		t.Error("expected error for report without result")
	}
}

// TestMultiWriter tests fan-out to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var text, jsonBuf bytes.Buffer
	mw := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&jsonBuf))

	total, err := mw.Write(sampleReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != text.Len()+jsonBuf.Len() {
		t.Errorf("total = %d, expected %d", total, text.Len()+jsonBuf.Len())
	}
	if text.Len() == 0 || jsonBuf.Len() == 0 {
		t.Error("one of the writers produced no output")
	}
}
