package database

import (
	"context"
	"testing"
	"time"

	"github.com/nao1215/webrecon/internal/model"
)

// openTestDB opens a fresh database in a temp directory.
func openTestDB(t *testing.T) *CrawlDB {
	t.Helper()

	cdb, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if err := cdb.Close(); err != nil {
			t.Errorf("failed to close database: %v", err)
		}
	})
	return cdb
}

// sampleResult builds a small finished crawl for persistence tests.
func sampleResult(seed string) *model.CrawlResult {
	home := &model.PageNode{
		URL: seed, Depth: 0, State: model.StateFetched,
		StatusCode: 200, Type: model.TypeHomepage, Title: "Home",
		Outbound: []string{seed + "about", seed + "broken"}, Score: 0.5,
	}
	about := &model.PageNode{
		URL: seed + "about", Depth: 1, State: model.StateFetched,
		StatusCode: 200, Type: model.TypeStatic, Title: "About",
		Inbound: 1, Score: 0.3,
	}
	broken := &model.PageNode{
		URL: seed + "broken", Depth: 1, State: model.StateFailed,
		StatusCode: 404, ErrorKind: model.ErrHTTP4xx, Inbound: 1,
	}
	return &model.CrawlResult{
		Seed:        seed,
		StartedAt:   time.Now(),
		Elapsed:     1500 * time.Millisecond,
		Termination: model.TermExhausted,
		Fetched:     2,
		Failed:      1,
		Nodes: map[string]*model.PageNode{
			home.URL:   home,
			about.URL:  about,
			broken.URL: broken,
		},
		Edges: []model.LinkEdge{
			{Source: home.URL, Target: about.URL, Internal: true},
			{Source: home.URL, Target: broken.URL, Internal: true},
		},
	}
}

// TestOpenRequireExisting tests that opening without CreateIfNotExists
// fails on a missing database.
func TestOpenRequireExisting(t *testing.T) {
	t.Parallel()

	opts := Options{CreateIfNotExists: false, EnableWAL: false}
	if _, err := Open(t.TempDir(), opts); err == nil {
		t.Error("expected error for missing database")
	}
}

// TestSaveAndGetResult tests the round trip through the JSON snapshot.
func TestSaveAndGetResult(t *testing.T) {
	t.Parallel()

	cdb := openTestDB(t)
	ctx := context.Background()

	runID, err := cdb.SaveResult(ctx, sampleResult("https://example.com/"))
	if err != nil {
		t.Fatalf("failed to save result: %v", err)
	}
	if runID <= 0 {
		t.Fatalf("run ID = %d, expected positive", runID)
	}

	got, err := cdb.GetResult(ctx, runID)
	if err != nil {
		t.Fatalf("failed to get result: %v", err)
	}
	if got == nil {
		t.Fatal("stored result missing")
	}
	if got.Seed != "https://example.com/" {
		t.Errorf("seed = %s", got.Seed)
	}
	if len(got.Nodes) != 3 || len(got.Edges) != 2 {
		t.Errorf("nodes = %d, edges = %d, expected 3 and 2", len(got.Nodes), len(got.Edges))
	}
	if got.Termination != model.TermExhausted {
		t.Errorf("termination = %s", got.Termination)
	}

	node := got.Node("https://example.com/broken")
	if node == nil || node.ErrorKind != model.ErrHTTP4xx {
		t.Errorf("failed node not preserved: %+v", node)
	}

	home := got.Node("https://example.com/")
	if home == nil || len(home.Outbound) != 2 {
		t.Errorf("outbound links not preserved: %+v", home)
	}

	// The pages table stores the outbound link count as a number.
	var outbound int
	err = cdb.db.QueryRowContext(ctx,
		`SELECT outbound FROM pages WHERE run_id = ? AND url = ?`,
		runID, "https://example.com/",
	).Scan(&outbound)
	if err != nil {
		t.Fatalf("failed to query page row: %v", err)
	}
	if outbound != 2 {
		t.Errorf("stored outbound count = %d, expected 2", outbound)
	}
}

// TestGetResultMissing tests the nil-without-error contract.
func TestGetResultMissing(t *testing.T) {
	t.Parallel()

	cdb := openTestDB(t)
	got, err := cdb.GetResult(context.Background(), 9999)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing run, got %+v", got)
	}
}

// TestSaveResultNil tests the nil-argument guard.
func TestSaveResultNil(t *testing.T) {
	t.Parallel()

	cdb := openTestDB(t)
	if _, err := cdb.SaveResult(context.Background(), nil); err == nil {
		t.Error("expected error for nil result")
	}
}

// TestRecentRuns tests ordering, seed filtering, and the limit.
func TestRecentRuns(t *testing.T) {
	t.Parallel()

	cdb := openTestDB(t)
	ctx := context.Background()

	var lastID int64
	for _, seed := range []string{"https://a.example/", "https://b.example/", "https://a.example/"} {
		id, err := cdb.SaveResult(ctx, sampleResult(seed))
		if err != nil {
			t.Fatalf("failed to save result: %v", err)
		}
		lastID = id
	}

	runs, err := cdb.RecentRuns(ctx, "", 0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("runs = %d, expected 3", len(runs))
	}
	if runs[0].ID != lastID {
		t.Errorf("first run ID = %d, expected newest %d", runs[0].ID, lastID)
	}
	if runs[0].Fetched != 2 || runs[0].Failed != 1 {
		t.Errorf("unexpected counters: %+v", runs[0])
	}
	if runs[0].Elapsed != 1500*time.Millisecond {
		t.Errorf("elapsed = %v, expected 1.5s", runs[0].Elapsed)
	}

	filtered, err := cdb.RecentRuns(ctx, "https://a.example/", 0)
	if err != nil {
		t.Fatalf("failed to filter runs: %v", err)
	}
	if len(filtered) != 2 {
		t.Errorf("filtered runs = %d, expected 2", len(filtered))
	}

	limited, err := cdb.RecentRuns(ctx, "", 1)
	if err != nil {
		t.Fatalf("failed to limit runs: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limited runs = %d, expected 1", len(limited))
	}
}

// TestListSeeds tests seed deduplication and ordering.
func TestListSeeds(t *testing.T) {
	t.Parallel()

	cdb := openTestDB(t)
	ctx := context.Background()

	for _, seed := range []string{"https://b.example/", "https://a.example/", "https://b.example/"} {
		if _, err := cdb.SaveResult(ctx, sampleResult(seed)); err != nil {
			t.Fatalf("failed to save result: %v", err)
		}
	}

	seeds, err := cdb.ListSeeds(ctx)
	if err != nil {
		t.Fatalf("failed to list seeds: %v", err)
	}
	if len(seeds) != 2 || seeds[0] != "https://a.example/" || seeds[1] != "https://b.example/" {
		t.Errorf("unexpected seeds: %v", seeds)
	}
}

// TestGetPageHistory tests tracking one URL across multiple runs.
func TestGetPageHistory(t *testing.T) {
	t.Parallel()

	cdb := openTestDB(t)
	ctx := context.Background()

	const seed = "https://example.com/"
	first := sampleResult(seed)
	if _, err := cdb.SaveResult(ctx, first); err != nil {
		t.Fatalf("failed to save first run: %v", err)
	}

	second := sampleResult(seed)
	second.Nodes[seed+"about"].Score = 0.9
	secondID, err := cdb.SaveResult(ctx, second)
	if err != nil {
		t.Fatalf("failed to save second run: %v", err)
	}

	history, err := cdb.GetPageHistory(ctx, seed+"about")
	if err != nil {
		t.Fatalf("failed to get page history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history entries = %d, expected 2", len(history))
	}
	if history[0].RunID != secondID {
		t.Errorf("first history entry run = %d, expected newest %d", history[0].RunID, secondID)
	}
	if history[0].Score != 0.9 {
		t.Errorf("newest score = %f, expected 0.9", history[0].Score)
	}
	if history[1].Score != 0.3 {
		t.Errorf("older score = %f, expected 0.3", history[1].Score)
	}
}
