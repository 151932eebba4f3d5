package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/webrecon/internal/model"
)

// TestProcessBatchOrder tests that results keep the input seed order.
func TestProcessBatchOrder(t *testing.T) {
	t.Parallel()

	factory := func() *Pipeline {
		p := New()
		p.AddStep(&fakeStep{name: "noop"})
		return p
	}

	seeds := []string{"https://a.example", "https://b.example", "https://c.example"}
	bp := NewBatchProcessor(factory, WithBatchConcurrency(2))

	reports, err := bp.ProcessBatch(context.Background(), seeds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reports) != len(seeds) {
		t.Fatalf("reports = %d, expected %d", len(reports), len(seeds))
	}
	for i, seed := range seeds {
		if reports[i] == nil || reports[i].Seed != seed {
			t.Errorf("report %d = %+v, expected seed %s", i, reports[i], seed)
		}
	}
}

// TestProcessBatchFailedSeed tests that one failing seed does not stop the
// others.
func TestProcessBatchFailedSeed(t *testing.T) {
	t.Parallel()

	stepErr := errors.New("crawl failed")

	// Fail only the second seed by giving it a pipeline with a failing step.
	var count atomic.Int32
	factory := func() *Pipeline {
		p := New()
		if count.Add(1) == 2 {
			p.AddStep(&fakeStep{name: "fail", err: stepErr})
		} else {
			p.AddStep(&fakeStep{name: "ok"})
		}
		return p
	}

	bp := NewBatchProcessor(factory, WithBatchConcurrency(1))
	reports, err := bp.ProcessBatch(context.Background(),
		[]string{"https://a.example", "https://b.example", "https://c.example"})
	if err != nil {
		t.Fatalf("unexpected batch error: %v", err)
	}

	failures := 0
	for _, r := range reports {
		if r == nil {
			t.Fatal("missing report")
		}
		if r.Error != nil {
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("failed reports = %d, expected 1", failures)
	}
}

// TestProcessBatchConcurrencyLimit tests that at most N crawls run at once.
func TestProcessBatchConcurrencyLimit(t *testing.T) {
	t.Parallel()

	const limit = 2
	var inFlight, peak atomic.Int32

	factory := func() *Pipeline {
		p := New()
		p.AddStep(&fakeStep{name: "busy", do: func(*model.CrawlReport) {
			n := inFlight.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			inFlight.Add(-1)
		}})
		return p
	}

	seeds := make([]string, 6)
	for i := range seeds {
		seeds[i] = fmt.Sprintf("https://site%d.example", i)
	}

	bp := NewBatchProcessor(factory, WithBatchConcurrency(limit))
	if _, err := bp.ProcessBatch(context.Background(), seeds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := peak.Load(); got > limit {
		t.Errorf("peak concurrency = %d, exceeds limit %d", got, limit)
	}
}

// TestProcessBatchWithCallback tests the streaming variant.
func TestProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	factory := func() *Pipeline {
		p := New()
		p.AddStep(&fakeStep{name: "noop"})
		return p
	}

	seeds := []string{"https://a.example", "https://b.example"}
	bp := NewBatchProcessor(factory)

	var mu sync.Mutex
	got := make(map[int]string)
	err := bp.ProcessBatchWithCallback(context.Background(), seeds,
		func(report *model.CrawlReport, index int) {
			mu.Lock()
			got[index] = report.Seed
			mu.Unlock()
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != seeds[0] || got[1] != seeds[1] {
		t.Errorf("callback results = %v", got)
	}
}
