package crawler

import "sync"

// frontierItem is one unit of traversal work.
type frontierItem struct {
	url   string
	depth int
}

// Frontier is the deduplicated FIFO work queue driving breadth-first
// traversal. It is the single source of truth for visited membership:
// the visited check and the enqueue happen under one lock, so concurrent
// producers can never admit the same URL twice, and the first enqueue fixes
// a page's (minimal) depth.
//
// Termination is two-phase: Dequeue only reports exhaustion when the queue
// is empty AND no worker holds in-flight work. A worker that is about to
// enqueue new URLs still counts as in-flight, which closes the false-empty
// race.
type Frontier struct {
	// mu protects all fields; cond signals blocked dequeuers.
	mu   sync.Mutex
	cond *sync.Cond

	// queue holds admitted items in discovery order.
	queue []frontierItem

	// visited holds every URL ever admitted.
	visited map[string]bool

	// inFlight counts dequeued items not yet marked Done.
	inFlight int

	// dequeued counts items handed to workers.
	dequeued int

	// maxDepth rejects items discovered beyond this depth. Negative
	// disables the check. Rejected items are dropped silently; they are
	// never admitted and never reach the crawl counters.
	maxDepth int

	// budget caps the total number of admitted URLs. Zero or negative
	// disables the cap.
	budget int

	// budgetHit records that an enqueue was refused by the budget; once
	// set, Dequeue stops handing out work so in-flight fetches finish
	// but nothing further starts.
	budgetHit bool

	// closed stops all further enqueues and dequeues (cancellation).
	closed bool
}

// NewFrontier creates a frontier with the given depth cap and page budget.
func NewFrontier(maxDepth, budget int) *Frontier {
	f := &Frontier{
		visited:  make(map[string]bool),
		maxDepth: maxDepth,
		budget:   budget,
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Enqueue admits a URL at the given depth. It is a no-op when the URL was
// already admitted, the depth exceeds the cap, the page budget is reached,
// or the frontier is closed. Returns true only when the item was admitted.
func (f *Frontier) Enqueue(url string, depth int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || f.budgetHit {
		return false
	}
	if f.visited[url] {
		return false
	}
	if f.maxDepth >= 0 && depth > f.maxDepth {
		return false
	}
	if f.budget > 0 && len(f.visited) >= f.budget {
		f.budgetHit = true
		f.cond.Broadcast()
		return false
	}

	f.visited[url] = true
	f.queue = append(f.queue, frontierItem{url: url, depth: depth})
	f.cond.Signal()
	return true
}

// Dequeue blocks until work is available and returns the next item in FIFO
// order. It returns ok=false when the traversal is over: the frontier was
// closed, the budget stop fired, or the queue is empty with zero in-flight
// work. Every successful Dequeue must be paired with a Done call.
func (f *Frontier) Dequeue() (url string, depth int, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		if f.closed || f.budgetHit {
			return "", 0, false
		}
		if len(f.queue) > 0 {
			item := f.queue[0]
			f.queue = f.queue[1:]
			f.inFlight++
			f.dequeued++
			return item.url, item.depth, true
		}
		if f.inFlight == 0 {
			return "", 0, false
		}
		f.cond.Wait()
	}
}

// Done marks one dequeued item as fully processed, including any enqueues
// its links produced. When the last in-flight item finishes with an empty
// queue, all blocked dequeuers are released.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inFlight--
	if f.inFlight == 0 && len(f.queue) == 0 {
		f.cond.Broadcast()
	}
}

// Close aborts the traversal: no further enqueues or dequeues succeed.
// Used for external cancellation.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.cond.Broadcast()
}

// Visited reports whether the URL has been admitted.
func (f *Frontier) Visited(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited[url]
}

// Admitted returns the number of URLs ever admitted to the frontier.
func (f *Frontier) Admitted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited)
}

// BudgetReached reports whether the page budget stopped the traversal.
func (f *Frontier) BudgetReached() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.budgetHit
}
