// Package frontier implements the FIFO crawl frontier with exact
// visited-set deduplication.
package frontier

import (
	"github.com/pagehound/pagehound/internal/crawler"
)

// Frontier is the queue of URLs pending traversal for one job. Entries are
// popped in discovery (breadth-first) order. Deduplication happens at
// enqueue time: a URL enters the frontier at most once per job. The set is
// exact rather than probabilistic because a false positive would silently
// drop an unvisited URL.
//
// A Frontier is owned by a single job loop and is not safe for concurrent
// use.
type Frontier struct {
	queue []crawler.FrontierEntry
	head  int
	seen  map[string]struct{}
}

// New creates an empty Frontier.
func New() *Frontier {
	return &Frontier{
		seen: make(map[string]struct{}),
	}
}

// Push enqueues an entry unless its URL was already seen. Returns false for
// duplicates.
func (f *Frontier) Push(entry crawler.FrontierEntry) bool {
	if _, dup := f.seen[entry.URL]; dup {
		return false
	}
	f.seen[entry.URL] = struct{}{}
	f.queue = append(f.queue, entry)
	return true
}

// Pop removes and returns the oldest entry. The bool result is false when
// the frontier is empty.
func (f *Frontier) Pop() (crawler.FrontierEntry, bool) {
	if f.head >= len(f.queue) {
		return crawler.FrontierEntry{}, false
	}
	entry := f.queue[f.head]
	f.queue[f.head] = crawler.FrontierEntry{}
	f.head++
	if f.head == len(f.queue) {
		f.queue = f.queue[:0]
		f.head = 0
	}
	return entry, true
}

// Len returns the number of pending entries.
func (f *Frontier) Len() int {
	return len(f.queue) - f.head
}

// Seen reports whether a URL has ever been enqueued.
func (f *Frontier) Seen(url string) bool {
	_, ok := f.seen[url]
	return ok
}
