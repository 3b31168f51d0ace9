package crawler

// Entry is a pending unit of work: a URL tagged with its hop distance
// from the seed. The seed itself is depth 0.
type Entry struct {
	// URL is the normalized absolute URL to process.
	URL string

	// Depth is the number of hops from the seed.
	Depth int
}

// Frontier is the FIFO queue of discovered-but-not-yet-processed entries.
// Enqueue at the tail and dequeue at the head gives breadth-first order:
// every entry at depth d is dequeued before any entry at depth d+1.
//
// The frontier is owned exclusively by the Spider; nothing outside the
// traversal loop enqueues or dequeues, so no locking is needed.
type Frontier struct {
	entries []Entry
}

// NewFrontier creates an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{entries: make([]Entry, 0)}
}

// Push appends an entry at the tail.
func (f *Frontier) Push(e Entry) {
	f.entries = append(f.entries, e)
}

// Pop removes and returns the head entry.
// The second return value is false when the frontier is empty.
func (f *Frontier) Pop() (Entry, bool) {
	if len(f.entries) == 0 {
		return Entry{}, false
	}
	head := f.entries[0]
	f.entries = f.entries[1:]
	return head, true
}

// Len returns the number of pending entries.
func (f *Frontier) Len() int {
	return len(f.entries)
}
