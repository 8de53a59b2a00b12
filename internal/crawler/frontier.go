package crawler

// Frontier is the breadth-first work queue of a crawl. Every URL it has
// ever accepted stays in seen, so a URL is handed out at most once.
type Frontier struct {
	pending []string
	seen    map[string]struct{}
}

// NewFrontier returns an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{seen: make(map[string]struct{})}
}

// Enqueue appends url unless it was enqueued before, and reports whether
// it was added.
func (f *Frontier) Enqueue(url string) bool {
	if _, ok := f.seen[url]; ok {
		return false
	}
	f.seen[url] = struct{}{}
	f.pending = append(f.pending, url)
	return true
}

// Dequeue removes and returns the oldest pending URL.
func (f *Frontier) Dequeue() (string, bool) {
	if len(f.pending) == 0 {
		return "", false
	}
	url := f.pending[0]
	f.pending[0] = ""
	f.pending = f.pending[1:]
	return url, true
}

// Empty reports whether no URLs are pending.
func (f *Frontier) Empty() bool {
	return len(f.pending) == 0
}

// Len returns the number of pending URLs.
func (f *Frontier) Len() int {
	return len(f.pending)
}

// Seen returns the number of distinct URLs ever enqueued.
func (f *Frontier) Seen() int {
	return len(f.seen)
}
