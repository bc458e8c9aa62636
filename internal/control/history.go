package control

import "sync"

const defaultHistorySize = 500

// History is a bounded in-memory ring of recent dispatch results. The
// oldest entry is evicted once the ring is full. Results are never
// persisted as first-class records; the ring exists for operator
// inspection and is lost on restart.
type History struct {
	mu      sync.Mutex
	entries []Result
	next    int
	full    bool
}

// NewHistory creates a history ring holding up to size results.
// A non-positive size falls back to the default.
func NewHistory(size int) *History {
	if size <= 0 {
		size = defaultHistorySize
	}
	return &History{entries: make([]Result, size)}
}

// Record appends a result, evicting the oldest when full.
func (h *History) Record(result Result) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.next] = result
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.full = true
	}
}

// Recent returns up to n results, newest first.
func (h *History) Recent(n int) []Result {
	h.mu.Lock()
	defer h.mu.Unlock()

	size := h.next
	if h.full {
		size = len(h.entries)
	}
	if n > size {
		n = size
	}
	if n <= 0 {
		return nil
	}

	out := make([]Result, 0, n)
	for i := 1; i <= n; i++ {
		idx := (h.next - i + len(h.entries)) % len(h.entries)
		out = append(out, h.entries[idx])
	}
	return out
}

// Len returns the number of results currently retained.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.full {
		return len(h.entries)
	}
	return h.next
}
