package status

import "sync"

// Kind names an independent background job category.
type Kind string

// The three job kinds the service runs, at most one of each at a time.
const (
	KindScrape    Kind = "scrape"
	KindConvert   Kind = "convert"
	KindSummarize Kind = "summarize"
)

// Tracker gates one job kind behind an active flag. A kind runs at most once
// concurrently; different kinds are tracked independently.
type Tracker struct {
	mu     sync.Mutex
	active bool
}

// TryAcquire claims the flag, returning false if a job of this kind is
// already running.
func (t *Tracker) TryAcquire() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active {
		return false
	}
	t.active = true
	return true
}

// Release clears the flag. Safe to call when not held.
func (t *Tracker) Release() {
	t.mu.Lock()
	t.active = false
	t.mu.Unlock()
}

// Active reports whether a job of this kind is running.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}
