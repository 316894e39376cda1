// Package status holds the in-memory, per-kind job status records: the
// bounded log journal, the log-line classifier, the active-flag tracker, and
// the mutable statistics each background job reports through. Everything here
// is volatile; the service serves it straight out of memory.
package status

import (
	"sync"
	"time"
)

// Level tags a journal entry with a coarse severity.
type Level string

// Supported entry levels, matching what the frontend renders.
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Entry is a single journal line as served over the status endpoints.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
	Type      Level  `json:"type"`
}

// Journal is a bounded ring of log entries. Once full, appending drops the
// oldest entry. Safe for concurrent use.
type Journal struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry
	now      func() time.Time
	onAppend func(Level)
}

// NewJournal creates a Journal retaining at most capacity entries.
func NewJournal(capacity int) *Journal {
	if capacity <= 0 {
		capacity = 1
	}
	return &Journal{
		capacity: capacity,
		entries:  make([]Entry, 0, capacity),
		now:      time.Now,
	}
}

// OnAppend registers a hook invoked for every appended entry. Used to feed
// the log-line metrics without coupling this package to Prometheus.
func (j *Journal) OnAppend(fn func(Level)) {
	j.mu.Lock()
	j.onAppend = fn
	j.mu.Unlock()
}

// Append records a message at the given level, evicting the oldest entry when
// the journal is at capacity.
func (j *Journal) Append(level Level, message string) {
	j.mu.Lock()
	entry := Entry{
		Timestamp: j.now().Format("15:04:05"),
		Message:   message,
		Type:      level,
	}
	if len(j.entries) == j.capacity {
		copy(j.entries, j.entries[1:])
		j.entries[len(j.entries)-1] = entry
	} else {
		j.entries = append(j.entries, entry)
	}
	hook := j.onAppend
	j.mu.Unlock()
	if hook != nil {
		hook(level)
	}
}

// Snapshot returns a copy of the current entries, oldest first.
func (j *Journal) Snapshot() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// Reset discards all entries.
func (j *Journal) Reset() {
	j.mu.Lock()
	j.entries = j.entries[:0]
	j.mu.Unlock()
}

// Len reports the current number of retained entries.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}
