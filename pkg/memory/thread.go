package memory

import (
	"sync"
	"time"
)

// DefaultWindow is the bound on per-session short-term history.
const DefaultWindow = 20

/*
ThreadBuffer is the bounded, session-scoped short-term conversation store. It
is an explicit arena owned by the Manager instance rather than ambient global
state; the router's sequential-per-session execution keeps writes to a key
single-writer. Not durable on purpose: durability is the gateway's job.
*/
type ThreadBuffer struct {
	mu      sync.RWMutex
	window  int
	entries map[string][]ThreadEntry
}

// NewThreadBuffer returns an empty buffer trimming each session to window
// entries. A window of zero or less falls back to DefaultWindow.
func NewThreadBuffer(window int) *ThreadBuffer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &ThreadBuffer{
		window:  window,
		entries: make(map[string][]ThreadEntry),
	}
}

// Append records one turn for a session, creating the session on first use,
// and trims to the last window entries.
func (b *ThreadBuffer) Append(sessionID string, role Role, content string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := append(b.entries[sessionID], ThreadEntry{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})

	if len(entries) > b.window {
		entries = entries[len(entries)-b.window:]
	}

	b.entries[sessionID] = entries
}

// Recent returns the session's entries oldest-first (most recent last). The
// returned slice is a copy; callers may not mutate buffer state through it.
func (b *ThreadBuffer) Recent(sessionID string) []ThreadEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entries := b.entries[sessionID]
	out := make([]ThreadEntry, len(entries))
	copy(out, entries)
	return out
}

// Drop discards a session's history, typically on session close.
func (b *ThreadBuffer) Drop(sessionID string) {
	b.mu.Lock()
	delete(b.entries, sessionID)
	b.mu.Unlock()
}

// Len reports the current entry count for a session.
func (b *ThreadBuffer) Len(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries[sessionID])
}
