package logger

import (
	"bytes"
	"encoding/json"
	"sync"
)

// RingBuffer is a zerolog writer that keeps the most recent log entries in
// memory. Each entry is one JSON object as produced by zerolog.
type RingBuffer struct {
	mu      sync.Mutex
	entries []json.RawMessage
	next    int
	full    bool
}

// NewRingBuffer creates a buffer holding at most size entries.
func NewRingBuffer(size int) *RingBuffer {
	if size < 1 {
		size = 1
	}
	return &RingBuffer{entries: make([]json.RawMessage, size)}
}

// Write stores a copy of p; zerolog reuses its buffers between events.
func (r *RingBuffer) Write(p []byte) (int, error) {
	entry := bytes.TrimSpace(p)
	if !json.Valid(entry) {
		return len(p), nil
	}
	stored := make(json.RawMessage, len(entry))
	copy(stored, entry)

	r.mu.Lock()
	r.entries[r.next] = stored
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
	r.mu.Unlock()

	return len(p), nil
}

// Len returns the number of entries currently held.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.entries)
	}
	return r.next
}

// Entries returns up to n of the newest entries, oldest first. n <= 0
// returns everything held.
func (r *RingBuffer) Entries(n int) []json.RawMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ordered []json.RawMessage
	if r.full {
		ordered = append(ordered, r.entries[r.next:]...)
	}
	ordered = append(ordered, r.entries[:r.next]...)

	if n > 0 && len(ordered) > n {
		ordered = ordered[len(ordered)-n:]
	}
	out := make([]json.RawMessage, len(ordered))
	copy(out, ordered)
	return out
}
