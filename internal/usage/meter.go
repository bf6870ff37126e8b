// Package usage tracks remote model token consumption per calendar month.
package usage

import (
	"context"
	"sync"
	"time"
)

// Meter accumulates tokens for the current month. Counters reset when the
// month changes.
type Meter interface {
	// Add records tokens and returns the month total after the addition.
	Add(ctx context.Context, tokens int) (int, error)

	// Total returns the current month total.
	Total(ctx context.Context) (int, error)
}

// MonthKey is the bucket a timestamp belongs to.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// MemoryMeter is a process-local Meter. Totals are lost on restart.
type MemoryMeter struct {
	mu    sync.Mutex
	month string
	total int
	now   func() time.Time
}

// NewMemoryMeter creates an empty in-memory meter.
func NewMemoryMeter() *MemoryMeter {
	return &MemoryMeter{now: time.Now}
}

// Add implements Meter.
func (m *MemoryMeter) Add(_ context.Context, tokens int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rollover()
	if tokens > 0 {
		m.total += tokens
	}
	return m.total, nil
}

// Total implements Meter.
func (m *MemoryMeter) Total(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rollover()
	return m.total, nil
}

func (m *MemoryMeter) rollover() {
	key := MonthKey(m.now())
	if key != m.month {
		m.month = key
		m.total = 0
	}
}
