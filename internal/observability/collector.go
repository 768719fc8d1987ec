package observability

import (
	"sync"
	"time"
)

// SessionMetrics aggregates request activity for an entire CLI session.
type SessionMetrics struct {
	StartTime     time.Time
	EndTime       time.Time
	TotalRequests int
	Failures      int
	Refreshes     int
	TotalLatency  time.Duration
}

// SessionCollector accumulates metrics across a CLI session.
// It is safe for concurrent use and uses counters instead of unbounded slices.
type SessionCollector struct {
	mu sync.Mutex

	startTime     time.Time
	totalRequests int
	failures      int
	refreshes     int
	totalLatency  time.Duration
}

// NewSessionCollector creates a new SessionCollector.
func NewSessionCollector() *SessionCollector {
	return &SessionCollector{startTime: time.Now()}
}

// Record implements Recorder.
func (c *SessionCollector) Record(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Body-only debug events carry no timing of their own.
	if ev.Method == "" {
		return
	}

	c.totalRequests++
	c.totalLatency += ev.Duration
	if ev.Err != nil || ev.Status >= 400 {
		c.failures++
	}
}

// RecordRefresh counts a token refresh attempt.
func (c *SessionCollector) RecordRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshes++
}

// Summary returns a snapshot of the session metrics.
func (c *SessionCollector) Summary() SessionMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	return SessionMetrics{
		StartTime:     c.startTime,
		EndTime:       time.Now(),
		TotalRequests: c.totalRequests,
		Failures:      c.failures,
		Refreshes:     c.refreshes,
		TotalLatency:  c.totalLatency,
	}
}
