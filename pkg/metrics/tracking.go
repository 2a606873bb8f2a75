package metrics

import (
	"slices"
	"sync"
	"time"

	"github.com/ajitpratap0/lendpool/pkg/lockfree"
)

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
// The name parameter is for identification in logs.
//
// Example:
//
//	timer := metrics.NewTimer("stress_run")
//	run()
//	logger.Info("run finished", zap.Duration("duration", timer.Stop()))
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the timer name.
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation. It can be called more
// than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ThroughputTracker counts operations and reports them per second over a
// window. Increment is lock-free; GetAndReset closes the window.
type ThroughputTracker struct {
	mu        sync.Mutex
	count     lockfree.AtomicCounter
	total     lockfree.AtomicCounter
	lastReset time.Time
	name      string
}

// NewThroughputTracker creates a tracker whose first window starts now.
func NewThroughputTracker(name string) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset: time.Now(),
		name:      name,
	}
}

// Increment adds n to the operation count. Safe for concurrent use.
func (t *ThroughputTracker) Increment(n uint64) {
	t.count.Add(n)
	t.total.Add(n)
}

// Total returns every operation counted since creation.
func (t *ThroughputTracker) Total() uint64 {
	return t.total.Get()
}

// GetAndReset returns operations per second since the last reset and starts
// a new window.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count.Reset()) / elapsed
	t.lastReset = time.Now()
	return throughput
}

// LatencyTracker keeps the most recent samples for percentile queries.
type LatencyTracker struct {
	mu      sync.Mutex
	values  []time.Duration
	maxSize int
}

// NewLatencyTracker creates a tracker holding at most maxSize samples.
func NewLatencyTracker(maxSize int) *LatencyTracker {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &LatencyTracker{
		values:  make([]time.Duration, 0, maxSize),
		maxSize: maxSize,
	}
}

// Record records a latency value, evicting the oldest when full.
func (l *LatencyTracker) Record(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.values) >= l.maxSize {
		copy(l.values, l.values[1:])
		l.values = l.values[:len(l.values)-1]
	}
	l.values = append(l.values, d)
}

// GetPercentile returns the p-th percentile (0-100) of the recorded samples.
func (l *LatencyTracker) GetPercentile(p float64) time.Duration {
	l.mu.Lock()
	sorted := slices.Clone(l.values)
	l.mu.Unlock()

	if len(sorted) == 0 {
		return 0
	}
	slices.Sort(sorted)

	index := int(float64(len(sorted)) * p / 100)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	if index < 0 {
		index = 0
	}
	return sorted[index]
}
