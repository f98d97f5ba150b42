package usecases

import (
	"sync"
	"time"

	"pay-router.backend/internal/domain/entities"
)

const bucketWidth = time.Minute

// HealthCounts is the raw tally of one acquirer over a window.
type HealthCounts struct {
	Success      int64
	Failure      int64
	Retry        int64
	CircuitOpens int64
	CircuitClose int64
	LatencySum   int64
	LatencyCount int64
	LastFailure  time.Time
}

type healthBucket struct {
	minute int64
	counts HealthCounts
}

type healthRing struct {
	mu      sync.Mutex
	buckets []healthBucket
}

// HealthAggregator keeps a ring of one-minute buckets per acquirer covering
// maxWindow plus the partial minute at its old edge. A summary walks at most
// maxWindow/1m+1 buckets, so its cost does not grow with the size of the
// event history.
type HealthAggregator struct {
	maxWindow time.Duration
	rings     map[entities.Acquirer]*healthRing
}

func NewHealthAggregator(maxWindow time.Duration) *HealthAggregator {
	if maxWindow < time.Hour {
		maxWindow = time.Hour
	}
	size := int(maxWindow/bucketWidth) + 1
	a := &HealthAggregator{
		maxWindow: maxWindow,
		rings:     make(map[entities.Acquirer]*healthRing, len(entities.AllAcquirers())),
	}
	for _, acq := range entities.AllAcquirers() {
		a.rings[acq] = &healthRing{buckets: newBuckets(size)}
	}
	return a
}

func newBuckets(size int) []healthBucket {
	b := make([]healthBucket, size)
	for i := range b {
		b[i].minute = -1
	}
	return b
}

// MaxWindow is the longest window Counts can answer.
func (a *HealthAggregator) MaxWindow() time.Duration {
	return a.maxWindow
}

// Record adds one event. Events older than the ring are ignored.
func (a *HealthAggregator) Record(e *entities.ApiEvent) {
	ring, ok := a.rings[e.Acquirer]
	if !ok {
		return
	}
	minute := minuteOf(e.CreatedAt)

	ring.mu.Lock()
	defer ring.mu.Unlock()

	b := &ring.buckets[index(minute, len(ring.buckets))]
	switch {
	case b.minute == minute:
	case b.minute < minute:
		*b = healthBucket{minute: minute}
	default:
		return
	}

	c := &b.counts
	switch e.EventType {
	case entities.ApiEventSuccess:
		c.Success++
	case entities.ApiEventFailure:
		c.Failure++
		if e.CreatedAt.After(c.LastFailure) {
			c.LastFailure = e.CreatedAt
		}
	case entities.ApiEventRetry:
		c.Retry++
	case entities.ApiEventCircuitOpen:
		c.CircuitOpens++
	case entities.ApiEventCircuitClose:
		c.CircuitClose++
	}
	if e.ResponseTimeMs.Valid {
		c.LatencySum += e.ResponseTimeMs.Int64
		c.LatencyCount++
	}
}

// Counts sums the buckets from the minute holding now-window up to the
// minute holding now. Every event in [now-window, now] is counted; the old
// edge is widened to its whole minute, so events up to 59s older than the
// window can be included.
func (a *HealthAggregator) Counts(acquirer entities.Acquirer, window time.Duration, now time.Time) HealthCounts {
	var total HealthCounts
	ring, ok := a.rings[acquirer]
	if !ok {
		return total
	}
	if window > a.maxWindow {
		window = a.maxWindow
	}
	last := minuteOf(now)
	first := minuteOf(now.Add(-window))

	ring.mu.Lock()
	defer ring.mu.Unlock()

	for m := first; m <= last; m++ {
		b := &ring.buckets[index(m, len(ring.buckets))]
		if b.minute != m {
			continue
		}
		c := b.counts
		total.Success += c.Success
		total.Failure += c.Failure
		total.Retry += c.Retry
		total.CircuitOpens += c.CircuitOpens
		total.CircuitClose += c.CircuitClose
		total.LatencySum += c.LatencySum
		total.LatencyCount += c.LatencyCount
		if c.LastFailure.After(total.LastFailure) {
			total.LastFailure = c.LastFailure
		}
	}
	return total
}

// Reset clears every ring.
func (a *HealthAggregator) Reset() {
	for _, ring := range a.rings {
		ring.mu.Lock()
		ring.buckets = newBuckets(len(ring.buckets))
		ring.mu.Unlock()
	}
}

func minuteOf(t time.Time) int64 {
	return t.Unix() / int64(bucketWidth/time.Second)
}

func index(minute int64, size int) int {
	i := minute % int64(size)
	if i < 0 {
		i += int64(size)
	}
	return int(i)
}
