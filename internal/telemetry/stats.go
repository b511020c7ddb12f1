package telemetry

import (
	"sort"
	"sync"
	"time"
)

// LatencyBucket is an operation latency histogram bucket.
type LatencyBucket string

const (
	BucketSub1s   LatencyBucket = "<1s"
	BucketSub5s   LatencyBucket = "1-5s"
	BucketSub30s  LatencyBucket = "5-30s"
	BucketOver30s LatencyBucket = ">=30s"
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	switch {
	case d < time.Second:
		return BucketSub1s
	case d < 5*time.Second:
		return BucketSub5s
	case d < 30*time.Second:
		return BucketSub30s
	default:
		return BucketOver30s
	}
}

// OperationEvent is one finished indexing operation.
type OperationEvent struct {
	Operation string
	Target    string // document id or file
	ErrorCode string // empty on success
	Latency   time.Duration
}

// Failed reports whether the operation ended in error.
func (e OperationEvent) Failed() bool {
	return e.ErrorCode != ""
}

// RingBuffer is a fixed-capacity FIFO buffer.
type RingBuffer[T any] struct {
	mu    sync.RWMutex
	items []T
	head  int
	size  int
}

// NewRingBuffer creates a buffer holding at most capacity items.
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity <= 0 {
		capacity = 20
	}
	return &RingBuffer[T]{items: make([]T, capacity)}
}

// Add appends item, evicting the oldest when full.
func (b *RingBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % len(b.items)
	if b.size < len(b.items) {
		b.size++
	}
}

// Items returns the buffered items, oldest first.
func (b *RingBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]T, 0, b.size)
	start := 0
	if b.size == len(b.items) {
		start = b.head
	}
	for i := 0; i < b.size; i++ {
		out = append(out, b.items[(start+i)%len(b.items)])
	}
	return out
}

// Len returns the number of buffered items.
func (b *RingBuffer[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// CodeCount is an error code and how often it occurred.
type CodeCount struct {
	Code  string `json:"code"`
	Count int64  `json:"count"`
}

// Snapshot is an immutable view of collected statistics.
type Snapshot struct {
	Total               int64                   `json:"total"`
	Succeeded           int64                   `json:"succeeded"`
	Failed              int64                   `json:"failed"`
	ByOperation         map[string]int64        `json:"by_operation"`
	ErrorCodes          []CodeCount             `json:"error_codes,omitempty"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	RecentFailures      []OperationEvent        `json:"recent_failures,omitempty"`
	Elapsed             time.Duration           `json:"elapsed"`
}

// Stats aggregates operation outcomes. Safe for concurrent use.
type Stats struct {
	mu         sync.Mutex
	total      int64
	failed     int64
	byOp       map[string]int64
	codes      map[string]int64
	latencies  map[LatencyBucket]int64
	recentFail *RingBuffer[OperationEvent]
	start      time.Time
	now        func() time.Time
}

// NewStats creates an empty collector keeping up to recentFailures failed events.
func NewStats(recentFailures int) *Stats {
	return &Stats{
		byOp:       make(map[string]int64),
		codes:      make(map[string]int64),
		latencies:  make(map[LatencyBucket]int64),
		recentFail: NewRingBuffer[OperationEvent](recentFailures),
		start:      time.Now(),
		now:        time.Now,
	}
}

// Record adds one finished operation.
func (s *Stats) Record(e OperationEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	s.byOp[e.Operation]++
	s.latencies[LatencyToBucket(e.Latency)]++
	if e.Failed() {
		s.failed++
		s.codes[e.ErrorCode]++
		s.recentFail.Add(e)
	}
}

// Snapshot returns the current statistics.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Total:               s.total,
		Succeeded:           s.total - s.failed,
		Failed:              s.failed,
		ByOperation:         make(map[string]int64, len(s.byOp)),
		LatencyDistribution: make(map[LatencyBucket]int64, len(s.latencies)),
		RecentFailures:      s.recentFail.Items(),
		Elapsed:             s.now().Sub(s.start),
	}
	for k, v := range s.byOp {
		snap.ByOperation[k] = v
	}
	for k, v := range s.latencies {
		snap.LatencyDistribution[k] = v
	}
	for code, n := range s.codes {
		snap.ErrorCodes = append(snap.ErrorCodes, CodeCount{Code: code, Count: n})
	}
	sort.Slice(snap.ErrorCodes, func(i, j int) bool {
		if snap.ErrorCodes[i].Count != snap.ErrorCodes[j].Count {
			return snap.ErrorCodes[i].Count > snap.ErrorCodes[j].Count
		}
		return snap.ErrorCodes[i].Code < snap.ErrorCodes[j].Code
	})
	return snap
}
