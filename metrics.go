package goAccount

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a manager counter.
type MetricID uint16

const (
	// MetricRestoreActive counts restores that produced an active session.
	MetricRestoreActive MetricID = iota
	// MetricRestoreNoSession counts restores of an empty store.
	MetricRestoreNoSession
	// MetricRestoreMalformed counts stored records missing a required field or holding bad values.
	MetricRestoreMalformed
	// MetricRestoreExpired counts stored credentials rejected as expired.
	MetricRestoreExpired
	// MetricRestoreStoreError counts store read failures during restore.
	MetricRestoreStoreError
	MetricSignInStarted
	MetricSignInConflict
	MetricSignInRateLimited
	MetricSignInSuccess
	MetricSignInFailure
	MetricSignInTimeout
	MetricSignInCancelled
	MetricProtocolViolation
	MetricPersistFailure
	MetricExternalRouted
	// MetricExternalUnrouted counts results and events that belonged to another subsystem.
	MetricExternalUnrouted
	// MetricSignInLatency is the histogram of time from BeginSignIn to a terminal outcome.
	MetricSignInLatency
	metricIDCount
)

// MetricIDCount is the number of defined metric IDs.
const MetricIDCount = int(metricIDCount)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and the sign-in latency histogram.
//
// Metrics is safe for concurrent use. A nil *Metrics is a valid disabled instance.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters. Histogram slices hold
// per-bucket (non-cumulative) counts in the order of the bucket bounds.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns counters configured by cfg. Latency histograms require Enabled.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only MetricSignInLatency has a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricSignInLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current count for id, or zero for unknown ids.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters. A disabled instance returns empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricSignInLatency].buckets[i])
		}
		s.Histograms[MetricSignInLatency] = buckets
	}

	return s
}

// Sign-in latency is user-facing, so buckets run from one second to two minutes.
func bucketIndex(d time.Duration) int {
	switch {
	case d <= time.Second:
		return 0
	case d <= 2*time.Second:
		return 1
	case d <= 5*time.Second:
		return 2
	case d <= 10*time.Second:
		return 3
	case d <= 30*time.Second:
		return 4
	case d <= time.Minute:
		return 5
	case d <= 2*time.Minute:
		return 6
	default:
		return 7
	}
}
