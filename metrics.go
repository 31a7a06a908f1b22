package driveauth

import (
	"sync/atomic"
)

// MetricID names one lifecycle counter.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricValidateValid
	MetricValidateNoSession
	MetricValidateInvalid
	MetricValidateExpiredInactivity
	MetricValidateExpiredToken
	MetricRefreshAttempted
	MetricSweepDropped
	MetricInactivityTrip
	MetricLogout

	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of atomic counters. Disabled metrics cost a single
// branch per increment.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// NewMetrics creates the counter set.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether counters are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot copies all counters. Counters increment concurrently, so the
// snapshot is consistent per counter, not across counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}

	s := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}

func outcomeMetric(o Outcome) MetricID {
	switch o {
	case OutcomeValid:
		return MetricValidateValid
	case OutcomeNoSession:
		return MetricValidateNoSession
	case OutcomeExpiredByInactivity:
		return MetricValidateExpiredInactivity
	case OutcomeExpiredByToken:
		return MetricValidateExpiredToken
	default:
		return MetricValidateInvalid
	}
}
