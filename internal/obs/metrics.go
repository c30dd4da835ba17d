// Package obs holds the lightweight, dependency-free observability
// primitives shared by every long-running process in the replication
// plane: atomic counters and latency stats colocated with structured
// logging, so a cmd binary can expose both from one place without
// standing up a full metrics backend.
package obs

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/JMS-tesoy/EASync/internal/domain"
)

// Metrics collects counters and latency stats for one process. Every
// method is safe for concurrent use and tolerates a nil receiver, so a
// component can be handed a *Metrics that is nil in tests without
// branching on it at every call site.
type Metrics struct {
	acceptedTotal uint64
	rejectedTotal uint64

	mu               sync.Mutex
	rejectedByReason map[domain.RejectReason]*uint64

	ingestLatency   LatencyStats
	deliveryLatency LatencyStats
	guardLatency    LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds using the same
// lock-free min/max-via-CAS technique as the running counters, so
// recording a sample never blocks a hot path.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of a LatencyStats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures every metric's current value.
type Snapshot struct {
	AcceptedTotal    uint64
	RejectedTotal    uint64
	RejectedByReason map[domain.RejectReason]uint64
	IngestLatency    LatencySnapshot
	DeliveryLatency  LatencySnapshot
	GuardLatency     LatencySnapshot
}

func NewMetrics() *Metrics {
	return &Metrics{rejectedByReason: make(map[domain.RejectReason]*uint64)}
}

// ObserveAdmission records the outcome of one admission decision, from
// either the Ingest Gateway or a receiver's ExecutionGuard; reason is
// ignored when accepted is true.
func (m *Metrics) ObserveAdmission(accepted bool, reason domain.RejectReason) {
	if m == nil {
		return
	}
	if accepted {
		atomic.AddUint64(&m.acceptedTotal, 1)
		return
	}
	atomic.AddUint64(&m.rejectedTotal, 1)
	atomic.AddUint64(m.counterFor(reason), 1)
}

func (m *Metrics) counterFor(reason domain.RejectReason) *uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rejectedByReason[reason]
	if !ok {
		c = new(uint64)
		m.rejectedByReason[reason] = c
	}
	return c
}

// ObserveIngestLatency records the time from a signal's generated_at to
// the Ingest Gateway's arrival stamp, the hot-path latency spec §5 bounds.
func (m *Metrics) ObserveIngestLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.ingestLatency.Observe(d)
}

// ObserveDeliveryLatency records the round trip from a fan-out push to
// the receiver's ack.
func (m *Metrics) ObserveDeliveryLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.deliveryLatency.Observe(d)
}

// ObserveGuardLatency records the wall-clock time one ExecutionGuard
// pipeline run took, end to end including any order placement.
func (m *Metrics) ObserveGuardLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.guardLatency.Observe(d)
}

// Snapshot returns a copy of every metric's current value.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	byReason := make(map[domain.RejectReason]uint64, len(m.rejectedByReason))
	for reason, counter := range m.rejectedByReason {
		if v := atomic.LoadUint64(counter); v > 0 {
			byReason[reason] = v
		}
	}
	m.mu.Unlock()

	return Snapshot{
		AcceptedTotal:    atomic.LoadUint64(&m.acceptedTotal),
		RejectedTotal:    atomic.LoadUint64(&m.rejectedTotal),
		RejectedByReason: byReason,
		IngestLatency:    m.ingestLatency.Snapshot(),
		DeliveryLatency:  m.deliveryLatency.Snapshot(),
		GuardLatency:     m.guardLatency.Snapshot(),
	}
}

// Observe records one duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(atomic.LoadUint64(&l.min)),
		Max:   time.Duration(atomic.LoadUint64(&l.max)),
		Avg:   time.Duration(sum / count),
	}
}
