package obs

import (
	"sync/atomic"
	"time"

	"tradebook/internal/schema"
)

const (
	maxEventType  = int(schema.EventResponse)
	maxStatus     = int(schema.StatusCancelRejected)
	maxRiskReason = int(schema.RiskReasonCash)
)

// Metrics collects lightweight counters and latency stats.
//
// Every method is safe on a nil receiver.
type Metrics struct {
	eventCounts      [maxEventType + 1]uint64
	statusCounts     [maxStatus + 1]uint64
	riskReasonCounts [maxRiskReason + 1]uint64
	ignored          uint64
	clipped          uint64
	sent             uint64
	delayed          uint64
	flushed          uint64
	transmitFailures uint64
	cancels          uint64
	cancelFailures   uint64
	queueDrops       uint64
	queueClosed      uint64

	eventLatency    LatencyStats
	responseLatency LatencyStats
	sendLatency     LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	EventCounts      map[schema.EventType]uint64
	StatusCounts     map[schema.OrderStatus]uint64
	RiskReasonCounts map[schema.RiskReason]uint64
	Ignored          uint64
	Clipped          uint64
	Sent             uint64
	Delayed          uint64
	Flushed          uint64
	TransmitFailures uint64
	Cancels          uint64
	CancelFailures   uint64
	QueueDrops       uint64
	QueueClosed      uint64
	EventLatency     LatencySnapshot
	ResponseLatency  LatencySnapshot
	SendLatency      LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveEvent increments counters and tracks event latency when timestamps are present.
func (m *Metrics) ObserveEvent(header schema.EventHeader) {
	if m == nil {
		return
	}
	idx := int(header.Type)
	if idx >= 0 && idx < len(m.eventCounts) {
		atomic.AddUint64(&m.eventCounts[idx], 1)
	}
	if header.TsEvent > 0 && header.TsRecv > 0 {
		delta := header.TsRecv - header.TsEvent
		if delta >= 0 {
			m.eventLatency.Observe(time.Duration(delta))
		}
	}
}

// IncStatus counts an applied response by status.
func (m *Metrics) IncStatus(status schema.OrderStatus) {
	if m == nil {
		return
	}
	idx := int(status)
	if idx >= 0 && idx < len(m.statusCounts) {
		atomic.AddUint64(&m.statusCounts[idx], 1)
	}
}

// IncRiskReason increments the risk reason counter.
func (m *Metrics) IncRiskReason(reason schema.RiskReason) {
	if m == nil {
		return
	}
	idx := int(reason)
	if idx >= 0 && idx < len(m.riskReasonCounts) {
		atomic.AddUint64(&m.riskReasonCounts[idx], 1)
	}
}

// IncIgnored records a heartbeat or a response for an unknown order.
func (m *Metrics) IncIgnored() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ignored, 1)
}

// IncClipped records a fill larger than the order's leaves.
func (m *Metrics) IncClipped() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.clipped, 1)
}

// IncSent records an order accepted by the transport.
func (m *Metrics) IncSent() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.sent, 1)
}

// IncDelayed records a send queued behind a pending cancel.
func (m *Metrics) IncDelayed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.delayed, 1)
}

// IncFlushed records a queued send leaving the queue.
func (m *Metrics) IncFlushed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.flushed, 1)
}

// IncTransmitFailure records a send the transport refused.
func (m *Metrics) IncTransmitFailure() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.transmitFailures, 1)
}

// IncCancel records a cancel accepted by the transport.
func (m *Metrics) IncCancel() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.cancels, 1)
}

// IncCancelFailure records a cancel the transport refused.
func (m *Metrics) IncCancelFailure() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.cancelFailures, 1)
}

// IncQueueDrop records a queue drop.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// IncQueueClosed records a closed-queue publish attempt.
func (m *Metrics) IncQueueClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueClosed, 1)
}

// ObserveResponse measures response handling latency.
func (m *Metrics) ObserveResponse(d time.Duration) {
	if m == nil {
		return
	}
	m.responseLatency.Observe(d)
}

// ObserveSend measures send handling latency, risk checks included.
func (m *Metrics) ObserveSend(d time.Duration) {
	if m == nil {
		return
	}
	m.sendLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	eventCounts := make(map[schema.EventType]uint64)
	for i := range m.eventCounts {
		if v := atomic.LoadUint64(&m.eventCounts[i]); v > 0 {
			eventCounts[schema.EventType(i)] = v
		}
	}
	statusCounts := make(map[schema.OrderStatus]uint64)
	for i := range m.statusCounts {
		if v := atomic.LoadUint64(&m.statusCounts[i]); v > 0 {
			statusCounts[schema.OrderStatus(i)] = v
		}
	}
	riskCounts := make(map[schema.RiskReason]uint64)
	for i := range m.riskReasonCounts {
		if v := atomic.LoadUint64(&m.riskReasonCounts[i]); v > 0 {
			riskCounts[schema.RiskReason(i)] = v
		}
	}
	return Snapshot{
		EventCounts:      eventCounts,
		StatusCounts:     statusCounts,
		RiskReasonCounts: riskCounts,
		Ignored:          atomic.LoadUint64(&m.ignored),
		Clipped:          atomic.LoadUint64(&m.clipped),
		Sent:             atomic.LoadUint64(&m.sent),
		Delayed:          atomic.LoadUint64(&m.delayed),
		Flushed:          atomic.LoadUint64(&m.flushed),
		TransmitFailures: atomic.LoadUint64(&m.transmitFailures),
		Cancels:          atomic.LoadUint64(&m.cancels),
		CancelFailures:   atomic.LoadUint64(&m.cancelFailures),
		QueueDrops:       atomic.LoadUint64(&m.queueDrops),
		QueueClosed:      atomic.LoadUint64(&m.queueClosed),
		EventLatency:     m.eventLatency.Snapshot(),
		ResponseLatency:  m.responseLatency.Snapshot(),
		SendLatency:      m.sendLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		cur := atomic.LoadUint64(&l.min)
		if cur != 0 && nanos >= cur {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, cur, nanos) {
			break
		}
	}

	for {
		cur := atomic.LoadUint64(&l.max)
		if nanos <= cur {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, cur, nanos) {
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
