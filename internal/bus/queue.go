package bus

import (
	"context"
	"errors"
	"sync"

	"tradebook/internal/obs"
	"tradebook/internal/schema"
)

var (
	ErrQueueFull   = errors.New("event queue full")
	ErrQueueClosed = errors.New("event queue closed")
)

// Event is the unit passed through the in-memory bus. Exactly one of Tick or Response
// is meaningful, selected by Header.Type.
type Event struct {
	Header   schema.EventHeader
	Tick     schema.Tick
	Response schema.Response
}

// TickEvent wraps a tick.
func TickEvent(seq uint64, ts int64, tick schema.Tick) Event {
	return Event{Header: schema.NewHeader(schema.EventTick, seq, ts, ts), Tick: tick}
}

// ResponseEvent wraps a venue response.
func ResponseEvent(seq uint64, ts int64, resp schema.Response) Event {
	return Event{Header: schema.NewHeader(schema.EventResponse, seq, ts, ts), Response: resp}
}

// Queue is a bounded event queue between producers and the single engine consumer.
type Queue struct {
	mu      sync.RWMutex
	ch      chan Event
	closed  bool
	metrics *obs.Metrics
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int, metrics *obs.Metrics) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan Event, capacity), metrics: metrics}
}

// TryPublish enqueues an event without blocking.
func (q *Queue) TryPublish(e Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.metrics.IncQueueClosed()
		return ErrQueueClosed
	}
	select {
	case q.ch <- e:
		return nil
	default:
		q.metrics.IncQueueDrop()
		return ErrQueueFull
	}
}

// Publish enqueues an event, waiting for room until ctx is done.
func (q *Queue) Publish(ctx context.Context, e Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.metrics.IncQueueClosed()
		return ErrQueueClosed
	}
	select {
	case q.ch <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of buffered events.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops the queue from accepting new events. Buffered events are still delivered.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// Run consumes events until the context is done or the queue is closed and drained.
func (q *Queue) Run(ctx context.Context, handler func(Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-q.ch:
			if !ok {
				return
			}
			handler(e)
		}
	}
}
