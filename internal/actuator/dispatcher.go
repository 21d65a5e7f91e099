package actuator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/oshokin/wifi-sentinel/internal/domain/detection"
	"github.com/oshokin/wifi-sentinel/internal/logger"
)

var (
	// errAlerterRequired is returned when no Alerter is supplied.
	errAlerterRequired = errors.New("alerter must be provided")
	// errInvalidDepth is returned for a queue depth below one.
	errInvalidDepth = errors.New("queue depth must be at least 1")
)

// Dispatcher decouples detection producers from a slow Alerter through a
// bounded FIFO queue with a single consumer.
type Dispatcher struct {
	// alerter receives queued detections one by one.
	alerter Alerter
	// queue holds pending detections.
	queue chan detection.Detection
	// mu guards closed against concurrent Submit and Close.
	mu sync.RWMutex
	// closed is set once Close was called.
	closed bool
	// dropped counts detections rejected because the queue was full or closed.
	dropped atomic.Uint64
}

// NewDispatcher creates a dispatcher holding at most depth pending detections.
func NewDispatcher(alerter Alerter, depth int) (*Dispatcher, error) {
	if alerter == nil {
		return nil, errAlerterRequired
	}

	if depth < 1 {
		return nil, errInvalidDepth
	}

	return &Dispatcher{
		alerter: alerter,
		queue:   make(chan detection.Detection, depth),
	}, nil
}

// Submit enqueues d without blocking.
// When the queue is full d itself is dropped and false is returned.
func (q *Dispatcher) Submit(d detection.Detection) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.dropped.Add(1)
		return false
	}

	select {
	case q.queue <- d:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Dropped returns how many detections were discarded so far.
func (q *Dispatcher) Dropped() uint64 {
	return q.dropped.Load()
}

// Pending returns the number of queued detections.
func (q *Dispatcher) Pending() int {
	return len(q.queue)
}

// Close stops accepting detections. Run keeps going until the queue is empty.
func (q *Dispatcher) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.queue)
}

// Run hands queued detections to the alerter in FIFO order.
// It returns when ctx is done or when the dispatcher is closed and drained.
func (q *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if pending := len(q.queue); pending > 0 {
				logger.WarnKV(ctx, "Discarding queued detections", "pending", pending)
			}

			return
		case d, ok := <-q.queue:
			if !ok {
				return
			}

			q.alerter.Alert(ctx, d)
		}
	}
}
