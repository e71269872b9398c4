// Package queue implements the in-memory ticket event queue and the
// autoscaling worker manager that hands events to a publisher.
package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fairyhunter13/cart-checkout-service/internal/model"
	"github.com/fairyhunter13/cart-checkout-service/internal/obs"
)

// Queue is an unbounded backlog feeding a bounded output channel through a
// background broker. Enqueue never blocks the purchase path.
type Queue struct {
	mu           sync.Mutex
	backlog      []model.TicketEvent
	notify       chan struct{}
	out          chan model.TicketEvent
	shuttingDown atomic.Bool
	wg           sync.WaitGroup

	enqueued  atomic.Uint64
	processed atomic.Uint64
}

// New creates a Queue with a buffered output channel.
func New(outBuffer int) *Queue {
	if outBuffer <= 0 {
		outBuffer = 64
	}
	return &Queue{
		notify: make(chan struct{}, 1),
		out:    make(chan model.TicketEvent, outBuffer),
	}
}

// Start runs the broker loop until ctx is done.
func (q *Queue) Start(ctx context.Context, highWatermark int) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.broker(ctx, highWatermark)
	}()
}

// Wait blocks until the broker started by Start has returned.
func (q *Queue) Wait() { q.wg.Wait() }

// broker moves backlog items to the output channel.
func (q *Queue) broker(ctx context.Context, highWatermark int) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		q.flushOnce()
		if highWatermark > 0 {
			if sz := q.BacklogSize(); sz > highWatermark {
				obs.Logger.Warn("event_backlog_high", "backlog_size", sz, "high_watermark", highWatermark)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-q.notify:
		case <-ticker.C:
		}
	}
}

// flushOnce drains backlog into the output buffer.
func (q *Queue) flushOnce() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.backlog) > 0 && len(q.out) < cap(q.out) {
		item := q.backlog[0]
		q.backlog = q.backlog[1:]
		q.out <- item
	}
}

// Enqueue appends an event into the backlog and notifies the broker. It
// returns false once intake is closed.
func (q *Queue) Enqueue(ev model.TicketEvent) bool {
	if q.shuttingDown.Load() {
		return false
	}
	q.enqueued.Add(1)
	q.mu.Lock()
	q.backlog = append(q.backlog, ev)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// Out exposes the output channel of events.
func (q *Queue) Out() <-chan model.TicketEvent { return q.out }

// BacklogSize returns the number of enqueued-but-not-yet-output events.
func (q *Queue) BacklogSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog)
}

// QueueDepth returns backlog plus buffered output items.
func (q *Queue) QueueDepth() int {
	q.mu.Lock()
	bl := len(q.backlog)
	q.mu.Unlock()
	return bl + len(q.out)
}

// MarkProcessed increases the processed counter.
func (q *Queue) MarkProcessed() { q.processed.Add(1) }

// Metrics returns counters and sizes for observability.
func (q *Queue) Metrics() (enq, proc uint64, backlog, depth int) {
	enq = q.enqueued.Load()
	proc = q.processed.Load()
	backlog = q.BacklogSize()
	depth = q.QueueDepth()
	return enq, proc, backlog, depth
}

// CloseIntake disallows future enqueues.
func (q *Queue) CloseIntake() { q.shuttingDown.Store(true) }

// IsShuttingDown reports if intake has been closed.
func (q *Queue) IsShuttingDown() bool { return q.shuttingDown.Load() }
