package queue

import (
	"context"
	"sync"
	"time"

	"github.com/fairyhunter13/cart-checkout-service/internal/config"
	"github.com/fairyhunter13/cart-checkout-service/internal/model"
	"github.com/fairyhunter13/cart-checkout-service/internal/obs"
)

// publishTimeout bounds a single delivery attempt.
const publishTimeout = 5 * time.Second

// Publisher delivers one ticket event to a broker.
type Publisher interface {
	Publish(ctx context.Context, ev model.TicketEvent) error
}

// Manager coordinates workers publishing queued events and scaling.
type Manager struct {
	cfg     config.Config
	q       *Queue
	pub     Publisher
	metrics *obs.Metrics
	seq     Sequencer
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu            sync.Mutex
	workerCancels []context.CancelFunc
}

// NewManager constructs a Manager with the given config, queue and publisher.
// metrics may be nil.
func NewManager(cfg config.Config, q *Queue, pub Publisher, metrics *obs.Metrics) *Manager {
	return &Manager{cfg: cfg, q: q, pub: pub, metrics: metrics}
}

// Start begins processing and autoscaling in the background.
func (m *Manager) Start(parent context.Context) {
	m.ctx, m.cancel = context.WithCancel(parent)
	m.q.Start(m.ctx, m.cfg.QueueHighWatermark)
	m.addWorkers(m.cfg.InitialWorkerCount)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.scaler()
	}()
}

// Stop cancels background routines and waits for them to return.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Lock()
	for _, c := range m.workerCancels {
		c()
	}
	m.workerCancels = nil
	m.mu.Unlock()
	m.wg.Wait()
	m.q.Wait()
}

// scaler adjusts worker count based on backlog and configuration.
func (m *Manager) scaler() {
	t := time.NewTicker(m.cfg.ScaleInterval)
	defer t.Stop()
	idleTicks := 0
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-t.C:
			backlog := m.q.BacklogSize()
			wc := m.WorkerCount()
			if backlog > wc*m.cfg.ScaleUpBacklogPerWorker && wc < m.cfg.WorkerMax {
				m.addWorkers(1)
				idleTicks = 0
				continue
			}
			if backlog == 0 {
				idleTicks++
				if idleTicks >= m.cfg.ScaleDownIdleTicks && wc > m.cfg.WorkerMin {
					m.removeWorkers(1)
					idleTicks = 0
				}
			} else {
				idleTicks = 0
			}
		}
	}
}

// addWorkers spawns n workers.
func (m *Manager) addWorkers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		wctx, cancel := context.WithCancel(m.ctx)
		m.workerCancels = append(m.workerCancels, cancel)
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.worker(wctx)
		}()
	}
	obs.Logger.Info("workers_scaled", "worker_count", len(m.workerCancels))
}

// removeWorkers stops up to n workers.
func (m *Manager) removeWorkers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > len(m.workerCancels) {
		n = len(m.workerCancels)
	}
	for i := 0; i < n; i++ {
		c := m.workerCancels[len(m.workerCancels)-1]
		m.workerCancels = m.workerCancels[:len(m.workerCancels)-1]
		c()
	}
	obs.Logger.Info("workers_scaled", "worker_count", len(m.workerCancels))
}

// worker drains events from the queue and publishes them. Failed deliveries
// are logged and counted; the event is not retried.
func (m *Manager) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-m.q.Out():
			m.publish(ctx, ev)
			m.q.MarkProcessed()
		}
	}
}

func (m *Manager) publish(ctx context.Context, ev model.TicketEvent) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	err := m.pub.Publish(pctx, ev)
	m.metrics.ObservePublish(err)
	if err != nil {
		obs.Logger.Error("event_publish_failed", "sequence", ev.Sequence, "ticket_code", ev.TicketCode, "error", err.Error())
		return
	}
	obs.Logger.Debug("event_published", "sequence", ev.Sequence, "ticket_code", ev.TicketCode)
}

// Enqueue stamps the next sequence number and queues ev. It reports false
// when intake is closed.
func (m *Manager) Enqueue(ev model.TicketEvent) bool {
	if m.q.IsShuttingDown() {
		return false
	}
	ev.Sequence = m.seq.Next()
	return m.q.Enqueue(ev)
}

// BacklogSize returns pending items in the queue.
func (m *Manager) BacklogSize() int { return m.q.BacklogSize() }

// QueueDepth returns backlog plus buffered output items.
func (m *Manager) QueueDepth() int { return m.q.QueueDepth() }

// WorkerCount returns the current number of workers.
func (m *Manager) WorkerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workerCancels)
}

// IsShuttingDown reports whether new enqueues are rejected.
func (m *Manager) IsShuttingDown() bool { return m.q.IsShuttingDown() }

// CloseIntake disallows future enqueues.
func (m *Manager) CloseIntake() { m.q.CloseIntake() }

// QueueMetrics exposes the underlying queue metrics.
func (m *Manager) QueueMetrics() (enq, proc uint64, backlog, depth int) {
	return m.q.Metrics()
}

// DrainUntil blocks until the queue is fully drained or context is done.
func (m *Manager) DrainUntil(ctx context.Context) bool {
	for {
		enq, proc, backlog, depth := m.q.Metrics()
		if backlog == 0 && depth == 0 && enq == proc {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(50 * time.Millisecond):
		}
	}
}
