package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/goleak"

	"github.com/fairyhunter13/cart-checkout-service/internal/config"
	"github.com/fairyhunter13/cart-checkout-service/internal/model"
	"github.com/fairyhunter13/cart-checkout-service/internal/obs"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordingPublisher collects delivered events; failEvery > 0 fails every
// n-th call.
type recordingPublisher struct {
	mu        sync.Mutex
	events    []model.TicketEvent
	calls     int
	failEvery int
	delay     time.Duration
}

func (p *recordingPublisher) Publish(ctx context.Context, ev model.TicketEvent) error {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failEvery > 0 && p.calls%p.failEvery == 0 {
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) snapshot() []model.TicketEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.TicketEvent(nil), p.events...)
}

func event(code string) model.TicketEvent {
	return model.TicketEvent{TicketCode: code, Amount: decimal.NewFromInt(10), Purchaser: "ana@example.com"}
}

func TestQueueNonBlockingEnqueue(t *testing.T) {
	q := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx, 0)
	defer func() {
		cancel()
		q.Wait()
	}()
	for i := 0; i < 1000; i++ {
		if ok := q.Enqueue(event("TKT-X")); !ok {
			t.Fatalf("enqueue failed at %d", i)
		}
	}
	if q.BacklogSize() == 0 {
		t.Fatalf("expected backlog > 0")
	}
}

func TestQueueShutdownIntake(t *testing.T) {
	q := New(1)
	q.CloseIntake()
	if !q.IsShuttingDown() {
		t.Fatalf("expected shutting down true")
	}
	if ok := q.Enqueue(event("TKT-X")); ok {
		t.Fatalf("expected enqueue false when shutting down")
	}
}

func TestManagerDrainPublishesInSequence(t *testing.T) {
	cfg := config.Load()
	cfg.WorkerMin, cfg.WorkerMax, cfg.InitialWorkerCount = 1, 1, 1
	obs.InitLogger()
	pub := &recordingPublisher{}
	mgr := NewManager(cfg, New(16), pub, nil)
	mgr.Start(context.Background())
	defer mgr.Stop()

	for i := 0; i < 100; i++ {
		if !mgr.Enqueue(event("TKT-A")) {
			t.Fatalf("enqueue rejected at %d", i)
		}
	}
	ctxDrain, cancelDrain := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelDrain()
	if ok := mgr.DrainUntil(ctxDrain); !ok {
		t.Fatalf("expected drain true")
	}
	got := pub.snapshot()
	if len(got) != 100 {
		t.Fatalf("published %d events, want 100", len(got))
	}
	for i, ev := range got {
		if ev.Sequence != uint64(i+1) {
			t.Fatalf("event %d has sequence %d", i, ev.Sequence)
		}
	}
}

func TestManagerPublishFailuresAreCounted(t *testing.T) {
	cfg := config.Load()
	obs.InitLogger()
	metrics := obs.NewMetrics(nil)
	pub := &recordingPublisher{failEvery: 2}
	mgr := NewManager(cfg, New(4), pub, metrics)
	mgr.Start(context.Background())
	defer mgr.Stop()

	for i := 0; i < 10; i++ {
		_ = mgr.Enqueue(event("TKT-B"))
	}
	ctxDrain, cancelDrain := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelDrain()
	if !mgr.DrainUntil(ctxDrain) {
		t.Fatalf("drain timeout")
	}
	if n := len(pub.snapshot()); n != 5 {
		t.Fatalf("published %d, want 5", n)
	}
	enq, proc, _, _ := mgr.QueueMetrics()
	if enq != 10 || proc != 10 {
		t.Fatalf("enqueued=%d processed=%d", enq, proc)
	}
}

func TestManagerRejectsAfterCloseIntake(t *testing.T) {
	cfg := config.Load()
	mgr := NewManager(cfg, New(4), &recordingPublisher{}, nil)
	mgr.Start(context.Background())
	defer mgr.Stop()
	mgr.CloseIntake()
	if mgr.Enqueue(event("TKT-C")) {
		t.Fatalf("expected enqueue to be rejected")
	}
	if !mgr.IsShuttingDown() {
		t.Fatalf("expected shutting down")
	}
}
