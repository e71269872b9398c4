package httpapi

import (
	"sync/atomic"
	"time"

	"github.com/fairyhunter13/cart-checkout-service/internal/auth"
	"github.com/fairyhunter13/cart-checkout-service/internal/checkout"
	"github.com/fairyhunter13/cart-checkout-service/internal/config"
	"github.com/fairyhunter13/cart-checkout-service/internal/idempotency"
	"github.com/fairyhunter13/cart-checkout-service/internal/obs"
	"github.com/fairyhunter13/cart-checkout-service/internal/queue"
	"github.com/fairyhunter13/cart-checkout-service/internal/store"
)

type App struct {
	Cfg       config.Config
	Repo      store.Repository
	Processor *checkout.Processor
	Manager   *queue.Manager
	Idem      idempotency.Store
	Metrics   *obs.Metrics
	Tokens    *auth.Tokens
	Policy    auth.Policy
	closing   atomic.Bool
	started   time.Time
}

// NewApp wires the processor to repo, publishing ticket events through m.
// m, idem and metrics may be nil.
func NewApp(cfg config.Config, repo store.Repository, m *queue.Manager, idem idempotency.Store, metrics *obs.Metrics) *App {
	opts := []checkout.Option{checkout.WithMetrics(metrics)}
	if m != nil {
		opts = append(opts, checkout.WithEvents(m))
	}
	return &App{
		Cfg:       cfg,
		Repo:      repo,
		Processor: checkout.NewProcessor(repo, opts...),
		Manager:   m,
		Idem:      idem,
		Metrics:   metrics,
		Tokens:    auth.NewTokens(cfg.JWTSecret),
		Policy:    auth.Policy{AllowAdminPurchase: cfg.AllowAdminPurchase},
		started:   time.Now(),
	}
}

// StartShutdown rejects new purchases and closes event intake.
func (a *App) StartShutdown() {
	a.closing.Store(true)
	if a.Manager != nil {
		a.Manager.CloseIntake()
	}
}
