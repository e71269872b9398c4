// Package checkout turns a cart into a settled purchase: per-line
// all-or-nothing fulfillment against current stock, a ticket for what was
// bought, and a cart left holding only what was not.
package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/cart-checkout-service/internal/apperr"
	"github.com/fairyhunter13/cart-checkout-service/internal/model"
	"github.com/fairyhunter13/cart-checkout-service/internal/obs"
	"github.com/fairyhunter13/cart-checkout-service/internal/store"
)

// EventSink accepts ticket events after a purchase commits. Enqueue must not
// block; false means the event was dropped.
type EventSink interface {
	Enqueue(ev model.TicketEvent) bool
}

// Processor is safe for concurrent use; all shared state lives in the repository.
type Processor struct {
	repo    store.Repository
	events  EventSink
	metrics *obs.Metrics
}

type Option func(*Processor)

func WithEvents(sink EventSink) Option { return func(p *Processor) { p.events = sink } }

func WithMetrics(m *obs.Metrics) Option { return func(p *Processor) { p.metrics = m } }

func NewProcessor(repo store.Repository, opts ...Option) *Processor {
	p := &Processor{repo: repo}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessPurchase buys every line of cartID that current stock can cover in
// full, in stored order.
//
// Lines whose product is missing or short on stock are returned in
// FailedLines rather than as errors. When at least one line is fulfilled a
// ticket is issued for their total and the cart is rewritten to the failed
// lines; otherwise the cart is left as it was. Stock, ticket and cart writes
// commit together. Cancelling ctx after the call has started has no effect.
func (p *Processor) ProcessPurchase(ctx context.Context, cartID, purchaser string) (model.PurchaseResult, error) {
	purchaser = strings.TrimSpace(purchaser)
	if purchaser == "" {
		return model.PurchaseResult{}, apperr.Validation("purchaser", "is required")
	}
	if err := ctx.Err(); err != nil {
		return model.PurchaseResult{}, err
	}
	ctx = context.WithoutCancel(ctx)

	var (
		result    model.PurchaseResult
		fulfilled int
	)
	err := p.repo.InTx(ctx, func(ctx context.Context, tx store.Repository) error {
		var err error
		result, fulfilled, err = settle(ctx, tx, cartID, purchaser)
		return err
	})
	if err != nil {
		p.metrics.ObservePurchase(obs.OutcomeError, 0, 0)
		obs.Logger.Warn("purchase_error", "cart_id", cartID, "purchaser", purchaser, "error", err.Error())
		return model.PurchaseResult{}, err
	}

	if !result.Success {
		p.metrics.ObservePurchase(obs.OutcomeFailed, 0, len(result.FailedLines))
		obs.Logger.Info("purchase_unfulfilled", "cart_id", cartID, "purchaser", purchaser,
			"failed_lines", len(result.FailedLines))
		return result, nil
	}

	p.metrics.ObservePurchase(obs.OutcomeSuccess, fulfilled, len(result.FailedLines))
	obs.Logger.Info("purchase_completed", "cart_id", cartID, "purchaser", purchaser,
		"ticket_code", result.Ticket.Code, "amount", result.Ticket.Amount.String(),
		"fulfilled_lines", fulfilled, "failed_lines", len(result.FailedLines))
	p.emit(cartID, *result.Ticket, fulfilled, len(result.FailedLines))
	return result, nil
}

// settle runs the purchase algorithm against tx.
func settle(ctx context.Context, tx store.Repository, cartID, purchaser string) (model.PurchaseResult, int, error) {
	cart, err := tx.Carts().Get(ctx, cartID)
	if err != nil {
		return model.PurchaseResult{}, 0, fmt.Errorf("load cart: %w", err)
	}
	if len(cart.Lines) == 0 {
		return model.PurchaseResult{}, 0, apperr.Validation("cart", "has no products to purchase")
	}

	total := decimal.Zero
	failed := []model.CartLine{}
	fulfilled := 0
	for _, line := range cart.Lines {
		product, ok, err := tx.Products().DecrementStock(ctx, line.ProductID, line.Quantity)
		switch {
		case apperr.IsNotFound(err):
			failed = append(failed, line)
			continue
		case err != nil:
			return model.PurchaseResult{}, 0, fmt.Errorf("decrement stock of %s: %w", line.ProductID, err)
		case !ok:
			failed = append(failed, line)
			continue
		}
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		fulfilled++
	}

	if fulfilled == 0 {
		return model.PurchaseResult{Success: false, FailedLines: failed}, 0, nil
	}

	ticket, err := tx.Tickets().Create(ctx, total, purchaser)
	if err != nil {
		return model.PurchaseResult{}, 0, fmt.Errorf("create ticket: %w", err)
	}
	// Replacing rather than removing keeps the rewrite idempotent.
	if _, err := tx.Carts().ReplaceLines(ctx, cartID, failed); err != nil {
		return model.PurchaseResult{}, 0, fmt.Errorf("rewrite cart: %w", err)
	}
	return model.PurchaseResult{Success: true, Ticket: &ticket, FailedLines: failed}, fulfilled, nil
}

func (p *Processor) emit(cartID string, t model.Ticket, fulfilled, failed int) {
	if p.events == nil {
		return
	}
	ok := p.events.Enqueue(model.TicketEvent{
		TicketCode:     t.Code,
		Amount:         t.Amount,
		Purchaser:      t.Purchaser,
		CartID:         cartID,
		PurchasedAt:    t.PurchaseDatetime,
		FulfilledLines: fulfilled,
		FailedLines:    failed,
	})
	if !ok {
		obs.Logger.Warn("ticket_event_dropped", "ticket_code", t.Code, "cart_id", cartID)
	}
}
