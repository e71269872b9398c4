package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/cart-checkout-service/internal/apperr"
	"github.com/fairyhunter13/cart-checkout-service/internal/model"
)

const maxCodeAttempts = 5

type tickets struct {
	q   querier
	now func() time.Time
}

func (s tickets) Create(ctx context.Context, amount decimal.Decimal, purchaser string) (model.Ticket, error) {
	t, err := model.NewTicket(amount, purchaser, s.now())
	if err != nil {
		return model.Ticket{}, err
	}
	// ON CONFLICT keeps an enclosing transaction usable when a code collides.
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		tag, err := s.q.Exec(ctx, `
			INSERT INTO tickets (id, code, amount, purchaser, purchase_datetime)
			VALUES ($1, $2, $3::numeric, $4, $5)
			ON CONFLICT (code) DO NOTHING`,
			t.ID, t.Code, t.Amount.String(), t.Purchaser, t.PurchaseDatetime)
		if err != nil {
			return model.Ticket{}, mapErr("create ticket", err)
		}
		if tag.RowsAffected() == 1 {
			return t, nil
		}
		t.Code = model.NewTicketCode()
	}
	return model.Ticket{}, apperr.Conflict(fmt.Sprintf("no free ticket code after %d attempts", maxCodeAttempts), nil)
}

func (s tickets) GetByCode(ctx context.Context, code string) (model.Ticket, error) {
	var t model.Ticket
	var amount string
	err := s.q.QueryRow(ctx,
		`SELECT id, code, amount::text, purchaser, purchase_datetime FROM tickets WHERE code = $1`, code).
		Scan(&t.ID, &t.Code, &amount, &t.Purchaser, &t.PurchaseDatetime)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Ticket{}, apperr.NotFound("ticket", code)
	}
	if err != nil {
		return model.Ticket{}, mapErr("get ticket", err)
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return model.Ticket{}, fmt.Errorf("decode ticket amount: %w", err)
	}
	t.PurchaseDatetime = t.PurchaseDatetime.UTC()
	return t, nil
}
