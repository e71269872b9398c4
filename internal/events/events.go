// Package events publishes ticket events to the configured broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fairyhunter13/cart-checkout-service/internal/model"
	"github.com/fairyhunter13/cart-checkout-service/internal/obs"
)

// TicketIssued is the routing key, message type and log message for ticket events.
const TicketIssued = "ticket.issued"

func encode(ev model.TicketEvent) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("could not marshal ticket event: %w", err)
	}
	return body, nil
}

// LogPublisher writes events to the service log. It is the default broker.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, ev model.TicketEvent) error {
	obs.Logger.Info(TicketIssued,
		"sequence", ev.Sequence,
		"ticket_code", ev.TicketCode,
		"amount", ev.Amount.String(),
		"purchaser", ev.Purchaser,
		"cart_id", ev.CartID,
		"fulfilled_lines", ev.FulfilledLines,
		"failed_lines", ev.FailedLines,
	)
	return nil
}
