package checkout

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/cart-checkout-service/internal/apperr"
	"github.com/fairyhunter13/cart-checkout-service/internal/model"
	"github.com/fairyhunter13/cart-checkout-service/internal/store"
)

// ViewCart prices each line of c at the current catalog price. Lines whose
// product no longer exists are flagged Missing and count zero toward Total.
func ViewCart(ctx context.Context, products store.ProductStore, c model.Cart) (model.CartView, error) {
	v := model.CartView{ID: c.ID, Owner: c.Owner, Lines: make([]model.CartViewLine, 0, len(c.Lines)), Total: decimal.Zero}
	for _, l := range c.Lines {
		line := model.CartViewLine{ProductID: l.ProductID, Quantity: l.Quantity, Price: decimal.Zero, Subtotal: decimal.Zero}
		p, err := products.Get(ctx, l.ProductID)
		switch {
		case apperr.IsNotFound(err):
			line.Missing = true
		case err != nil:
			return model.CartView{}, fmt.Errorf("price cart line %s: %w", l.ProductID, err)
		default:
			line.Title = p.Title
			line.Price = p.Price
			line.Subtotal = p.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
			v.Total = v.Total.Add(line.Subtotal)
		}
		v.Lines = append(v.Lines, line)
	}
	return v, nil
}
