// Package store declares the repository contracts consumed by the purchase
// processor and the HTTP layer, and provides the in-memory and file-backed
// implementations. The Postgres implementation lives in store/postgres.
package store

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/cart-checkout-service/internal/model"
)

// ProductStore reads and mutates catalog entries.
type ProductStore interface {
	Get(ctx context.Context, id string) (model.Product, error)
	List(ctx context.Context, q model.ProductQuery) (model.ProductPage, error)
	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, id string, patch model.ProductPatch) (model.Product, error)
	Delete(ctx context.Context, id string) error
	// DecrementStock subtracts n from the product's stock only if stock >= n,
	// as one indivisible step. ok is false when stock was insufficient; the
	// returned product is the post-decrement state when ok is true.
	DecrementStock(ctx context.Context, id string, n int) (p model.Product, ok bool, err error)
}

// CartStore reads and mutates carts. Lines never share a product.
type CartStore interface {
	Create(ctx context.Context, owner string) (model.Cart, error)
	// Get inside InTx also locks the cart against other transactions until
	// the surrounding transaction ends.
	Get(ctx context.Context, id string) (model.Cart, error)
	AddLine(ctx context.Context, cartID, productID string, quantity int) (model.Cart, error)
	RemoveLine(ctx context.Context, cartID, productID string) (model.Cart, error)
	SetLineQuantity(ctx context.Context, cartID, productID string, quantity int) (model.Cart, error)
	ReplaceLines(ctx context.Context, cartID string, lines []model.CartLine) (model.Cart, error)
	Clear(ctx context.Context, cartID string) (model.Cart, error)
}

// TicketStore is an append-only receipt log.
type TicketStore interface {
	Create(ctx context.Context, amount decimal.Decimal, purchaser string) (model.Ticket, error)
	GetByCode(ctx context.Context, code string) (model.Ticket, error)
}

// Repository bundles the stores of one backend.
type Repository interface {
	Products() ProductStore
	Carts() CartStore
	Tickets() TicketStore
	// InTx runs fn against a repository whose writes commit together when fn
	// returns nil and are discarded otherwise.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error
	Close() error
}
