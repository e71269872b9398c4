package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/cart-checkout-service/internal/apperr"
	"github.com/fairyhunter13/cart-checkout-service/internal/model"
)

type carts struct {
	q querier
	// pool is nil when q is already a transaction.
	pool *pgxpool.Pool
	now  func() time.Time
}

// atomically runs fn in a transaction unless one is already open.
func (s carts) atomically(ctx context.Context, fn func(q querier) error) error {
	if s.pool == nil {
		return fn(s.q)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error { return fn(tx) })
}

func (s carts) Create(ctx context.Context, owner string) (model.Cart, error) {
	now := s.now().UTC()
	c := model.Cart{ID: uuid.NewString(), Owner: owner, Lines: []model.CartLine{}, CreatedAt: now, UpdatedAt: now}
	if _, err := s.q.Exec(ctx, `INSERT INTO carts (id, owner, created_at, updated_at) VALUES ($1, $2, $3, $3)`, c.ID, owner, now); err != nil {
		return model.Cart{}, mapErr("create cart", err)
	}
	return c, nil
}

// Get takes a row lock on the cart when called inside a transaction, so two
// purchases of one cart run one after the other.
func (s carts) Get(ctx context.Context, id string) (model.Cart, error) {
	return getCart(ctx, s.q, id, s.pool == nil)
}

func getCart(ctx context.Context, q querier, id string, lock bool) (model.Cart, error) {
	c := model.Cart{ID: id, Lines: []model.CartLine{}}
	query := `SELECT owner, created_at, updated_at FROM carts WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	err := q.QueryRow(ctx, query, id).Scan(&c.Owner, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Cart{}, apperr.NotFound("cart", id)
	}
	if err != nil {
		return model.Cart{}, mapErr("get cart", err)
	}
	rows, err := q.Query(ctx, `SELECT product_id, quantity FROM cart_lines WHERE cart_id = $1 ORDER BY position`, id)
	if err != nil {
		return model.Cart{}, mapErr("get cart lines", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l model.CartLine
		if err := rows.Scan(&l.ProductID, &l.Quantity); err != nil {
			return model.Cart{}, mapErr("get cart lines", err)
		}
		c.Lines = append(c.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return model.Cart{}, mapErr("get cart lines", err)
	}
	return c, nil
}

// touch bumps updated_at and locks the cart row for the rest of the transaction.
func (s carts) touch(ctx context.Context, q querier, cartID string) error {
	tag, err := q.Exec(ctx, `UPDATE carts SET updated_at = $2 WHERE id = $1`, cartID, s.now().UTC())
	if err != nil {
		return mapErr("touch cart", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("cart", cartID)
	}
	return nil
}

func (s carts) mutate(ctx context.Context, cartID string, fn func(q querier) error) (model.Cart, error) {
	var out model.Cart
	err := s.atomically(ctx, func(q querier) error {
		if err := s.touch(ctx, q, cartID); err != nil {
			return err
		}
		if err := fn(q); err != nil {
			return err
		}
		c, err := getCart(ctx, q, cartID, false)
		out = c
		return err
	})
	return out, err
}

func (s carts) AddLine(ctx context.Context, cartID, productID string, quantity int) (model.Cart, error) {
	if err := model.ValidateQuantity(quantity); err != nil {
		return model.Cart{}, err
	}
	if strings.TrimSpace(productID) == "" {
		return model.Cart{}, apperr.Validation("productId", "is required")
	}
	return s.mutate(ctx, cartID, func(q querier) error {
		tag, err := q.Exec(ctx, `
			INSERT INTO cart_lines (cart_id, product_id, quantity, position)
			VALUES ($1, $2, $3, COALESCE((SELECT MAX(position) + 1 FROM cart_lines WHERE cart_id = $1), 0))
			ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity
			WHERE cart_lines.quantity::bigint + EXCLUDED.quantity <= $4`,
			cartID, productID, quantity, model.MaxQuantity)
		if err != nil {
			return mapErr("add cart line", err)
		}
		if tag.RowsAffected() == 0 {
			return apperr.Validation("quantity", "line total must be at most 2147483647")
		}
		return nil
	})
}

func (s carts) RemoveLine(ctx context.Context, cartID, productID string) (model.Cart, error) {
	return s.mutate(ctx, cartID, func(q querier) error {
		tag, err := q.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1 AND product_id = $2`, cartID, productID)
		if err != nil {
			return mapErr("remove cart line", err)
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound("cart line", productID)
		}
		return nil
	})
}

func (s carts) SetLineQuantity(ctx context.Context, cartID, productID string, quantity int) (model.Cart, error) {
	if err := model.ValidateQuantity(quantity); err != nil {
		return model.Cart{}, err
	}
	return s.mutate(ctx, cartID, func(q querier) error {
		tag, err := q.Exec(ctx, `UPDATE cart_lines SET quantity = $3 WHERE cart_id = $1 AND product_id = $2`,
			cartID, productID, quantity)
		if err != nil {
			return mapErr("set cart line quantity", err)
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound("cart line", productID)
		}
		return nil
	})
}

func (s carts) ReplaceLines(ctx context.Context, cartID string, lines []model.CartLine) (model.Cart, error) {
	norm, err := model.NormalizeLines(lines)
	if err != nil {
		return model.Cart{}, err
	}
	return s.mutate(ctx, cartID, func(q querier) error {
		if _, err := q.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, cartID); err != nil {
			return mapErr("replace cart lines", err)
		}
		for i, l := range norm {
			if _, err := q.Exec(ctx,
				`INSERT INTO cart_lines (cart_id, product_id, quantity, position) VALUES ($1, $2, $3, $4)`,
				cartID, l.ProductID, l.Quantity, i); err != nil {
				return mapErr("replace cart lines", err)
			}
		}
		return nil
	})
}

func (s carts) Clear(ctx context.Context, cartID string) (model.Cart, error) {
	return s.mutate(ctx, cartID, func(q querier) error {
		if _, err := q.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, cartID); err != nil {
			return mapErr("clear cart", err)
		}
		return nil
	})
}
