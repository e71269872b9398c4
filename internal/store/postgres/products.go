package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/cart-checkout-service/internal/apperr"
	"github.com/fairyhunter13/cart-checkout-service/internal/model"
)

const productColumns = `id, title, description, code, price::text, status, stock, category, thumbnails, created_at, updated_at`

type products struct {
	q   querier
	now func() time.Time
}

func scanProduct(row pgx.Row) (model.Product, error) {
	var p model.Product
	var price string
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Code, &price, &p.Status, &p.Stock,
		&p.Category, &p.Thumbnails, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return model.Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return model.Product{}, fmt.Errorf("decode price of %s: %w", p.ID, err)
	}
	p.Price = d
	return p, nil
}

func (s products) Get(ctx context.Context, id string) (model.Product, error) {
	p, err := scanProduct(s.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Product{}, apperr.NotFound("product", id)
	}
	if err != nil {
		return model.Product{}, mapErr("get product", err)
	}
	return p, nil
}

func (s products) List(ctx context.Context, q model.ProductQuery) (model.ProductPage, error) {
	q, err := q.Normalize()
	if err != nil {
		return model.ProductPage{}, err
	}
	where, args := listFilter(q)

	var total int
	if err := s.q.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return model.ProductPage{}, mapErr("count products", err)
	}

	query := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY ` + orderBy(q.Sort) +
		fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, q.Limit, (q.Page-1)*q.Limit)
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return model.ProductPage{}, mapErr("list products", err)
	}
	defer rows.Close()

	docs := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return model.ProductPage{}, mapErr("list products", err)
		}
		docs = append(docs, p)
	}
	if err := rows.Err(); err != nil {
		return model.ProductPage{}, mapErr("list products", err)
	}

	return model.PageOf(docs, total, q.Page, q.Limit), nil
}

func listFilter(q model.ProductQuery) (string, []any) {
	var conds []string
	var args []any
	if q.Category != "" {
		args = append(args, escapeLike(q.Category))
		conds = append(conds, fmt.Sprintf(`category_key LIKE '%%' || $%d || '%%'`, len(args)))
	}
	if q.InStock != nil {
		if *q.InStock {
			conds = append(conds, `stock > 0`)
		} else {
			conds = append(conds, `stock = 0`)
		}
	}
	if len(conds) == 0 {
		return "", nil
	}
	return ` WHERE ` + strings.Join(conds, ` AND `), args
}

func orderBy(sort string) string {
	switch sort {
	case model.SortPriceAsc:
		return `price ASC, created_at, id`
	case model.SortPriceDesc:
		return `price DESC, created_at, id`
	case model.SortTitle:
		return `lower(title), created_at, id`
	}
	return `created_at, id`
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s products) Create(ctx context.Context, p model.Product) (model.Product, error) {
	if err := model.ValidateNewProduct(p); err != nil {
		return model.Product{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Thumbnails == nil {
		p.Thumbnails = []string{}
	}
	now := s.now().UTC()
	row := s.q.QueryRow(ctx, `
		INSERT INTO products (id, title, description, code, price, status, stock, category, category_key, thumbnails, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11, $11)
		RETURNING `+productColumns,
		p.ID, p.Title, p.Description, p.Code, p.Price.String(), p.Status, p.Stock,
		p.Category, model.FoldText(p.Category), p.Thumbnails, now)
	created, err := scanProduct(row)
	if err != nil {
		return model.Product{}, mapErr("create product", err)
	}
	return created, nil
}

// Update applies only the fields present in patch, in a single statement.
func (s products) Update(ctx context.Context, id string, patch model.ProductPatch) (model.Product, error) {
	if _, err := model.ApplyPatch(model.Product{}, patch); err != nil {
		return model.Product{}, err
	}
	var price, categoryKey *string
	if patch.Price != nil {
		v := patch.Price.String()
		price = &v
	}
	if patch.Category != nil {
		v := model.FoldText(*patch.Category)
		categoryKey = &v
	}
	var thumbnails []string
	if patch.Thumbnails != nil {
		thumbnails = append([]string{}, (*patch.Thumbnails)...)
	}
	row := s.q.QueryRow(ctx, `
		UPDATE products SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			code = COALESCE($4, code),
			price = COALESCE($5::numeric, price),
			status = COALESCE($6, status),
			stock = COALESCE($7, stock),
			category = COALESCE($8, category),
			category_key = COALESCE($9, category_key),
			thumbnails = COALESCE($10::text[], thumbnails),
			updated_at = $11
		WHERE id = $1
		RETURNING `+productColumns,
		id, patch.Title, patch.Description, patch.Code, price, patch.Status, patch.Stock,
		patch.Category, categoryKey, thumbnails, s.now().UTC())
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Product{}, apperr.NotFound("product", id)
	}
	if err != nil {
		return model.Product{}, mapErr("update product", err)
	}
	return p, nil
}

func (s products) Delete(ctx context.Context, id string) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return mapErr("delete product", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("product", id)
	}
	return nil
}

func (s products) DecrementStock(ctx context.Context, id string, n int) (model.Product, bool, error) {
	if err := model.ValidateQuantity(n); err != nil {
		return model.Product{}, false, err
	}
	row := s.q.QueryRow(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = $3
		WHERE id = $1 AND stock >= $2
		RETURNING `+productColumns, id, n, s.now().UTC())
	p, err := scanProduct(row)
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Product{}, false, mapErr("decrement stock", err)
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return model.Product{}, false, err
	}
	return current, false, nil
}
