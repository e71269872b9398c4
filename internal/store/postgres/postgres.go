// Package postgres implements store.Repository on PostgreSQL using pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/cart-checkout-service/internal/apperr"
	"github.com/fairyhunter13/cart-checkout-service/internal/store"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type DB struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Open connects a pool to connString and verifies it with a ping.
func Open(ctx context.Context, connString string) (*DB, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	config.MaxConns = 25
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{pool: pool, now: time.Now}, nil
}

func (db *DB) Close() error {
	db.pool.Close()
	return nil
}

func (db *DB) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			code TEXT NOT NULL,
			price NUMERIC NOT NULL CHECK (price > 0),
			status BOOLEAN NOT NULL DEFAULT true,
			stock INTEGER NOT NULL CHECK (stock >= 0),
			category TEXT NOT NULL,
			category_key TEXT NOT NULL,
			thumbnails TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_products_code ON products (lower(code))`,
		`CREATE INDEX IF NOT EXISTS idx_products_category_key ON products (category_key)`,

		`CREATE TABLE IF NOT EXISTS carts (
			id TEXT PRIMARY KEY,
			owner TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`,
		`ALTER TABLE carts ADD COLUMN IF NOT EXISTS owner TEXT NOT NULL DEFAULT ''`,
		`CREATE TABLE IF NOT EXISTS cart_lines (
			cart_id TEXT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
			product_id TEXT NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			position INTEGER NOT NULL,
			PRIMARY KEY (cart_id, product_id)
		)`,

		`CREATE TABLE IF NOT EXISTS tickets (
			id TEXT PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			amount NUMERIC NOT NULL CHECK (amount > 0),
			purchaser TEXT NOT NULL,
			purchase_datetime TIMESTAMP WITH TIME ZONE NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_purchaser ON tickets (purchaser)`,
	}
	for _, migration := range migrations {
		if _, err := db.pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}

func (db *DB) Products() store.ProductStore { return products{q: db.pool, now: db.now} }
func (db *DB) Carts() store.CartStore       { return carts{q: db.pool, pool: db.pool, now: db.now} }
func (db *DB) Tickets() store.TicketStore   { return tickets{q: db.pool, now: db.now} }

// InTx runs fn inside one database transaction.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Repository) error) error {
	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return mapErr("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(ctx, txRepo{tx: tx, now: db.now}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapErr("commit transaction", err)
	}
	return nil
}

type txRepo struct {
	tx  pgx.Tx
	now func() time.Time
}

func (r txRepo) Products() store.ProductStore { return products{q: r.tx, now: r.now} }
func (r txRepo) Carts() store.CartStore       { return carts{q: r.tx, now: r.now} }
func (r txRepo) Tickets() store.TicketStore   { return tickets{q: r.tx, now: r.now} }
func (r txRepo) Close() error                 { return nil }

func (r txRepo) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Repository) error) error {
	return fn(ctx, r)
}

// mapErr translates driver errors into the apperr taxonomy.
func mapErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return apperr.Conflict(op+": concurrent update", err)
		case "23505":
			return apperr.Conflict(op+": duplicate key", err)
		case "23514", "22003":
			return apperr.Validation("", op+": "+pgErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
