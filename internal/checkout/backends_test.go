package checkout

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/cart-checkout-service/internal/store"
	"github.com/fairyhunter13/cart-checkout-service/internal/store/postgres"
)

// pgSchema keeps this package's tables apart from other packages' tests
// sharing TEST_DATABASE_URL.
const pgSchema = "checkout_test"

type backend struct {
	name string
	// open returns an empty repository.
	open func(t *testing.T) store.Repository
}

// backends lists every storage backend; postgres only when TEST_DATABASE_URL is set.
func backends() []backend {
	list := []backend{
		{name: "memory", open: func(*testing.T) store.Repository { return store.New() }},
		{name: "file", open: func(t *testing.T) store.Repository {
			repo, err := store.OpenFile(t.TempDir())
			require.NoError(t, err)
			return repo
		}},
	}
	if os.Getenv("TEST_DATABASE_URL") != "" {
		list = append(list, backend{name: "postgres", open: openPostgres})
	}
	return list
}

// eachBackend runs fn as a subtest against a fresh repository of every backend.
func eachBackend(t *testing.T, fn func(t *testing.T, repo store.Repository)) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			fn(t, b.open(t))
		})
	}
}

var pg struct {
	once  sync.Once
	admin *pgxpool.Pool
	db    *postgres.DB
	err   error
}

func withSearchPath(dsn, schema string) string {
	if !strings.Contains(dsn, "://") {
		return dsn + " search_path=" + schema
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&search_path=" + schema
	}
	return dsn + "?search_path=" + schema
}

func openPostgres(t *testing.T) store.Repository {
	t.Helper()
	ctx := context.Background()
	pg.once.Do(func() {
		dsn := withSearchPath(os.Getenv("TEST_DATABASE_URL"), pgSchema)
		if pg.admin, pg.err = pgxpool.New(ctx, dsn); pg.err != nil {
			return
		}
		if _, pg.err = pg.admin.Exec(ctx, `CREATE SCHEMA IF NOT EXISTS `+pgSchema); pg.err != nil {
			return
		}
		if pg.db, pg.err = postgres.Open(ctx, dsn); pg.err != nil {
			return
		}
		pg.err = pg.db.Migrate(ctx)
	})
	require.NoError(t, pg.err)
	_, err := pg.admin.Exec(ctx, `TRUNCATE products, carts, cart_lines, tickets`)
	require.NoError(t, err)
	return pg.db
}
