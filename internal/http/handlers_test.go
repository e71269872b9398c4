package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/cart-checkout-service/internal/auth"
	"github.com/fairyhunter13/cart-checkout-service/internal/config"
	"github.com/fairyhunter13/cart-checkout-service/internal/events"
	"github.com/fairyhunter13/cart-checkout-service/internal/idempotency"
	"github.com/fairyhunter13/cart-checkout-service/internal/model"
	"github.com/fairyhunter13/cart-checkout-service/internal/obs"
	"github.com/fairyhunter13/cart-checkout-service/internal/queue"
	"github.com/fairyhunter13/cart-checkout-service/internal/store"
)

const testSecret = "test-secret"

func setupAppWith(t *testing.T, mutate func(*config.Config)) (*App, *store.Memory, http.Handler) {
	t.Helper()
	cfg := config.Load()
	cfg.JWTSecret = testSecret
	cfg.StorageBackend = config.BackendMemory
	if mutate != nil {
		mutate(&cfg)
	}
	obs.InitLogger()
	repo := store.New()
	mgr := queue.NewManager(cfg, queue.New(128), events.LogPublisher{}, nil)
	mgr.Start(context.Background())
	t.Cleanup(mgr.Stop)
	app := NewApp(cfg, repo, mgr, idempotency.NewMemory(time.Hour), obs.NewMetrics(mgr.QueueDepth))
	return app, repo, NewRouter(app)
}

func setupApp(t *testing.T) (*App, *store.Memory, http.Handler) {
	return setupAppWith(t, nil)
}

func token(t *testing.T, app *App, email, role, cartID string) string {
	t.Helper()
	tok, err := app.Tokens.Issue(auth.Identity{Email: email, Role: role, CartID: cartID}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func do(mux http.Handler, method, path, tok, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func seedProduct(t *testing.T, repo *store.Memory, id, price string, stock int, category string) {
	t.Helper()
	_, err := repo.Products().Create(context.Background(), model.Product{
		ID: id, Title: "Product " + id, Code: "SKU-" + id, Category: category,
		Price: decimal.RequireFromString(price), Stock: stock, Status: true,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func newCart(t *testing.T, mux http.Handler, tok, body string) string {
	t.Helper()
	rr := do(mux, http.MethodPost, "/carts", tok, body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create cart: %d %s", rr.Code, rr.Body.String())
	}
	return decode[model.CartView](t, rr).ID
}

func TestOpenAPIServed(t *testing.T) {
	_, _, mux := setupApp(t)
	rr := do(mux, http.MethodGet, "/openapi.yaml", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct == "" {
		t.Fatalf("expected content-type set")
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("openapi:")) || !bytes.Contains(rr.Body.Bytes(), []byte("/carts/{cartId}/purchase")) {
		t.Fatalf("expected openapi content")
	}
}

func TestDocsServed(t *testing.T) {
	_, _, mux := setupApp(t)
	rr := do(mux, http.MethodGet, "/docs", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "swagger-ui") {
		t.Fatalf("expected swagger-ui in docs body")
	}
}

func TestHealthzOK(t *testing.T) {
	_, _, mux := setupApp(t)
	rr := do(mux, http.MethodGet, "/healthz", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	_, _, mux := setupApp(t)
	rr := do(mux, http.MethodGet, "/nope", "", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if decode[jsonError](t, rr).Error != "not_found" {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}

func TestListProductsFiltersAndPages(t *testing.T) {
	_, repo, mux := setupApp(t)
	seedProduct(t, repo, "a", "30", 1, "Electrónica")
	seedProduct(t, repo, "b", "10", 0, "electronica")
	seedProduct(t, repo, "c", "20", 5, "ELECTRONICA portátil")
	seedProduct(t, repo, "d", "5", 5, "hogar")

	rr := do(mux, http.MethodGet, "/products?category=electronica&stock=true&sort=price_asc&limit=1", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	pg := decode[model.ProductPage](t, rr)
	if pg.TotalDocs != 2 || pg.TotalPages != 2 || !pg.HasNextPage || pg.NextPage == nil || *pg.NextPage != 2 {
		t.Fatalf("unexpected page: %+v", pg)
	}
	if len(pg.Docs) != 1 || pg.Docs[0].ID != "c" {
		t.Fatalf("expected cheapest in-stock electronics first, got %+v", pg.Docs)
	}

	for _, q := range []string{"?stock=maybe", "?limit=0", "?limit=101", "?page=0", "?sort=random", "?page=x"} {
		if rr := do(mux, http.MethodGet, "/products"+q, "", ""); rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", q, rr.Code)
		}
	}
}

func TestProductManagementRequiresAdmin(t *testing.T) {
	app, _, mux := setupApp(t)
	body := `{"title":"Mouse","code":"M-1","price":"12.50","stock":3,"category":"peripherals"}`

	if rr := do(mux, http.MethodPost, "/products", "", body); rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", rr.Code)
	}
	user := token(t, app, "ana@example.com", auth.RoleUser, "")
	if rr := do(mux, http.MethodPost, "/products", user, body); rr.Code != http.StatusForbidden {
		t.Fatalf("user: expected 403, got %d", rr.Code)
	}
	admin := token(t, app, "root@example.com", auth.RoleAdmin, "")
	rr := do(mux, http.MethodPost, "/products", admin, body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("admin: expected 201, got %d %s", rr.Code, rr.Body.String())
	}
	p := decode[model.Product](t, rr)
	if !p.Status || p.ID == "" {
		t.Fatalf("expected active product with id, got %+v", p)
	}

	if rr := do(mux, http.MethodPost, "/products", admin, strings.Replace(body, "M-1", "m-1", 1)); rr.Code != http.StatusConflict {
		t.Fatalf("duplicate code: expected 409, got %d", rr.Code)
	}
	if rr := do(mux, http.MethodPost, "/products", admin, `{"title":"x","code":"X","price":"0","category":"c"}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("zero price: expected 400, got %d", rr.Code)
	}

	rr = do(mux, http.MethodPut, "/products/"+p.ID, admin, `{"stock":9}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	up := decode[model.Product](t, rr)
	if up.Stock != 9 || !up.Price.Equal(p.Price) || up.Title != p.Title {
		t.Fatalf("stock-only update disturbed other fields: %+v", up)
	}
	if rr := do(mux, http.MethodPut, "/products/"+p.ID, admin, `{}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("empty patch: expected 400, got %d", rr.Code)
	}
	if rr := do(mux, http.MethodPut, "/products/"+p.ID, admin, `{"id":"other"}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: expected 400, got %d", rr.Code)
	}

	if rr := do(mux, http.MethodDelete, "/products/"+p.ID, admin, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rr.Code)
	}
	if rr := do(mux, http.MethodGet, "/products/"+p.ID, "", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("deleted: expected 404, got %d", rr.Code)
	}
}

func TestCartLinesAndView(t *testing.T) {
	app, repo, mux := setupApp(t)
	seedProduct(t, repo, "A", "2.50", 10, "general")
	seedProduct(t, repo, "B", "1.00", 10, "general")
	user := token(t, app, "ana@example.com", auth.RoleUser, "")
	cartID := newCart(t, mux, user, "")

	if rr := do(mux, http.MethodPost, "/carts/"+cartID+"/products/A", user, ""); rr.Code != http.StatusOK {
		t.Fatalf("add default: expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	rr := do(mux, http.MethodPost, "/carts/"+cartID+"/products/A", user, `{"quantity":2}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("add qty: expected 200, got %d", rr.Code)
	}
	v := decode[model.CartView](t, rr)
	if len(v.Lines) != 1 || v.Lines[0].Quantity != 3 || !v.Total.Equal(decimal.RequireFromString("7.5")) {
		t.Fatalf("expected merged line of 3 totalling 7.5, got %+v", v)
	}

	if rr := do(mux, http.MethodPost, "/carts/"+cartID+"/products/A", user, `{"quantity":0}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("zero quantity: expected 400, got %d", rr.Code)
	}
	if rr := do(mux, http.MethodPost, "/carts/"+cartID+"/products/ghost", user, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown product: expected 404, got %d", rr.Code)
	}
	if rr := do(mux, http.MethodPut, "/carts/"+cartID+"/products/A", user, `{"quantity":5}`); rr.Code != http.StatusOK {
		t.Fatalf("set quantity: expected 200, got %d", rr.Code)
	}
	if rr := do(mux, http.MethodPut, "/carts/"+cartID+"/products/B", user, `{"quantity":5}`); rr.Code != http.StatusNotFound {
		t.Fatalf("set absent line: expected 404, got %d", rr.Code)
	}
	if rr := do(mux, http.MethodDelete, "/carts/"+cartID+"/products/B", user, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("remove absent line: expected 404, got %d", rr.Code)
	}

	rr = do(mux, http.MethodPut, "/carts/"+cartID, user, `{"products":[{"productId":"B","quantity":1},{"productId":"A","quantity":1},{"productId":"B","quantity":2}]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("replace: expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	v = decode[model.CartView](t, rr)
	if len(v.Lines) != 2 || v.Lines[0].ProductID != "B" || v.Lines[0].Quantity != 3 {
		t.Fatalf("expected merged duplicates in first position, got %+v", v.Lines)
	}

	rr = do(mux, http.MethodDelete, "/carts/"+cartID, user, "")
	if rr.Code != http.StatusOK || len(decode[model.CartView](t, rr).Lines) != 0 {
		t.Fatalf("clear: got %d %s", rr.Code, rr.Body.String())
	}
	if rr := do(mux, http.MethodGet, "/carts/missing", user, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("missing cart: expected 404, got %d", rr.Code)
	}
	if rr := do(mux, http.MethodGet, "/carts/"+cartID, "", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous cart read: expected 401, got %d", rr.Code)
	}
}

func TestCartOwnershipClaim(t *testing.T) {
	app, _, mux := setupApp(t)
	owner := token(t, app, "ana@example.com", auth.RoleUser, "")
	cartID := newCart(t, mux, owner, "")

	bound := token(t, app, "bob@example.com", auth.RoleUser, "another-cart")
	if rr := do(mux, http.MethodGet, "/carts/"+cartID, bound, ""); rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if rr := do(mux, http.MethodPost, "/carts/"+cartID+"/purchase", bound, ""); rr.Code != http.StatusForbidden {
		t.Fatalf("purchase: expected 403, got %d", rr.Code)
	}

	other := token(t, app, "carl@example.com", auth.RoleUser, "")
	for _, req := range []struct{ method, path, body string }{
		{http.MethodGet, "/carts/" + cartID, ""},
		{http.MethodPut, "/carts/" + cartID, `{"products":[]}`},
		{http.MethodDelete, "/carts/" + cartID, ""},
		{http.MethodPost, "/carts/" + cartID + "/purchase", ""},
	} {
		if rr := do(mux, req.method, req.path, other, req.body); rr.Code != http.StatusForbidden {
			t.Fatalf("%s %s by non-owner: expected 403, got %d", req.method, req.path, rr.Code)
		}
	}

	rr := do(mux, http.MethodGet, "/carts/"+cartID, owner, "")
	if rr.Code != http.StatusOK || decode[model.CartView](t, rr).Owner != "ana@example.com" {
		t.Fatalf("owner read: %d %s", rr.Code, rr.Body.String())
	}
	admin := token(t, app, "root@example.com", auth.RoleAdmin, "")
	if rr := do(mux, http.MethodGet, "/carts/"+cartID, admin, ""); rr.Code != http.StatusOK {
		t.Fatalf("admin read: expected 200, got %d", rr.Code)
	}
}

func TestPurchaseOutcomes(t *testing.T) {
	app, repo, mux := setupApp(t)
	seedProduct(t, repo, "A", "10.00", 5, "general")
	seedProduct(t, repo, "B", "5.00", 10, "general")
	seedProduct(t, repo, "C", "3.00", 1, "general")
	user := token(t, app, "ana@example.com", auth.RoleUser, "")

	// full success
	cartID := newCart(t, mux, user, `{"products":[{"productId":"A","quantity":2}]}`)
	rr := do(mux, http.MethodPost, "/carts/"+cartID+"/purchase", user, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	res := decode[model.PurchaseResult](t, rr)
	if !res.Success || res.Ticket == nil || !res.Ticket.Amount.Equal(decimal.NewFromInt(20)) || len(res.FailedLines) != 0 {
		t.Fatalf("unexpected result: %s", rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"failedLines":[]`) || !strings.Contains(rr.Body.String(), `"purchase_datetime"`) {
		t.Fatalf("unexpected wire shape: %s", rr.Body.String())
	}

	// partial
	cartID = newCart(t, mux, user, `{"products":[{"productId":"C","quantity":2},{"productId":"B","quantity":1}]}`)
	res = decode[model.PurchaseResult](t, do(mux, http.MethodPost, "/carts/"+cartID+"/purchase", user, ""))
	if !res.Success || !res.Ticket.Amount.Equal(decimal.NewFromInt(5)) || len(res.FailedLines) != 1 || res.FailedLines[0].ProductID != "C" {
		t.Fatalf("unexpected partial result: %+v", res)
	}
	v := decode[model.CartView](t, do(mux, http.MethodGet, "/carts/"+cartID, user, ""))
	if len(v.Lines) != 1 || v.Lines[0].ProductID != "C" || v.Lines[0].Quantity != 2 {
		t.Fatalf("residual cart: %+v", v.Lines)
	}

	// total failure is a 200 with success=false
	rr = do(mux, http.MethodPost, "/carts/"+cartID+"/purchase", user, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("total failure: expected 200, got %d", rr.Code)
	}
	res = decode[model.PurchaseResult](t, rr)
	if res.Success || res.Ticket != nil || strings.Contains(rr.Body.String(), `"ticket"`) {
		t.Fatalf("unexpected failure body: %s", rr.Body.String())
	}

	// empty and unknown carts
	empty := newCart(t, mux, user, "")
	if rr := do(mux, http.MethodPost, "/carts/"+empty+"/purchase", user, ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("empty cart: expected 400, got %d", rr.Code)
	}
	if rr := do(mux, http.MethodPost, "/carts/missing/purchase", user, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("missing cart: expected 404, got %d", rr.Code)
	}
}

func TestPurchaseAdminPolicy(t *testing.T) {
	app, repo, mux := setupApp(t)
	seedProduct(t, repo, "A", "1.00", 5, "general")
	admin := token(t, app, "root@example.com", auth.RoleAdmin, "")
	cartID := newCart(t, mux, admin, `{"products":[{"productId":"A","quantity":1}]}`)
	if rr := do(mux, http.MethodPost, "/carts/"+cartID+"/purchase", admin, ""); rr.Code != http.StatusForbidden {
		t.Fatalf("admin purchase: expected 403, got %d", rr.Code)
	}

	app2, repo2, mux2 := setupAppWith(t, func(c *config.Config) { c.AllowAdminPurchase = true })
	seedProduct(t, repo2, "A", "1.00", 5, "general")
	admin2 := token(t, app2, "root@example.com", auth.RoleAdmin, "")
	cartID = newCart(t, mux2, admin2, `{"products":[{"productId":"A","quantity":1}]}`)
	if rr := do(mux2, http.MethodPost, "/carts/"+cartID+"/purchase", admin2, ""); rr.Code != http.StatusOK {
		t.Fatalf("allowed admin purchase: expected 200, got %d", rr.Code)
	}
}

func TestPurchaseIdempotencyReplay(t *testing.T) {
	app, repo, mux := setupApp(t)
	seedProduct(t, repo, "A", "4.00", 5, "general")
	user := token(t, app, "ana@example.com", auth.RoleUser, "")
	cartID := newCart(t, mux, user, `{"products":[{"productId":"A","quantity":1}]}`)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/carts/"+cartID+"/purchase", nil)
		req.Header.Set("Authorization", "Bearer "+user)
		req.Header.Set("Idempotency-Key", "k-1")
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		return rr
	}
	first := send()
	second := send()
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("expected 200s, got %d and %d", first.Code, second.Code)
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replay header")
	}
	if decode[model.PurchaseResult](t, first).Ticket.Code != decode[model.PurchaseResult](t, second).Ticket.Code {
		t.Fatalf("replay returned a different ticket")
	}
	p, err := repo.Products().Get(context.Background(), "A")
	if err != nil || p.Stock != 4 {
		t.Fatalf("expected a single decrement, stock=%d err=%v", p.Stock, err)
	}
}

func TestTicketVisibility(t *testing.T) {
	app, repo, mux := setupApp(t)
	seedProduct(t, repo, "A", "4.00", 5, "general")
	user := token(t, app, "ana@example.com", auth.RoleUser, "")
	cartID := newCart(t, mux, user, `{"products":[{"productId":"A","quantity":1}]}`)
	res := decode[model.PurchaseResult](t, do(mux, http.MethodPost, "/carts/"+cartID+"/purchase", user, ""))

	path := "/tickets/" + res.Ticket.Code
	if rr := do(mux, http.MethodGet, path, user, ""); rr.Code != http.StatusOK {
		t.Fatalf("purchaser: expected 200, got %d", rr.Code)
	}
	other := token(t, app, "bob@example.com", auth.RoleUser, "")
	if rr := do(mux, http.MethodGet, path, other, ""); rr.Code != http.StatusForbidden {
		t.Fatalf("other user: expected 403, got %d", rr.Code)
	}
	admin := token(t, app, "root@example.com", auth.RoleAdmin, "")
	if rr := do(mux, http.MethodGet, path, admin, ""); rr.Code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d", rr.Code)
	}
	if rr := do(mux, http.MethodGet, "/tickets/TKT-NOPE", admin, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown ticket: expected 404, got %d", rr.Code)
	}
}

func TestRejectsBadTokensAndMediaTypes(t *testing.T) {
	app, _, mux := setupApp(t)
	if rr := do(mux, http.MethodGet, "/products", "garbage", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", rr.Code)
	}
	user := token(t, app, "ana@example.com", auth.RoleUser, "")
	req := httptest.NewRequest(http.MethodPost, "/carts", bytes.NewBufferString(`{"products":[]}`))
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Authorization", "Bearer "+user)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rr.Code)
	}
	if rr := do(mux, http.MethodPost, "/carts", user, `{"products":`); rr.Code != http.StatusBadRequest {
		t.Fatalf("malformed json: expected 400, got %d", rr.Code)
	}
}

func TestShutdownRejectsPurchase(t *testing.T) {
	app, repo, mux := setupApp(t)
	seedProduct(t, repo, "A", "1.00", 5, "general")
	user := token(t, app, "ana@example.com", auth.RoleUser, "")
	cartID := newCart(t, mux, user, `{"products":[{"productId":"A","quantity":1}]}`)
	app.StartShutdown()
	if rr := do(mux, http.MethodPost, "/carts/"+cartID+"/purchase", user, ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestMetricsEndpoints(t *testing.T) {
	app, repo, mux := setupApp(t)
	seedProduct(t, repo, "A", "1.00", 5, "general")
	user := token(t, app, "ana@example.com", auth.RoleUser, "")
	cartID := newCart(t, mux, user, `{"products":[{"productId":"A","quantity":1}]}`)
	if rr := do(mux, http.MethodPost, "/carts/"+cartID+"/purchase", user, ""); rr.Code != http.StatusOK {
		t.Fatalf("purchase: %d", rr.Code)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if !app.Manager.DrainUntil(ctx) {
		t.Fatalf("drain timeout")
	}
	m := decode[map[string]any](t, do(mux, http.MethodGet, "/debug/metrics", "", ""))
	if m["events_enqueued"].(float64) != 1 || m["events_processed"].(float64) != 1 {
		t.Fatalf("unexpected dispatcher metrics: %v", m)
	}

	rr := do(mux, http.MethodGet, "/metrics", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `storefront_purchases_total{outcome="success"} 1`) {
		t.Fatalf("missing purchase counter in:\n%s", body)
	}
	if !strings.Contains(body, `route="/carts/{cartId}/purchase"`) {
		t.Fatalf("missing route label in:\n%s", body)
	}
}
