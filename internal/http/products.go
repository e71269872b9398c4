package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/cart-checkout-service/internal/apperr"
	"github.com/fairyhunter13/cart-checkout-service/internal/model"
	"github.com/fairyhunter13/cart-checkout-service/internal/obs"
)

type productInput struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Code        string          `json:"code"`
	Price       decimal.Decimal `json:"price"`
	Status      *bool           `json:"status"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	Thumbnails  []string        `json:"thumbnails"`
}

func parseProductQuery(r *http.Request) (model.ProductQuery, error) {
	v := r.URL.Query()
	q := model.ProductQuery{Category: v.Get("category"), Sort: v.Get("sort")}
	if s := v.Get("stock"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return q, apperr.Validation("stock", "must be true or false")
		}
		q.InStock = &b
	}
	for _, f := range []struct {
		name string
		dst  *int
	}{{"page", &q.Page}, {"limit", &q.Limit}} {
		s := v.Get(f.name)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, apperr.Validation(f.name, "must be an integer")
		}
		*f.dst = n
	}
	return q, nil
}

func (a *App) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	q, err := parseProductQuery(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	page, err := a.Repo.Products().List(r.Context(), q)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *App) getProductHandler(w http.ResponseWriter, r *http.Request) {
	p, err := a.Repo.Products().Get(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *App) createProductHandler(w http.ResponseWriter, r *http.Request) {
	var in productInput
	if !decodeJSON(w, r, &in, false) {
		return
	}
	status := true
	if in.Status != nil {
		status = *in.Status
	}
	p, err := a.Repo.Products().Create(r.Context(), model.Product{
		ID:          in.ID,
		Title:       in.Title,
		Description: in.Description,
		Code:        in.Code,
		Price:       in.Price,
		Status:      status,
		Stock:       in.Stock,
		Category:    in.Category,
		Thumbnails:  in.Thumbnails,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	obs.Logger.Info("product_created", "product_id", p.ID, "code", p.Code, "request_id", RequestIDFromContext(r.Context()))
	writeJSON(w, http.StatusCreated, p)
}

func (a *App) updateProductHandler(w http.ResponseWriter, r *http.Request) {
	var patch model.ProductPatch
	if !decodeJSON(w, r, &patch, false) {
		return
	}
	if patch == (model.ProductPatch{}) {
		writeAppError(w, r, apperr.Validation("", "no fields to update"))
		return
	}
	p, err := a.Repo.Products().Update(r.Context(), chi.URLParam(r, "productId"), patch)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *App) deleteProductHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productId")
	if err := a.Repo.Products().Delete(r.Context(), id); err != nil {
		writeAppError(w, r, err)
		return
	}
	obs.Logger.Info("product_deleted", "product_id", id, "request_id", RequestIDFromContext(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}
