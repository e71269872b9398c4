package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/cart-checkout-service/internal/auth"
	"github.com/fairyhunter13/cart-checkout-service/internal/checkout"
	"github.com/fairyhunter13/cart-checkout-service/internal/model"
	"github.com/fairyhunter13/cart-checkout-service/internal/store"
)

type cartLinesInput struct {
	Products []model.CartLine `json:"products"`
}

type quantityInput struct {
	Quantity *int `json:"quantity"`
}

// writeCartView renders c priced against the current catalog.
func (a *App) writeCartView(w http.ResponseWriter, r *http.Request, status int, c model.Cart) {
	v, err := checkout.ViewCart(r.Context(), a.Repo.Products(), c)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, status, v)
}

// checkProducts validates lines and reports NotFound for the first line
// whose product does not exist.
func checkProducts(ctx context.Context, products store.ProductStore, lines []model.CartLine) error {
	norm, err := model.NormalizeLines(lines)
	if err != nil {
		return err
	}
	for _, l := range norm {
		if _, err := products.Get(ctx, l.ProductID); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) createCartHandler(w http.ResponseWriter, r *http.Request) {
	var in cartLinesInput
	if !decodeJSON(w, r, &in, true) {
		return
	}
	id, _ := auth.FromContext(r.Context())
	var cart model.Cart
	err := a.Repo.InTx(r.Context(), func(ctx context.Context, tx store.Repository) error {
		if err := checkProducts(ctx, tx.Products(), in.Products); err != nil {
			return err
		}
		c, err := tx.Carts().Create(ctx, id.Email)
		if err != nil {
			return err
		}
		cart = c
		if len(in.Products) == 0 {
			return nil
		}
		cart, err = tx.Carts().ReplaceLines(ctx, c.ID, in.Products)
		return err
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	a.writeCartView(w, r, http.StatusCreated, cart)
}

func (a *App) getCartHandler(w http.ResponseWriter, r *http.Request) {
	c, err := a.Repo.Carts().Get(r.Context(), chi.URLParam(r, "cartId"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	a.writeCartView(w, r, http.StatusOK, c)
}

func (a *App) replaceCartHandler(w http.ResponseWriter, r *http.Request) {
	var in cartLinesInput
	if !decodeJSON(w, r, &in, false) {
		return
	}
	if err := checkProducts(r.Context(), a.Repo.Products(), in.Products); err != nil {
		writeAppError(w, r, err)
		return
	}
	c, err := a.Repo.Carts().ReplaceLines(r.Context(), chi.URLParam(r, "cartId"), in.Products)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	a.writeCartView(w, r, http.StatusOK, c)
}

func (a *App) clearCartHandler(w http.ResponseWriter, r *http.Request) {
	c, err := a.Repo.Carts().Clear(r.Context(), chi.URLParam(r, "cartId"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	a.writeCartView(w, r, http.StatusOK, c)
}

func (a *App) addCartProductHandler(w http.ResponseWriter, r *http.Request) {
	in := quantityInput{}
	if !decodeJSON(w, r, &in, true) {
		return
	}
	qty := 1
	if in.Quantity != nil {
		qty = *in.Quantity
	}
	productID := chi.URLParam(r, "productId")
	if _, err := a.Repo.Products().Get(r.Context(), productID); err != nil {
		writeAppError(w, r, err)
		return
	}
	c, err := a.Repo.Carts().AddLine(r.Context(), chi.URLParam(r, "cartId"), productID, qty)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	a.writeCartView(w, r, http.StatusOK, c)
}

func (a *App) setCartProductHandler(w http.ResponseWriter, r *http.Request) {
	var in quantityInput
	if !decodeJSON(w, r, &in, false) {
		return
	}
	if in.Quantity == nil {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "quantity is required")
		return
	}
	c, err := a.Repo.Carts().SetLineQuantity(r.Context(), chi.URLParam(r, "cartId"), chi.URLParam(r, "productId"), *in.Quantity)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	a.writeCartView(w, r, http.StatusOK, c)
}

func (a *App) removeCartProductHandler(w http.ResponseWriter, r *http.Request) {
	c, err := a.Repo.Carts().RemoveLine(r.Context(), chi.URLParam(r, "cartId"), chi.URLParam(r, "productId"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	a.writeCartView(w, r, http.StatusOK, c)
}
