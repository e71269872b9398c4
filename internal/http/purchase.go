package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/cart-checkout-service/internal/auth"
	"github.com/fairyhunter13/cart-checkout-service/internal/idempotency"
	"github.com/fairyhunter13/cart-checkout-service/internal/obs"
)

const idempotencyHeader = "Idempotency-Key"

// purchaseHandler checks out the cart for the authenticated caller. A total
// failure is still a 200 with success=false; only structural problems map
// to error statuses.
func (a *App) purchaseHandler(w http.ResponseWriter, r *http.Request) {
	if a.closing.Load() {
		WriteJSONError(w, http.StatusServiceUnavailable, "shutting_down", "")
		return
	}
	id, _ := auth.FromContext(r.Context())
	if err := a.Policy.CanPurchase(id); err != nil {
		writeAppError(w, r, err)
		return
	}
	cartID := chi.URLParam(r, "cartId")
	reqID := RequestIDFromContext(r.Context())

	var key string
	if h := r.Header.Get(idempotencyHeader); h != "" && a.Idem != nil {
		key = idempotency.Key(id.Email, cartID, h)
		prior, err := a.Idem.Begin(r.Context(), key)
		switch {
		case errors.Is(err, idempotency.ErrInProgress):
			WriteJSONError(w, http.StatusConflict, "conflict", err.Error())
			return
		case err != nil:
			obs.Logger.Error("idempotency_unavailable", "request_id", reqID, "error", err.Error())
			WriteJSONError(w, http.StatusServiceUnavailable, "idempotency_unavailable", "")
			return
		case prior != nil:
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(prior.Status)
			_, _ = w.Write(prior.Body)
			return
		}
	}

	res, err := a.Processor.ProcessPurchase(r.Context(), cartID, id.Email)
	// The outcome is settled; record it even if the client has gone away.
	ctx := context.WithoutCancel(r.Context())
	if err != nil {
		if key != "" {
			if aerr := a.Idem.Abort(ctx, key); aerr != nil {
				obs.Logger.Warn("idempotency_abort_failed", "request_id", reqID, "error", aerr.Error())
			}
		}
		writeAppError(w, r, err)
		return
	}

	body, err := json.Marshal(res)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	body = append(body, '\n')
	if key != "" {
		if cerr := a.Idem.Complete(ctx, key, idempotency.Response{Status: http.StatusOK, Body: body}); cerr != nil {
			obs.Logger.Warn("idempotency_record_failed", "request_id", reqID, "error", cerr.Error())
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
