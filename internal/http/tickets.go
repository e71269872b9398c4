package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/cart-checkout-service/internal/auth"
)

func (a *App) getTicketHandler(w http.ResponseWriter, r *http.Request) {
	t, err := a.Repo.Tickets().GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	if err := a.Policy.CanReadTicket(id, t.Purchaser); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
