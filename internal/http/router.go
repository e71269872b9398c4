package httpapi

import (
	"expvar"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter registers HTTP routes and returns the handler with middleware.
func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Use(WithRequestID)
	r.Use(WithLogging(app.Metrics))
	r.Use(middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
	})

	r.Get("/healthz", app.healthHandler)
	r.Get("/debug/metrics", app.debugMetricsHandler)
	r.Handle("/debug/vars", expvar.Handler())
	if app.Metrics != nil {
		r.Handle("/metrics", app.Metrics.Handler())
	}
	r.Get("/openapi.yaml", app.openapiHandler)
	r.Get("/docs", app.docsHandler)

	r.Group(func(r chi.Router) {
		r.Use(app.authenticate)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", app.listProductsHandler)
			r.Get("/{productId}", app.getProductHandler)
			r.Group(func(r chi.Router) {
				r.Use(app.requireAdmin)
				r.Post("/", app.createProductHandler)
				r.Put("/{productId}", app.updateProductHandler)
				r.Delete("/{productId}", app.deleteProductHandler)
			})
		})

		r.Route("/carts", func(r chi.Router) {
			r.With(requireUser).Post("/", app.createCartHandler)
			r.Route("/{cartId}", func(r chi.Router) {
				r.Use(app.requireCartAccess)
				r.Get("/", app.getCartHandler)
				r.Put("/", app.replaceCartHandler)
				r.Delete("/", app.clearCartHandler)
				r.Post("/products/{productId}", app.addCartProductHandler)
				r.Put("/products/{productId}", app.setCartProductHandler)
				r.Delete("/products/{productId}", app.removeCartProductHandler)
				r.Post("/purchase", app.purchaseHandler)
			})
		})

		r.With(requireUser).Get("/tickets/{code}", app.getTicketHandler)
	})
	return r
}
