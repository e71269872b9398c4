package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fairyhunter13/cart-checkout-service/internal/apperr"
	"github.com/fairyhunter13/cart-checkout-service/internal/auth"
	"github.com/fairyhunter13/cart-checkout-service/internal/obs"
)

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
)

func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}

type statusRecorder struct {
	h  http.ResponseWriter
	st int
	n  int
}

func (w *statusRecorder) Header() http.Header { return w.h.Header() }
func (w *statusRecorder) WriteHeader(code int) {
	w.st = code
	w.h.WriteHeader(code)
}
func (w *statusRecorder) Write(b []byte) (int, error) {
	n, err := w.h.Write(b)
	w.n += n
	return n, err
}

func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, reqID)))
	})
}

// WithLogging logs one http_request line per request and, when m is non-nil,
// records it under the matched route pattern.
func WithLogging(m *obs.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{h: w, st: 200}
			next.ServeHTTP(sr, r)
			lat := time.Since(start)
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			m.ObserveRequest(route, r.Method, sr.st, lat)
			obs.Logger.Info("http_request",
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"status", sr.st,
				"bytes", sr.n,
				"latency_ms", float64(lat.Microseconds())/1000.0,
				"request_id", RequestIDFromContext(r.Context()),
			)
		})
	}
}

// authenticate attaches the bearer token's identity to the request. Requests
// without a token pass through anonymous; a bad token is rejected.
func (a *App) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, present, err := a.Tokens.FromRequest(r)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		if present {
			r = r.WithContext(auth.WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.FromContext(r.Context()); !ok {
			writeAppError(w, r, apperr.Unauthorized("authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *App) requireAdmin(next http.Handler) http.Handler {
	return requireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.FromContext(r.Context())
		if err := a.Policy.RequireAdmin(id); err != nil {
			writeAppError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// requireCartAccess applies the cart ownership rule to the {cartId} route
// param. An unknown cart is left for the handler to report.
func (a *App) requireCartAccess(next http.Handler) http.Handler {
	return requireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.FromContext(r.Context())
		cartID := chi.URLParam(r, "cartId")
		var owner string
		c, err := a.Repo.Carts().Get(r.Context(), cartID)
		switch {
		case err == nil:
			owner = c.Owner
		case !apperr.IsNotFound(err):
			writeAppError(w, r, err)
			return
		}
		if err := a.Policy.CanAccessCart(id, cartID, owner); err != nil {
			writeAppError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	}))
}
