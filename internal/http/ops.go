package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	httpopenapi "github.com/fairyhunter13/cart-checkout-service/internal/http/openapi"
)

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (a *App) debugMetricsHandler(w http.ResponseWriter, r *http.Request) {
	m := map[string]any{
		"storage_backend": a.Cfg.StorageBackend,
		"events_broker":   a.Cfg.EventsBroker,
		"shutting_down":   a.closing.Load(),
		"uptime_sec":      time.Since(a.started).Seconds(),
	}
	if a.Manager != nil {
		enq, proc, backlog, depth := a.Manager.QueueMetrics()
		m["events_enqueued"] = enq
		m["events_processed"] = proc
		m["backlog_size"] = backlog
		m["queue_depth"] = depth
		m["worker_count"] = a.Manager.WorkerCount()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(m)
}

func (a *App) openapiHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(httpopenapi.YAML)
}

func (a *App) docsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	html := `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>Cart Checkout API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui'
      });
    </script>
  </body>
</html>`
	_, _ = w.Write([]byte(html))
}
