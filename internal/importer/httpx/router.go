package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jcmexdev/order-importer/internal/importer/httpx/middlewares"
	"github.com/jcmexdev/order-importer/internal/pkg/auth"
	"github.com/jcmexdev/order-importer/internal/pkg/metrics"
)

// NewRouter builds the service router. The order routes require a valid
// bearer token; health and metrics stay open for the platform probes.
func NewRouter(handler *Handler, jwtSecret []byte) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachRequestMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.HTTPMiddleware)

	r.Get("/healthz", handler.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(jwtSecret))
		r.Post("/orders/bulk", handler.ImportOrders)
		r.Get("/orders/{id}", handler.GetOrderByID)
	})
	return r
}
