// Package httpapi assembles the chi router for the gateway's public
// API: middleware and route groups wired around a handler.Handler.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/romanqed/txgate/internal/httpapi/handler"
)

// DefaultMaxBodyBytes bounds the size of a submitted transaction body.
const DefaultMaxBodyBytes = 1 << 20 // 1MB

// NewRouter builds the gateway's chi.Mux. reg is the registry metrics
// were registered against; /metrics serves exactly that registry
// rather than the global default one.
func NewRouter(h *handler.Handler, reg *prometheus.Registry) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.AllowContentType("application/json"))
	r.Use(func(next http.Handler) http.Handler {
		return http.MaxBytesHandler(next, DefaultMaxBodyBytes)
	})

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		h.Mount(r)
	})

	return r
}
