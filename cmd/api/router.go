package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/FACorreiaa/paycycle-budget/pkg/config"
	"github.com/FACorreiaa/paycycle-budget/pkg/httpx"
)

// Pinger reports database reachability for /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Routes groups the HTTP surfaces mounted by NewRouter.
type Routes struct {
	Categories   func(chi.Router)
	Transactions []func(chi.Router)
	Periods      func(chi.Router)
}

// NewRouter builds the HTTP handler with the middleware stack applied.
func NewRouter(cfg config.ServerConfig, routes Routes, db Pinger, reg prometheus.Gatherer, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(httpx.RequestID)
	r.Use(httpx.Logger(logger))
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		code := http.StatusOK
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				logger.Warn("health check failed", slog.Any("error", err))
				status, code = "unhealthy", http.StatusServiceUnavailable
			}
		}
		httpx.WriteJSON(w, code, map[string]string{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	if reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(httpx.RateLimit(float64(cfg.RateLimitPerSecond), cfg.RateLimitBurst))

		r.Route("/categories", routes.Categories)
		r.Route("/transactions", func(r chi.Router) {
			for _, mount := range routes.Transactions {
				mount(r)
			}
		})
		r.Route("/periods", routes.Periods)
	})

	return r
}
