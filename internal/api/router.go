// Package api serves the dashboard's views over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/tec-dashboard/internal/session"
)

// NewRouter creates a chi router with health and session routes mounted.
// corsOrigins lists the browser origins allowed to call the API.
func NewRouter(mgr *session.Manager, corsOrigins []string) chi.Router {
	h := NewHandler(mgr)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", h.EndSession)
			r.Post("/refresh", h.Refresh)
			r.Get("/snapshot", h.Snapshot)
			r.Get("/filters", h.Filters)
			r.Get("/records", h.Records)
			r.Get("/summary", h.Summary)
			r.Get("/plant-types", h.PlantTypes)
			r.Get("/hierarchy", h.Hierarchy)
			r.Get("/distribution", h.Distribution)
			r.Get("/timeline", h.Timeline)
			r.Get("/export.xlsx", h.Export)
		})
	})

	return r
}

// requestLogger logs each request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("component", "api"),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
