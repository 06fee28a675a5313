package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/paperpilot/internal/api/middleware"
)

// NewRouter builds the HTTP router with every route and the standard
// middleware chain.
func NewRouter(tasks *TaskHandler, health *HealthHandler, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewTraceMiddleware(log))
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", tasks.Upload)
		r.Get("/status/{id}", tasks.Status)
		r.Get("/history", tasks.History)
		r.Get("/download/{id}/{format}", tasks.Download)
	})

	r.Get("/health", health.Health)
	r.Get("/health/db", health.Database)

	return r
}
