package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nearby/internal/metrics"
)

// NewRouter mounts the API server and the websocket handler behind the
// shared middleware stack.
func NewRouter(s *Server, ws http.Handler, apiKeys []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/s/{slug}", s.GetSearchBySlug)
	r.Route("/api/searches", func(r chi.Router) {
		r.Get("/id/{id}", s.GetSearchByID)
		r.Get("/{slug}", s.GetSearchBySlug)
	})
	if ws != nil {
		r.Method(http.MethodGet, "/ws", ws)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNoRoute, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	})
	return r
}
