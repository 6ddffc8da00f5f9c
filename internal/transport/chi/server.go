package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nearby/internal/domain"
	"github.com/kailas-cloud/nearby/internal/domain/snapshot"
	healthuc "github.com/kailas-cloud/nearby/internal/usecase/health"
)

// errorCode is the machine-readable error code returned in ErrorResponse.
type errorCode string

const (
	codeBadRequest    errorCode = "bad_request"
	codeUnauthorized  errorCode = "unauthorized"
	codeNotFound      errorCode = "search_not_found"
	codeNoRoute       errorCode = "not_found"
	codeUpstream      errorCode = "upstream_error"
	codeInternalError errorCode = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// SnapshotResponse is a stored search with its public link.
type SnapshotResponse struct {
	*snapshot.Entry
	ShareURL string `json:"shareUrl"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Snapshots reads shared searches.
type Snapshots interface {
	GetBySlug(ctx context.Context, slug string) (*snapshot.Entry, error)
	GetByID(ctx context.Context, id string) (*snapshot.Entry, error)
	ShareURL(slug string) string
}

// HealthChecker aggregates component checks.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server serves the HTTP side of nearby: shared links, health and metrics.
// The conversation itself runs over the websocket handler mounted at /ws.
type Server struct {
	snapshots     Snapshots
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(snapshots Snapshots, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		snapshots: snapshots,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrLLMProviderError, http.StatusBadGateway, codeUpstream),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeUpstream),
	}
	return s
}

// GetSearchBySlug handles GET /api/searches/{slug} and GET /s/{slug}.
func (s *Server) GetSearchBySlug(w http.ResponseWriter, r *http.Request) {
	var slug string
	if err := bindPath(r, "slug", &slug); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid slug")
		return
	}

	entry, err := s.snapshots.GetBySlug(r.Context(), slug)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SnapshotResponse{Entry: entry, ShareURL: s.snapshots.ShareURL(entry.Slug)})
}

// GetSearchByID handles GET /api/searches/id/{id}.
func (s *Server) GetSearchByID(w http.ResponseWriter, r *http.Request) {
	var id string
	if err := bindPath(r, "id", &id); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid id")
		return
	}
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "id must be a UUID")
		return
	}

	entry, err := s.snapshots.GetByID(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SnapshotResponse{Entry: entry, ShareURL: s.snapshots.ShareURL(entry.Slug)})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: report.Status,
		Checks: report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// bindPath binds a required simple-style path parameter.
func bindPath(r *http.Request, name string, dest any) error {
	//nolint:wrapcheck // caller maps every binding failure to 400
	return runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), dest,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrInvalidInput,
		domain.ErrLLMProviderError,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
