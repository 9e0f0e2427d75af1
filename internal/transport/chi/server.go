package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/unisearch/internal/domain"
	"github.com/kailas-cloud/unisearch/internal/domain/search/request"
	"github.com/kailas-cloud/unisearch/internal/logger"
	healthuc "github.com/kailas-cloud/unisearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/unisearch/internal/usecase/search"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidRequest     = "invalid_request"
	CodeParseError         = "parse_error"
	CodeConfigurationError = "configuration_error"
	CodeSearchdUnavailable = "searchd_unavailable"
	CodeSearchdError       = "searchd_error"
	CodeBadResponse        = "bad_searchd_response"
	CodeRecordNotFound     = "record_not_found"
	CodeInternalError      = "internal_error"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// searchService is the consumer interface for the search pipeline (ISP).
type searchService interface {
	Schema() searchuc.Schema
	Run(ctx context.Context, opts *request.Options, reify bool) (*searchuc.Execution, error)
	ExcerptExecution(ctx context.Context, exec *searchuc.Execution) error
}

type healthService interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the search API.
type Server struct {
	search         searchService
	health         healthService
	gatherer       prometheus.Gatherer
	defaultPerPage int
	logger         *zap.Logger
	errorHandlers  []errorHandler
}

// NewServer creates an HTTP API server. A nil gatherer serves the default registry.
func NewServer(
	search searchService,
	health healthService,
	gatherer prometheus.Gatherer,
	defaultPerPage int,
	logger *zap.Logger,
) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		search:         search,
		health:         health,
		gatherer:       gatherer,
		defaultPerPage: defaultPerPage,
		logger:         logger,
	}
	// Configuration wins over the other kinds: a stale index is reported
	// by the daemon but is the operator's problem.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrConfiguration, http.StatusInternalServerError, CodeConfigurationError, true),
		sentinelHandler(domain.ErrUsage, http.StatusBadRequest, CodeInvalidRequest, true),
		sentinelHandler(domain.ErrParse, http.StatusBadRequest, CodeParseError, true),
		sentinelHandler(domain.ErrResponse, http.StatusBadGateway, CodeBadResponse, false),
		sentinelHandler(domain.ErrTransient, http.StatusServiceUnavailable, CodeSearchdUnavailable, false),
		sentinelHandler(domain.ErrDaemon, http.StatusBadGateway, CodeSearchdError, false),
		sentinelHandler(domain.ErrRecordNotFound, http.StatusInternalServerError, CodeRecordNotFound, false),
	}
	return s
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/search", s.Search)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Search handles GET /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	q, err := parseSearchQuery(r.URL.Query(), s.search.Schema(), s.defaultPerPage)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	ctx := r.Context()
	exec, err := s.search.Run(ctx, &q.opts, !q.raw)
	if err != nil {
		s.handleDomainError(ctx, w, err)
		return
	}
	if q.excerpt {
		if err := s.search.ExcerptExecution(ctx, exec); err != nil {
			s.handleDomainError(ctx, w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, searchResponseFrom(exec, &q.opts))
}

// HealthResponse is the JSON body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// With detail the full error text is returned; it only ever describes the
// caller's input or the deployment, never internals.
func sentinelHandler(sentinel error, status int, code string, detail bool) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		if detail {
			msg = err.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logger.FromContext(ctx, s.logger)
	log.Warn("domain error", zap.Stringer("kind", domain.KindOf(err)), zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
