// Package chi exposes the filtering service over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/postfilter/internal/domain"
	"github.com/kailas-cloud/postfilter/internal/domain/query"
	healthuc "github.com/kailas-cloud/postfilter/internal/usecase/health"
)

// errorCode is the machine-readable code of an error response.
type errorCode string

const (
	codeBadRequest       errorCode = "bad_request"
	codeValidationFailed errorCode = "validation_failed"
	codeUnauthorized     errorCode = "unauthorized"
	codeAccessDenied     errorCode = "access_denied"
	codeNotFound         errorCode = "not_found"
	codeInvalidToken     errorCode = "invalid_token"
	codeRateLimited      errorCode = "rate_limited"
	codeInternalError    errorCode = "internal_error"
)

// errorResponse is the body of every error response.
type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Services groups the usecases the server dispatches to.
type Services struct {
	Filter  FilterService
	Listing ListingService
	Facets  FacetService
	Content ContentService
	Health  HealthService
	Nonces  NonceService
	Slot    SlotClearer
	Widgets WidgetRegistry
}

// Server serves the filter endpoint, listings, facets and content management.
type Server struct {
	svc           Services
	schema        *query.Schema
	endpoint      string
	validate      *validator.Validate
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP server. endpoint is the path of the filter
// submission endpoint; schema lists the fields the page offers controls for.
func NewServer(svc Services, schema *query.Schema, endpoint string, logger *zap.Logger) *Server {
	if endpoint == "" {
		endpoint = "/ajax"
	}
	s := &Server{
		svc:      svc,
		schema:   schema,
		endpoint: endpoint,
		validate: newValidator(),
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		deniedHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrInvalidSubmission, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrUnknownAction, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrInvalidToken, http.StatusBadRequest, codeInvalidToken),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
	}
	return s
}

// Register mounts the routes on r. apiKeys guard /admin and identify editors;
// limiter throttles filter submissions and may be nil.
func (s *Server) Register(r chi.Router, apiKeys []string, limiter Limiter) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Group(func(r chi.Router) {
		r.Use(EditorMiddleware(apiKeys))

		r.Get("/", s.Page)
		r.Get("/nonce", s.Nonce)
		r.Get("/listing", s.Listing)
		r.Get("/facets/{kind}/{key}", s.Facet)

		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(RateLimitMiddleware(limiter, s.logger))
			}
			r.Post(s.endpoint, s.Ajax)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiKeys))
		r.Put("/items/{id}", s.PutItem)
		r.Get("/items/{id}", s.GetItem)
		r.Put("/terms/{taxonomy}/{id}", s.PutTerm)
		r.Post("/index", s.Reindex)
	})
}

// Nonce handles GET /nonce.
func (s *Server) Nonce(w http.ResponseWriter, _ *http.Request) {
	tok, exp, err := s.svc.Nonces.IssueNonce()
	if err != nil {
		s.logger.Error("failed to issue nonce", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, nonceResponse{Nonce: tok, ExpiresAt: exp.UTC()})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.svc.Health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

type nonceResponse struct {
	Nonce     string    `json:"nonce"`
	ExpiresAt time.Time `json:"expires_at"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrForbidden,
		domain.ErrInvalidSubmission,
		domain.ErrUnknownAction,
		domain.ErrInvalidToken,
		domain.ErrRateLimited,
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

// deniedHandler answers failed nonce checks with the fixed denial body.
func deniedHandler(w http.ResponseWriter, err error, _ string) bool {
	if !errors.Is(err, domain.ErrForbidden) {
		return false
	}
	writeError(w, http.StatusForbidden, codeAccessDenied, "Access Denied")
	return true
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
