// Package api exposes the HTTP interface for the audit service.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-audit/internal/audit"
	"github.com/JakeFAU/seo-audit/internal/logging"
	"github.com/JakeFAU/seo-audit/internal/metrics"
	"github.com/JakeFAU/seo-audit/internal/onpage"
	"github.com/JakeFAU/seo-audit/internal/seo"
)

// DefaultRequestTimeout bounds one request when Options leaves it unset.
const DefaultRequestTimeout = 300 * time.Second

// Auditor runs audits.
type Auditor interface {
	Run(ctx context.Context, req audit.Request) (audit.Report, error)
	MaxKeywords() int
}

// RequestIDGenerator produces per-request correlation IDs.
type RequestIDGenerator interface {
	NewRequestID() string
}

// Options tunes the HTTP surface.
type Options struct {
	RequestTimeout time.Duration
}

// Server wires HTTP handlers to the audit service.
type Server struct {
	router  chi.Router
	auditor Auditor
	ids     RequestIDGenerator
	clock   seo.Clock
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	auditor Auditor,
	ids RequestIDGenerator,
	clock seo.Clock,
	opts Options,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	s := &Server{
		auditor: auditor,
		ids:     ids,
		clock:   clock,
		logger:  logger,
	}
	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)

	r.Get("/health", s.health)
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.With(timeoutMiddleware(opts.RequestTimeout)).Get("/analyze", s.analyze)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": s.clock.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// Audits hold no state; readiness equals liveness.
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req, err := audit.ParseRequest(q.Get("url"), q.Get("keywords"), s.auditor.MaxKeywords())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := s.auditor.Run(r.Context(), req)
	if err != nil {
		s.writeAuditError(w, r, report, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type errorResponse struct {
	Error  string        `json:"error"`
	Report *audit.Report `json:"report,omitempty"`
}

func (s *Server) writeAuditError(w http.ResponseWriter, r *http.Request, report audit.Report, err error) {
	logger := logging.FromContext(r.Context(), s.logger)
	var verr *audit.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, audit.ErrNoUsableResults):
		writeJSON(w, http.StatusRequestTimeout, errorResponse{Error: err.Error(), Report: &report})
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusRequestTimeout, "audit timed out")
	case errors.Is(err, audit.ErrProviderCredentials):
		logger.Error("audit refused", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, onpage.ErrFetch):
		logger.Warn("page analysis failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("could not analyze page: %v", err))
	default:
		logger.Error("audit failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = s.ids.NewRequestID()
		}
		logger := s.logger.With(zap.String("request_id", reqID))
		ctx := logging.IntoContext(r.Context(), logger)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		logging.FromContext(r.Context(), s.logger).Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logging.FromContext(r.Context(), s.logger).Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, fmt.Sprintf("internal server error: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// timeoutMiddleware puts a deadline on the request context. The handler
// maps the resulting error, so a timed out audit still answers in JSON.
func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
