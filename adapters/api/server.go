package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"goedm/domain/core"
	"goedm/internal"
	"goedm/internal/config"
	apperrors "goedm/internal/errors"
	"goedm/internal/metrics"
)

// Server exposes the engine over JSON/HTTP
type Server struct {
	router  *chi.Mux
	server  *http.Server
	service *Service
	config  config.ServerConfig
	metrics *metrics.Registry
	logger  *internal.Logger
}

// NewServer creates a server. A nil registry disables /metrics.
func NewServer(service *Service, cfg config.ServerConfig, reg *metrics.Registry, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{
		router:  chi.NewRouter(),
		service: service,
		config:  cfg,
		metrics: reg,
		logger:  logger.With("api"),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.router,
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
	}
	return s
}

// setupMiddleware configures HTTP middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(middleware.Recoverer)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok\n")
	})
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(jsonContentTypeMiddleware)

		r.Get("/config", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, s.service.Config())
		})

		r.Post("/edim", handle(s, s.service.Edim))
		r.Post("/simplex", handle(s, s.service.Simplex))
		r.Post("/simplex/eval", handle(s, s.service.EvalSimplex))
		r.Post("/smap", handle(s, s.service.SMap))
		r.Post("/smap/eval", handle(s, s.service.EvalSMap))
		r.Post("/xmap", handle(s, s.service.XMap))
		r.Post("/ccm", handle(s, s.service.Convergence))
	})
}

// Handler returns the routed handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server...")
	return s.server.Shutdown(ctx)
}

// handle decodes a request body into T, runs fn and writes the envelope
func handle[T any](s *Server, fn func(T) (*Response, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.config.MaxBodyBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
		}

		var req T
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			s.writeError(w, core.NewRunID(), decodeError(err))
			return
		}

		resp, err := fn(req)
		if err != nil {
			s.writeError(w, core.NewRunID(), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// decodeError keeps shape errors raised by Array and classifies the rest
// as malformed input
func decodeError(err error) error {
	if core.IsInvalidArgument(err) {
		return err
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.InvalidInput(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
	}
	return apperrors.InvalidInput(fmt.Sprintf("invalid request body: %v", err))
}

func (s *Server) writeError(w http.ResponseWriter, runID core.RunID, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("[%s] request failed: %v", runID, err)
	} else {
		s.logger.Debug("[%s] rejected request: %v", runID, err)
	}
	writeJSON(w, status, ErrorResponse{
		RunID: runID,
		Error: ErrorBody{Code: apperrors.GetCode(err), Message: err.Error()},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestLoggingMiddleware logs every request with its status and latency
func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("REQ %s %s %s %d %v %s",
			middleware.GetReqID(r.Context()),
			r.Method,
			r.URL.Path,
			ww.Status(),
			time.Since(start),
			r.RemoteAddr,
		)
	})
}

// jsonContentTypeMiddleware sets JSON content type for API responses
func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
