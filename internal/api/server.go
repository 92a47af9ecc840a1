package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/pokeapi-ingest/internal/ingest"
	"github.com/JakeFAU/pokeapi-ingest/internal/metrics"
)

// DefaultAckMessage is the trigger response body when none is configured.
const DefaultAckMessage = "pokemon api test"

const historyTimeout = 3 * time.Second

// Runner performs one ingestion run.
type Runner interface {
	Run(ctx context.Context) (ingest.RunSummary, error)
}

// Config controls Server behavior.
type Config struct {
	AckMessage string
}

// Server wires HTTP handlers to the ingestion runner.
type Server struct {
	router chi.Router
	runner Runner
	cfg    Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes. runs may be nil, in which
// case the history endpoints answer 503.
func NewServer(runner Runner, runs ingest.RunStore, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.AckMessage == "" {
		cfg.AckMessage = DefaultAckMessage
	}
	s := &Server{
		runner: runner,
		cfg:    cfg,
		logger: logger,
	}
	history := NewRunHandler(runs, logger)

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.HandleFunc("/", s.trigger)

	r.Route("/runs", func(r chi.Router) {
		r.Get("/", history.ListRuns)
		r.Get("/{run_id}", history.GetRun)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "runner not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// trigger runs one ingestion. Success answers 200 with the acknowledgement text;
// any failure answers 500 with the error text.
func (s *Server) trigger(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeText(w, http.StatusInternalServerError, "runner not configured")
		return
	}
	summary, err := s.runner.Run(r.Context())
	if err != nil {
		s.logger.Error("triggered run failed",
			zap.String("request_id", requestID(r.Context())),
			zap.String("run_id", summary.RunID),
			zap.Error(err),
		)
		writeText(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeText(w, http.StatusOK, s.cfg.AckMessage)
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("request_id", requestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("panic", rec), zap.String("path", r.URL.Path))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
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

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
