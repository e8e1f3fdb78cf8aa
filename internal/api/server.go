package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pageharvest/pageharvest/internal/config"
	"github.com/pageharvest/pageharvest/internal/metrics"
	"github.com/pageharvest/pageharvest/internal/scraper"
	"github.com/pageharvest/pageharvest/internal/task"
)

// Server wires HTTP handlers to the task manager.
type Server struct {
	router  chi.Router
	manager *task.Manager
	cfg     config.Config
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(manager *task.Manager, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		manager: manager,
		cfg:     cfg,
		logger:  logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/crawls", func(r chi.Router) {
			r.Post("/", s.submitCrawl)
			r.Get("/", s.listCrawls)
			r.Route("/{task_id}", func(r chi.Router) {
				r.Get("/status", s.getStatus)
				r.Get("/result", s.getResult)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// The registry is in-memory; readiness equals liveness for now.
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type submitRequest struct {
	URL           string `json:"url"`
	Depth         *int   `json:"depth"`
	MaxPages      *int   `json:"max_pages"`
	IncludeLinks  *bool  `json:"include_links"`
	IncludeImages *bool  `json:"include_images"`
	SameHostOnly  *bool  `json:"same_host_only"`
}

func (s *Server) submitCrawl(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	crawlReq := scraper.CrawlRequest{
		BaseURL:       req.URL,
		Depth:         valueOrDefault(req.Depth, s.cfg.Crawler.MaxDepthDefault),
		MaxPages:      valueOrDefault(req.MaxPages, s.cfg.Crawler.MaxPagesDefault),
		IncludeLinks:  valueOrDefault(req.IncludeLinks, true),
		IncludeImages: valueOrDefault(req.IncludeImages, false),
		SameHostOnly:  valueOrDefault(req.SameHostOnly, s.cfg.Crawler.SameHostOnly),
	}

	taskID, err := s.manager.Submit(r.Context(), crawlReq)
	if err != nil {
		if scraper.IsValidation(err) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"task_id": taskID,
		"state":   string(scraper.TaskStatePending),
	})
}

func (s *Server) listCrawls(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.manager.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"tasks": summaries})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	t, err := s.manager.Status(r.Context(), taskID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"task_id":    t.ID,
		"state":      t.State,
		"created_at": t.CreatedAt,
		"updated_at": t.UpdatedAt,
	})
}

func (s *Server) getResult(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	report, err := s.manager.Result(r.Context(), taskID)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, report)
	case errors.Is(err, scraper.ErrTaskNotFound):
		s.writeError(w, http.StatusNotFound, "task not found")
	case errors.Is(err, scraper.ErrResultNotReady):
		s.writeError(w, http.StatusConflict, "result not ready")
	case errors.Is(err, scraper.ErrCrawlFailed):
		s.writeJSON(w, http.StatusOK, map[string]string{
			"task_id": taskID,
			"state":   string(scraper.TaskStateFailed),
			"error":   err.Error(),
		})
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func valueOrDefault[T any](ptr *T, def T) T {
	if ptr == nil {
		return def
	}
	return *ptr
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start)

		// The route pattern keeps the metric label set bounded; the raw path
		// would mint a new series per task ID.
		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}
		metrics.ObserveHTTPRequest(r.Method, routePattern, ww.status, elapsed)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", elapsed.Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
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

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
