package remote

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hyperengineering/regs"
	"github.com/hyperengineering/regs/internal/logging"
	"github.com/hyperengineering/regs/internal/metrics"
)

// maxBodyBytes bounds a single record upload.
const maxBodyBytes = 1 << 20

// publicPaths skip API key checks.
var publicPaths = []string{"/api/v1/health", "/metrics"}

// ServerConfig configures the remote record service.
type ServerConfig struct {
	Addr        string
	APIKey      string // empty disables authentication
	BackendName string
	Version     string
	Logger      *slog.Logger
	// Extra handlers mounted on the router, e.g. "/metrics".
	Mounts map[string]http.Handler
}

// Server exposes a Backend over HTTP.
type Server struct {
	httpServer *http.Server
	backend    Backend
	cfg        ServerConfig
	logger     *slog.Logger
}

// NewServer creates a Server for backend.
func NewServer(backend Backend, cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	s := &Server{backend: backend, cfg: cfg, logger: cfg.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.authMiddleware)
	r.Use(requestSizeLimit(maxBodyBytes))
	r.Use(metrics.Middleware)
	r.Use(s.loggingMiddleware)

	for pattern, h := range cfg.Mounts {
		r.Handle(pattern, h)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Route("/collections/{collection}/records", func(r chi.Router) {
			r.Get("/", s.handleQuery)
			r.Put("/{id}", s.handleUpsert)
			r.Delete("/{id}", s.handleDelete)
		})
	})

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("server starting", "addr", s.httpServer.Addr, "backend", s.cfg.BackendName)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop stops the server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		for _, p := range publicPaths {
			if strings.HasPrefix(r.URL.Path, p) {
				next.ServeHTTP(w, r)
				return
			}
		}

		provided := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(s.cfg.APIKey)) != 1 {
			s.logger.Warn("auth failed",
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
				"has_key", provided != "")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestSizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/v1/health") || strings.HasPrefix(r.URL.Path, "/metrics") {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.logger.Info("request completed",
			"request_id", middleware.GetReqID(r.Context()),
			"source_id", r.Header.Get(HeaderSourceID),
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration", time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Version: s.cfg.Version, Backend: s.cfg.BackendName}
	if err := s.backend.Ping(r.Context()); err != nil {
		resp.Status = "unavailable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		writeError(w, http.StatusBadRequest, "owner query parameter is required")
		return
	}

	records, err := s.backend.QueryByOwner(r.Context(), chi.URLParam(r, "collection"), owner)
	if err != nil {
		s.logger.Error("query failed", "owner", owner, "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, RecordList{Records: records, Total: len(records)})
}

func (s *Server) handleUpsert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var rec regs.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid record: %v", err))
		return
	}
	if rec.ID != "" && rec.ID != id {
		writeError(w, http.StatusBadRequest, "record id does not match path")
		return
	}
	if rec.OwnerID == "" || rec.OwnerID == regs.OfflineOwner {
		writeError(w, http.StatusBadRequest, "record owner is required")
		return
	}
	rec.ID = id

	if err := s.backend.Upsert(r.Context(), chi.URLParam(r, "collection"), id, rec); err != nil {
		s.logger.Error("upsert failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "upsert failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.backend.Delete(r.Context(), chi.URLParam(r, "collection"), id); err != nil {
		s.logger.Error("delete failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
