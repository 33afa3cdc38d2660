package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/liftlog"
	"github.com/aretw0/liftlog/internal/logging"
	"github.com/aretw0/liftlog/pkg/domain"
	"github.com/aretw0/liftlog/pkg/ports"
	"github.com/aretw0/liftlog/pkg/queue"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxValueSize caps PUT bodies.
const maxValueSize = 1 << 20

// Storage is the queued storage the server reads and writes through.
type Storage interface {
	ports.Storage
	ports.Flusher
	SetItemAsync(key, value string) *queue.Future[struct{}]
	RemoveItemAsync(key string) *queue.Future[struct{}]
	Queue() *queue.Queue
}

// Server exposes a Storage over HTTP.
type Server struct {
	Storage      Storage
	Lister       ports.KeyLister
	Gatherer     prometheus.Gatherer
	Logger       *slog.Logger
	FlushTimeout time.Duration
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// WithKeyLister enables GET /kv.
func WithKeyLister(l ports.KeyLister) Option {
	return func(s *Server) {
		s.Lister = l
	}
}

// WithGatherer serves the given registry on /metrics instead of the default one.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.Gatherer = g
	}
}

// WithFlushTimeout bounds POST /flush.
func WithFlushTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.FlushTimeout = d
	}
}

// NewHandler creates the HTTP handler for storage.
func NewHandler(storage Storage, opts ...Option) http.Handler {
	s := &Server{
		Storage:      storage,
		Gatherer:     prometheus.DefaultGatherer,
		Logger:       logging.NewNop(),
		FlushTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	r.Post("/flush", s.Flush)
	r.Route("/kv", func(r chi.Router) {
		r.Get("/", s.ListKeys)
		r.Get("/{key}", s.GetValue)
		r.Put("/{key}", s.PutValue)
		r.Delete("/{key}", s.DeleteValue)
	})
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"pending": s.Storage.Queue().Pending(),
	})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "liftlog-http",
		"version": strings.TrimSpace(liftlog.Version),
		"queue":   s.Storage.Queue().Name(),
	})
}

// ListKeys handles GET /kv.
func (s *Server) ListKeys(w http.ResponseWriter, r *http.Request) {
	if s.Lister == nil {
		http.Error(w, "Listing keys is not supported by this backend", http.StatusNotImplemented)
		return
	}
	keys, err := s.Lister.Keys(r.Context())
	if err != nil {
		s.Logger.Error("Failed to list keys", "error", err)
		http.Error(w, "Failed to list keys", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, keys)
}

// GetValue handles GET /kv/{key}. Reads bypass the write queue.
func (s *Server) GetValue(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	// The queued storage logs a failed read and reports it as absent, so a
	// backend failure answers 404 like a missing key.
	value, ok, err := s.Storage.GetItem(r.Context(), key)
	if err != nil || !ok {
		http.Error(w, domain.ErrKeyNotFound.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, value)
}

// PutValue handles PUT /kv/{key}. The write is enqueued and the response is
// 202 unless ?wait=true, in which case it reflects the write's outcome.
func (s *Server) PutValue(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxValueSize))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	s.settle(w, r, s.Storage.SetItemAsync(key, string(body)))
}

// DeleteValue handles DELETE /kv/{key} with the same wait semantics as PUT.
func (s *Server) DeleteValue(w http.ResponseWriter, r *http.Request) {
	s.settle(w, r, s.Storage.RemoveItemAsync(chi.URLParam(r, "key")))
}

// Flush handles POST /flush.
func (s *Server) Flush(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.FlushTimeout)
	defer cancel()

	if err := s.Storage.Flush(ctx); err != nil {
		s.Logger.Warn("Flush request did not complete", "error", err)
		http.Error(w, "Flush did not complete", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) settle(w http.ResponseWriter, r *http.Request, f *queue.Future[struct{}]) {
	if r.URL.Query().Get("wait") != "true" {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	_, err := f.Wait(r.Context())
	switch {
	case errors.Is(err, domain.ErrEmptyKey):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrOperationTimeout):
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
	case err != nil:
		http.Error(w, "Write failed", http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("Response encode failed", "error", err)
	}
}
