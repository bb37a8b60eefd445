// Package api exposes the scan daemon over HTTP: session status, the
// current device set, health score, scan history, scan triggering, and a
// websocket stream of progress events.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/mjelva/netwarden/internal/history"
	"github.com/mjelva/netwarden/internal/logging"
	"github.com/mjelva/netwarden/internal/metrics"
	"github.com/mjelva/netwarden/internal/session"
)

const (
	serverShutdownTimeout = 30 * time.Second
	healthCheckTimeout    = 5 * time.Second
)

// Config holds API server configuration.
type Config struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	Host         string        `yaml:"host" json:"host"`
	Port         int           `yaml:"port" json:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	EnableCORS   bool          `yaml:"enable_cors" json:"enable_cors"`
	CORSOrigins  []string      `yaml:"cors_origins" json:"cors_origins"`
}

// DefaultConfig returns default API server configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		Host:         "127.0.0.1",
		Port:         8080,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		EnableCORS:   true,
		CORSOrigins:  []string{"*"},
	}
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// HistoryReader serves stored scan records. *history.Store satisfies this.
type HistoryReader interface {
	History(ctx context.Context, limit int) ([]history.Record, error)
	Ping(ctx context.Context) error
}

// Server is the HTTP API server.
type Server struct {
	httpServer   *http.Server
	router       *mux.Router
	cfg          Config
	orchestrator *session.Orchestrator
	history      HistoryReader
	metrics      *metrics.Metrics
	hub          *wsHub
	logger       *logging.Logger
	validate     *validator.Validate
	startTime    time.Time
	version      string
	stopTimeout  time.Duration
}

// Option configures optional server dependencies.
type Option func(*Server)

// WithHistory attaches a scan history reader.
func WithHistory(h HistoryReader) Option {
	return func(s *Server) { s.history = h }
}

// WithMetrics attaches a metrics instance and exposes /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithVersion sets the version reported by the status endpoint.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithShutdownTimeout overrides the graceful shutdown deadline.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.stopTimeout = d
		}
	}
}

// New creates an API server bound to the given orchestrator.
func New(cfg Config, orch *session.Orchestrator, logger *logging.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = logging.Default()
	}

	s := &Server{
		router:       mux.NewRouter(),
		cfg:          cfg,
		orchestrator: orch,
		logger:       logger.WithComponent("api"),
		validate:     validator.New(),
		startTime:    time.Now(),
		version:      "dev",
		stopTimeout:  serverShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.hub = newWSHub(s.logger, s.metrics)
	s.setupRoutes()
	s.setupMiddleware()

	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Start runs the server until the context is canceled or the listener
// fails.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting API server", "address", s.httpServer.Addr)

	s.hub.start(s.orchestrator.State())

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("API server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errChan:
		return err
	}
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), s.stopTimeout)
	defer cancel()

	s.hub.stop()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Router returns the configured router. Used by tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)
	api.HandleFunc("/status", s.statusHandler).Methods(http.MethodGet)
	api.HandleFunc("/devices", s.devicesHandler).Methods(http.MethodGet)
	api.HandleFunc("/score", s.scoreHandler).Methods(http.MethodGet)
	api.HandleFunc("/scan", s.scanHandler).Methods(http.MethodPost)
	api.HandleFunc("/history", s.historyHandler).Methods(http.MethodGet)
	api.HandleFunc("/ws", s.hub.serveWS)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	s.router.HandleFunc("/", s.indexHandler).Methods(http.MethodGet)
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      string    `json:"code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, statusCode int, code string, err error) {
	s.logger.Error("API error",
		"method", r.Method,
		"path", r.URL.Path,
		"status", statusCode,
		"error", err)

	s.writeJSON(w, r, statusCode, ErrorResponse{
		Error:     err.Error(),
		Code:      code,
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response",
			"error", err,
			"path", r.URL.Path)
	}
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"service": "netwarden",
		"version": s.version,
		"endpoints": map[string]string{
			"status":  "/api/v1/status",
			"devices": "/api/v1/devices",
			"score":   "/api/v1/score",
			"scan":    "/api/v1/scan",
			"history": "/api/v1/history",
			"healthz": "/api/v1/healthz",
			"ws":      "/api/v1/ws",
		},
	})
}
