package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/scrubware/pmscrub/internal/config"
	"github.com/scrubware/pmscrub/internal/events"
	"github.com/scrubware/pmscrub/internal/logger"
	"github.com/scrubware/pmscrub/internal/privacy"
	"github.com/scrubware/pmscrub/internal/sources"
	"go.uber.org/zap"
)

// Server exposes the PII filter over HTTP for callers that cannot link the
// engine directly. One shared filter instance backs every request; its
// counters are the session state of the running server.
type Server struct {
	config  *config.Config
	logger  *logger.Logger
	router  *mux.Router
	server  *http.Server
	hub     *events.Hub
	sources map[string]sources.Source

	mu     sync.RWMutex
	filter *privacy.Filter
}

// New creates a serve-mode server instance.
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	s := &Server{
		config:  cfg,
		logger:  log.WithComponent("server"),
		router:  mux.NewRouter(),
		hub:     events.NewHub(cfg.Server.WebSocket, log.WithComponent("events").Logger),
		sources: sources.All(cfg.Sources, log.WithComponent("sources")),
		filter:  privacy.New(cfg.Privacy, log.WithComponent("privacy")),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.HandleFunc("/filter/text", s.handleFilterText).Methods("POST")
	api.HandleFunc("/filter/object", s.handleFilterObject).Methods("POST")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/stats/reset", s.handleStatsReset).Methods("POST")

	if s.config.Server.WebSocket.Enabled {
		s.router.HandleFunc(s.config.Server.WebSocket.Path, s.hub.HandleWebSocket).Methods("GET")
	}
}

// Start starts the HTTP server and the event hub.
func (s *Server) Start() error {
	s.logger.Info("starting pmscrub server",
		zap.Int("port", s.config.Server.Port),
		zap.Bool("privacy_enabled", s.config.Privacy.Enabled),
	)

	go s.hub.Run()

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping pmscrub server")
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Reload swaps in a filter built from new configuration. Called by the
// config watcher; counters start from zero in the new filter.
func (s *Server) Reload(cfg *config.Config) {
	s.mu.Lock()
	s.filter = privacy.New(cfg.Privacy, s.logger.WithComponent("privacy"))
	s.mu.Unlock()

	s.logger.Info("privacy filter reloaded",
		zap.Bool("enabled", cfg.Privacy.Enabled))
}

// currentFilter returns the live filter instance.
func (s *Server) currentFilter() *privacy.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"name":"pmscrub","privacy_enabled":%t,"event_clients":%d}`,
		s.config.Privacy.Enabled, s.hub.ClientCount())
}
