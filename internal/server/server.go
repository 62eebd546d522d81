package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/closeguard/closeguard/internal/cache"
	"github.com/closeguard/closeguard/internal/config"
	"github.com/closeguard/closeguard/internal/engine"
	"github.com/closeguard/closeguard/internal/logger"
	"github.com/closeguard/closeguard/internal/reports"
	"github.com/closeguard/closeguard/internal/web"
	"github.com/closeguard/closeguard/internal/websocket"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server wires the analysis engine, report store and dashboard behind
// the HTTP API.
type Server struct {
	config  *config.Config
	logger  *logger.Logger
	engine  *engine.Engine
	store   reports.Store
	cache   *cache.ResultCache // nil when caching is disabled
	router  *mux.Router
	server  *http.Server
	wsHub   *websocket.Hub
	limiter *clientLimiter
	started time.Time
}

// New creates a new server instance. The cache may be nil.
func New(cfg *config.Config, log *logger.Logger, eng *engine.Engine, store reports.Store, resultCache *cache.ResultCache) *Server {
	hubConfig := &websocket.HubConfig{
		BroadcastAnalyses:    cfg.WebSocket.Events.BroadcastAnalyses,
		BroadcastSystem:      cfg.WebSocket.Events.BroadcastSystem,
		BroadcastConnections: cfg.WebSocket.Events.BroadcastConnections,
	}

	s := &Server{
		config:  cfg,
		logger:  log.WithComponent("server"),
		engine:  eng,
		store:   store,
		cache:   resultCache,
		router:  mux.NewRouter(),
		wsHub:   websocket.NewHub(hubConfig, log.WithComponent("websocket").Logger),
		limiter: newClientLimiter(cfg.Upload.RequestsPerMin, cfg.Upload.Burst),
		started: time.Now(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)

	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Info endpoint
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	// Dashboard endpoint - embedded HTML
	s.router.HandleFunc("/", web.ServeDashboard).Methods("GET")
	s.router.HandleFunc("/dashboard", web.ServeDashboard).Methods("GET")

	// WebSocket endpoint for dashboard
	if s.config.WebSocket.Enabled {
		s.router.HandleFunc(s.config.WebSocket.Path, s.handleWebSocket).Methods("GET")
	}

	// Analysis endpoints
	s.router.Handle("/upload", s.rateLimitMiddleware(http.HandlerFunc(s.handleUpload))).Methods("POST")
	s.router.HandleFunc("/report/{id}", s.handleGetReport).Methods("GET")
	s.router.HandleFunc("/report/{id}", s.handleDeleteReport).Methods("DELETE")
	s.router.HandleFunc("/reports", s.handleListReports).Methods("GET")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting CloseGuard server",
		zap.Int("port", s.config.Server.Port),
		zap.Int("rules", s.engine.Catalog().Len()),
		zap.String("reports_backend", s.config.Reports.Backend),
		zap.Bool("cache_enabled", s.cache != nil),
	)

	// Start WebSocket hub in a separate goroutine
	go s.wsHub.Run()

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping CloseGuard server")
	return s.server.Shutdown(ctx)
}

// handleWebSocket handles WebSocket connections for the dashboard
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}

// Router exposes the route handler, primarily for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
