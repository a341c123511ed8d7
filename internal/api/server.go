// Package api provides the HTTP REST API and WebSocket server for the
// tracker backend.
//
// It exposes the token endpoint, generated resource routers for users,
// roles, scopes, and devices, relationship routes for role/scope
// assignment and API-key minting, and a live location feed over
// WebSocket.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/IcarusCoding/tracker-backend/internal/iam"
	"github.com/IcarusCoding/tracker-backend/internal/infrastructure/config"
	"github.com/IcarusCoding/tracker-backend/internal/infrastructure/logging"
	"github.com/IcarusCoding/tracker-backend/internal/tracker"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// FixRecorder receives accepted location fixes for history recording.
// Implemented by the time-series recorder; nil disables recording.
type FixRecorder interface {
	RecordFix(device tracker.Device, fix tracker.Location)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Identity *iam.Service
	Tracker  *tracker.Store
	Scopes   *iam.ScopeRegistry
	Recorder FixRecorder // optional
	Version  string
}

// Server is the HTTP API server for the tracker backend.
//
// It manages the HTTP listener, routes, middleware, the WebSocket hub,
// and the ticket store for WebSocket authentication. The server is
// created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	logger   *logging.Logger
	identity *iam.Service
	tracker  *tracker.Store
	scopes   *iam.ScopeRegistry
	recorder FixRecorder
	version  string
	server   *http.Server
	handler  http.Handler
	hub      *Hub
	tickets  *ticketStore
	cancel   context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called. Building the
// server mounts every route, which populates the scope registry, so
// New() must run before the identity bootstrap.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Identity == nil {
		return nil, fmt.Errorf("identity service is required")
	}
	if deps.Tracker == nil {
		return nil, fmt.Errorf("tracker store is required")
	}
	if deps.Scopes == nil {
		return nil, fmt.Errorf("scope registry is required")
	}

	s := &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		logger:   deps.Logger,
		identity: deps.Identity,
		tracker:  deps.Tracker,
		scopes:   deps.Scopes,
		recorder: deps.Recorder,
		version:  deps.Version,
		hub:      NewHub(deps.WS, deps.Logger),
		tickets:  newTicketStore(),
	}
	s.handler = s.buildRouter()

	return s, nil
}

// Hub returns the WebSocket hub so other components (MQTT ingest) can
// broadcast location events to connected clients.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the fully-routed HTTP handler. Used by tests to serve
// through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub and ticket cleanup in background
// goroutines and launches the HTTP listener. The server is stopped with
// Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)
	go s.tickets.cleanLoop(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.handler,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
