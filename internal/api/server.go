package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/relaycore/internal/core"
	"github.com/nerrad567/relaycore/internal/device"
	"github.com/nerrad567/relaycore/internal/infrastructure/config"
	"github.com/nerrad567/relaycore/internal/infrastructure/logging"
	"github.com/nerrad567/relaycore/internal/voice"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Service  *core.Service
	Registry *device.Registry
	Voice    *voice.Bridge // optional; nil disables the voice endpoints
	Version  string
}

// Server is the HTTP API server for Relay Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	logger   *logging.Logger
	service  *core.Service
	registry *device.Registry
	voice    *voice.Bridge
	version  string
	server   *http.Server
	hub      *Hub
	cancel   context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Service == nil {
		return nil, fmt.Errorf("core service is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}

	s := &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		logger:   deps.Logger,
		service:  deps.Service,
		registry: deps.Registry,
		voice:    deps.Voice,
		version:  deps.Version,
	}
	s.hub = NewHub(deps.WS, deps.Logger)

	return s, nil
}

// Start begins serving HTTP requests and broadcasting state changes.
//
// The listener runs on its own goroutine; Start returns immediately. Device
// state changes are relayed to WebSocket clients from here on.
func (s *Server) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	// Every applied toggle reaches connected panels through the hub.
	s.registry.Subscribe(func(change device.StateChange) {
		s.hub.Broadcast("device.state_changed", change)
	})

	go s.hub.Run(runCtx)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.buildRouter(),
		ReadTimeout:  time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("api server listening", "addr", addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server failed", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the server, waiting for in-flight requests.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down api server: %w", err)
	}
	return nil
}

// Handler returns the configured router. Exposed for httptest-based tests.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}
