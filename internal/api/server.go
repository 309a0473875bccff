// Package api hosts the HTTP server that exposes stored predictions,
// on-demand detection and pipeline metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/tphakala/audiophile/internal/api/middleware"
	v1 "github.com/tphakala/audiophile/internal/api/v1"
	"github.com/tphakala/audiophile/internal/conf"
	"github.com/tphakala/audiophile/internal/datastore/repository"
	"github.com/tphakala/audiophile/internal/logger"
	"github.com/tphakala/audiophile/internal/observability"
)

const (
	defaultPort     = "8080"
	readTimeout     = 30 * time.Second
	writeTimeout    = 2 * time.Minute // on-demand detection can take a while
	idleTimeout     = 2 * time.Minute
	shutdownTimeout = 10 * time.Second
	bodyLimit       = "1M"
)

// Server is the HTTP server. It owns the echo instance and the v1 controller.
type Server struct {
	echo     *echo.Echo
	settings *conf.Settings
	log      logger.Logger

	repo          repository.Repository
	metrics       *observability.Metrics
	apiOptions    []v1.Option
	apiController *v1.Controller

	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithMetrics exposes the registry on /metrics.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithControllerOptions forwards options to the v1 controller.
func WithControllerOptions(opts ...v1.Option) ServerOption {
	return func(s *Server) { s.apiOptions = append(s.apiOptions, opts...) }
}

// New creates the server and registers every route.
func New(settings *conf.Settings, repo repository.Repository, opts ...ServerOption) (*Server, error) {
	if settings == nil || repo == nil {
		return nil, errors.New("api server requires settings and a repository")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		settings: settings,
		repo:     repo,
		log:      logger.Global().Module("api"),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Server.ReadTimeout = readTimeout
	s.echo.Server.WriteTimeout = writeTimeout
	s.echo.Server.IdleTimeout = idleTimeout

	s.setupMiddleware()
	s.setupRoutes()

	s.log.Info("HTTP server initialized", logger.String("address", s.Address()))
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewRequestLoggerWithSkipper(s.log, mw.SkipPaths("/metrics", "/api/v1/health")))
	s.echo.Use(echomw.BodyLimit(bodyLimit))
	s.echo.Use(echomw.Gzip())
}

func (s *Server) setupRoutes() {
	s.apiController = v1.New(s.echo, s.repo, s.settings, s.apiOptions...)

	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}
}

// Address returns the listen address.
func (s *Server) Address() string {
	port := s.settings.WebServer.Port
	if port == "" {
		port = defaultPort
	}
	return ":" + port
}

// Start listens on the configured address and serves in the background.
// It returns once the listener is bound so that bind errors surface here.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.Address())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.Address(), err)
	}
	s.listener = ln
	s.echo.Listener = ln

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Server error", logger.Error(err))
		}
	}()

	s.log.Info("HTTP server starting", logger.String("address", ln.Addr().String()))
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("Error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.wg.Wait()

	s.log.Info("Server shutdown complete")
	return nil
}

// APIController returns the v1 controller.
func (s *Server) APIController() *v1.Controller {
	return s.apiController
}

// Echo returns the underlying echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Addr returns the bound address once Start succeeded.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
