// Package service wires configuration, handlers, the API description and the
// HTTP server into one runnable process.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/okian/userapi/internal/adapters/http/api"
	"github.com/okian/userapi/internal/adapters/http/livereload"
	"github.com/okian/userapi/internal/adapters/http/multipart"
	"github.com/okian/userapi/internal/adapters/http/router"
	"github.com/okian/userapi/internal/config"
	"github.com/okian/userapi/internal/docs"
	"github.com/okian/userapi/internal/schema"
	"github.com/okian/userapi/pkg/logger"
	"github.com/okian/userapi/pkg/metrics"
)

// HTTP server timeouts.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
)

const apiDescription = "Stub user service: fetch and create users, upload a file with a description."

// Service owns the HTTP server of the user API.
type Service struct {
	mu sync.RWMutex

	cfg      *config.Config
	logger   logger.Logger
	listener net.Listener

	desc     *docs.Description
	reloader *livereload.Reloader
	handler  http.Handler

	srv         *http.Server
	serveErr    chan error
	stopWatcher context.CancelFunc
	started     bool
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the configuration. Defaults apply when omitted.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithListener serves on ln instead of binding the configured address.
func WithListener(ln net.Listener) Option {
	return func(s *Service) {
		s.listener = ln
	}
}

// New constructs a Service. Nothing is built or bound until Build or Start.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:      config.New(),
		serveErr: make(chan error, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	return s
}

// Build assembles handlers, the API description and the router. It is
// idempotent.
func (s *Service) Build(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.build(ctx)
}

func (s *Service) build(ctx context.Context) error {
	if s.handler != nil {
		return nil
	}
	cfg := s.cfg
	metrics.SetEnabled(cfg.MetricsEnabled)

	apiServer, err := api.NewServer(
		api.WithLogger(s.logger.Named("api")),
		api.WithRegistry(schema.Default()),
		api.WithMaxBodyBytes(cfg.MaxUploadBytes),
		api.WithUploadOptions(
			multipart.WithScratchDir(cfg.UploadDir),
			multipart.WithRequireFileName(cfg.RequireFileName),
		),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuild, err)
	}

	table := apiServer.Routes()
	desc, err := docs.Build(ctx, docs.Info{
		Title:       cfg.DocsTitle,
		Version:     cfg.DocsVersion,
		Description: apiDescription,
	}, table, apiServer.Registry())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuild, err)
	}

	opts := []router.Option{
		router.WithLogger(s.logger.Named("http")),
		router.WithMetrics(cfg.MetricsEnabled),
		router.WithDocsTitle(cfg.DocsTitle),
		router.WithCORSOrigins(cfg.CORSAllowedOrigins...),
	}
	if cfg.LiveReload {
		s.reloader = livereload.New(
			livereload.WithLogger(s.logger.Named("livereload")),
			livereload.WithPollTimeout(cfg.LiveReloadPoll),
		)
		opts = append(opts, router.WithLiveReload(s.reloader))
	}

	s.desc = desc
	s.handler = router.New(ctx, table, desc, opts...)
	s.logger.Info(ctx, "api description built", logger.Any("paths", desc.Paths()))
	return nil
}

// Start builds the service if needed, binds the listener and serves in the
// background. Serve failures are reported on Errors.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if err := s.build(ctx); err != nil {
		return err
	}

	ln := s.listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", s.cfg.Addr())
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrBind, s.cfg.Addr(), err)
		}
		s.listener = ln
	}

	s.srv = &http.Server{
		Handler:           s.handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	if s.reloader != nil {
		s.srv.RegisterOnShutdown(s.reloader.Close)

		watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.stopWatcher = cancel
		if err := s.reloader.Watch(watchCtx, s.cfg.LiveReloadWatch...); err != nil {
			s.logger.Warn(ctx, "live reload watcher disabled", logger.Error(err))
		}
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.serveErr <- err
		}
	}()

	s.started = true
	s.logger.Info(ctx, "HTTP server listening",
		logger.String("addr", ln.Addr().String()),
		logger.Bool("live_reload", s.reloader != nil),
		logger.Bool("metrics", s.cfg.MetricsEnabled),
	)
	return nil
}

// Stop gracefully shuts the server down within the configured timeout.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "shutting down HTTP server")

	if s.stopWatcher != nil {
		s.stopWatcher()
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()

	s.started = false
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%w: %w", ErrShutdown, err)
	}
	s.logger.Info(ctx, "HTTP server stopped")
	return nil
}

// Errors reports a serve loop failure.
func (s *Service) Errors() <-chan error {
	return s.serveErr
}

// Addr returns the bound address, or the configured one before Start.
func (s *Service) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr()
}

// Handler returns the built HTTP handler, or nil before Build.
func (s *Service) Handler() http.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handler
}

// Description returns the built API description, or nil before Build.
func (s *Service) Description() *docs.Description {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.desc
}

// GetStats returns service state for logging and diagnostics.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"live_reload": s.reloader != nil,
		"metrics":     s.cfg.MetricsEnabled,
	}
	if s.listener != nil {
		stats["addr"] = s.listener.Addr().String()
	}
	if s.desc != nil {
		stats["paths"] = s.desc.Paths()
	}
	return stats
}
