// Package router assembles the HTTP handler: middleware stack, the API route
// table, the landing page, the documentation routes and the infra endpoints.
package router

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/userapi/internal/adapters/http/api"
	"github.com/okian/userapi/internal/adapters/http/livereload"
	"github.com/okian/userapi/internal/adapters/http/site"
	"github.com/okian/userapi/internal/adapters/http/swagger"
	"github.com/okian/userapi/internal/docs"
	"github.com/okian/userapi/internal/route"
	"github.com/okian/userapi/pkg/logger"
	"github.com/okian/userapi/pkg/metrics"
)

// MetricsPath serves the Prometheus exposition.
const MetricsPath = "/metrics"

// Option configures the router.
type Option func(*config)

type config struct {
	log       logger.Logger
	cors      []string
	reloader  *livereload.Reloader
	metrics   bool
	docsTitle string
}

// WithLogger sets the logger for access logs and recovered panics.
func WithLogger(l logger.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}

// WithCORSOrigins enables CORS for origins.
func WithCORSOrigins(origins ...string) Option {
	return func(c *config) {
		c.cors = append(c.cors, origins...)
	}
}

// WithLiveReload installs the reload script injection and poll endpoint.
func WithLiveReload(r *livereload.Reloader) Option {
	return func(c *config) {
		c.reloader = r
	}
}

// WithMetrics toggles the metrics middleware and endpoint.
func WithMetrics(enabled bool) Option {
	return func(c *config) {
		c.metrics = enabled
	}
}

// WithDocsTitle sets the Swagger UI page title.
func WithDocsTitle(title string) Option {
	return func(c *config) {
		c.docsTitle = title
	}
}

// New builds the handler. desc must describe table.
func New(ctx context.Context, table route.Table, desc *docs.Description, opts ...Option) *chi.Mux {
	cfg := &config{log: logger.Nop(), metrics: true}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	r.Use(RequestID, Recoverer(cfg.log), AccessLog(cfg.log))
	if cfg.metrics {
		r.Use(api.MetricsMiddleware)
	}
	if len(cfg.cors) > 0 {
		r.Use(CORS(DefaultCORSConfig(cfg.cors...)))
	}
	if cfg.reloader != nil {
		r.Use(cfg.reloader.Middleware)
	}

	site.Register(ctx, r)
	for _, rt := range table {
		r.Method(rt.Method, rt.Pattern, rt.Handler)
	}
	swagger.Register(ctx, r, desc, swagger.WithTitle(cfg.docsTitle))

	if cfg.metrics {
		r.Method(http.MethodGet, MetricsPath, promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	}
	if cfg.reloader != nil {
		r.Get(cfg.reloader.Path(), cfg.reloader.Handler())
	}

	cfg.log.Debug(ctx, "routes mounted", logger.Int("operations", len(table)))
	return r
}
