// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and USERAPI_* env vars.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Host and Port form the single HTTP bind address.
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// UploadDir holds transient upload files. Empty means os.TempDir().
	UploadDir string `koanf:"upload_dir"`

	// MaxUploadBytes caps the size of a POST /upload body.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// RequireFileName makes the multipart decoder reject file parts that
	// carry no file name instead of letting the handler answer 500.
	RequireFileName bool `koanf:"require_file_name"`

	// LiveReload toggles the browser auto-reload development aid.
	LiveReload bool `koanf:"live_reload"`

	// LiveReloadWatch lists directories whose changes trigger a reload.
	LiveReloadWatch []string `koanf:"live_reload_watch"`

	// LiveReloadPoll bounds how long a browser long-poll is held open.
	LiveReloadPoll time.Duration `koanf:"live_reload_poll"`

	// MetricsEnabled exposes GET /metrics and records Prometheus series.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// CORSAllowedOrigins lists origins allowed cross-origin access. "*" allows any.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// DocsTitle and DocsVersion populate the API description info block.
	DocsTitle   string `koanf:"docs_title"`
	DocsVersion string `koanf:"docs_version"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Host:            "0.0.0.0",
		Port:            3000,
		MaxUploadBytes:  2 << 20,
		LiveReload:      true,
		LiveReloadPoll:  25 * time.Second,
		MetricsEnabled:  true,
		DocsTitle:       "userapi",
		DocsVersion:     "0.1.0",
		ShutdownTimeout: 30 * time.Second,
	}
}

// Addr returns the host:port the server binds to.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
