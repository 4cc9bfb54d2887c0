// Package livereload refreshes open browser pages when the server restarts
// or a watched directory changes.
//
// HTML responses get a small script that long-polls the reload endpoint with
// the server instance token it was served under. The endpoint answers 205
// Reset Content when a reload is due: a broadcast happened, or the token does
// not match because the process was restarted. Otherwise it answers 204 after
// the poll timeout and the script polls again.
package livereload

import (
	"net/http"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/okian/userapi/pkg/logger"
	"github.com/okian/userapi/pkg/metrics"
)

// Defaults.
const (
	DefaultPath        = "/_livereload"
	DefaultPollTimeout = 25 * time.Second
	DefaultDebounce    = 100 * time.Millisecond
)

const (
	instanceParam  = "instance"
	instanceHeader = "X-Livereload-Instance"
)

// Option configures a Reloader.
type Option func(*Reloader)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Reloader) {
		if l != nil {
			r.log = l
		}
	}
}

// WithPath sets the long-poll endpoint path.
func WithPath(path string) Option {
	return func(r *Reloader) {
		if path != "" {
			r.path = path
		}
	}
}

// WithPollTimeout bounds how long one poll is held open.
func WithPollTimeout(d time.Duration) Option {
	return func(r *Reloader) {
		if d > 0 {
			r.pollTimeout = d
		}
	}
}

// WithDebounce sets how long the watcher waits for a burst of file events
// to settle before broadcasting.
func WithDebounce(d time.Duration) Option {
	return func(r *Reloader) {
		if d > 0 {
			r.debounce = d
		}
	}
}

// Reloader broadcasts reload events to long-polling pages.
type Reloader struct {
	log         logger.Logger
	path        string
	pollTimeout time.Duration
	debounce    time.Duration
	instance    string

	mu      sync.Mutex
	changed chan struct{} // closed and replaced on every broadcast
	done    chan struct{}
	closed  bool
}

// New returns a Reloader with a fresh instance token.
func New(opts ...Option) *Reloader {
	r := &Reloader{
		log:         logger.Nop(),
		path:        DefaultPath,
		pollTimeout: DefaultPollTimeout,
		debounce:    DefaultDebounce,
		instance:    ulid.Make().String(),
		changed:     make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Path returns the long-poll endpoint path.
func (r *Reloader) Path() string {
	return r.path
}

// Instance returns the token identifying this server process.
func (r *Reloader) Instance() string {
	return r.instance
}

// Reload wakes every waiting poll with a reload signal.
func (r *Reloader) Reload() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	close(r.changed)
	r.changed = make(chan struct{})
	metrics.RecordLiveReloadEvent()
}

// Close releases every waiting poll without a reload signal and stops the
// watcher. It is safe to call more than once.
func (r *Reloader) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	close(r.done)
}

func (r *Reloader) subscribe() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changed
}

// Handler serves the long-poll endpoint.
func (r *Reloader) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		h := w.Header()
		h.Set("Cache-Control", "no-store")
		h.Set(instanceHeader, r.instance)

		if token := req.URL.Query().Get(instanceParam); token != "" && token != r.instance {
			w.WriteHeader(http.StatusResetContent)
			return
		}

		changed := r.subscribe()
		metrics.AddLiveReloadClients(1)
		defer metrics.AddLiveReloadClients(-1)

		// The poll outlives the server's write timeout.
		if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
			r.log.Debug(req.Context(), "live reload poll keeps the server write deadline", logger.Error(err))
		}

		timer := time.NewTimer(r.pollTimeout)
		defer timer.Stop()

		select {
		case <-changed:
			w.WriteHeader(http.StatusResetContent)
		case <-timer.C:
			w.WriteHeader(http.StatusNoContent)
		case <-r.done:
			w.WriteHeader(http.StatusNoContent)
		case <-req.Context().Done():
		}
	}
}
