// Package api exposes the tracker and scene over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/OlivierFch/sky-track/internal/auth"
	"github.com/OlivierFch/sky-track/internal/health"
	"github.com/OlivierFch/sky-track/internal/metrics"
	"github.com/OlivierFch/sky-track/internal/scene"
	"github.com/OlivierFch/sky-track/internal/tle"
	"github.com/OlivierFch/sky-track/internal/tracker"
)

// Tracker is the tracked-object surface used by the entity routes.
type Tracker interface {
	Add(ctx context.Context, name, color string) (tle.Ephemeris, error)
	Untrack(id string) error
	Info(id string) (tracker.Info, bool)
	List() []tracker.Info
}

// Resolver returns element sets by name.
type Resolver interface {
	Resolve(ctx context.Context, name string) (tle.Ephemeris, error)
}

// Evicter removes cached element sets.
type Evicter interface {
	Evict(mode tle.EvictMode, name string) (int, error)
}

// Deps are the components the routes operate on. Stream may be nil, in
// which case the stream route is not registered; a nil Probe is always ready.
type Deps struct {
	Engine   *scene.Engine
	Tracker  Tracker
	Resolver Resolver
	Cache    Evicter
	Probe    *health.Probe
	Stream   http.HandlerFunc
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, logger *slog.Logger, authCfg auth.Config, deps Deps) *Server {
	if deps.Probe == nil {
		deps.Probe = &health.Probe{}
		deps.Probe.MarkReady()
	}
	mux := http.NewServeMux()
	h := &handlers{deps: deps, logger: logger}

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", deps.Probe.Readyz)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/entities", h.listEntities)
	mux.HandleFunc("POST /api/v1/entities", h.addEntity)
	mux.HandleFunc("GET /api/v1/entities/{id}", h.getEntity)
	mux.HandleFunc("DELETE /api/v1/entities/{id}", h.removeEntity)

	mux.HandleFunc("GET /api/v1/selection", h.getSelection)
	mux.HandleFunc("PUT /api/v1/selection/{id}", h.toggleSelection)
	mux.HandleFunc("DELETE /api/v1/selection", h.clearSelection)
	mux.HandleFunc("POST /api/v1/pointer/click", h.click)
	mux.HandleFunc("PUT /api/v1/globe/visibility", h.setVisibility)
	mux.HandleFunc("GET /api/v1/surface", h.getSurface)
	mux.HandleFunc("PUT /api/v1/surface", h.setSurface)

	mux.HandleFunc("GET /api/v1/tle/{name}", h.getTLE)
	mux.HandleFunc("POST /api/v1/cache/evict", h.evict)

	if deps.Stream != nil {
		mux.HandleFunc("GET /api/v1/stream/scene", deps.Stream)
	}

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      40 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}
