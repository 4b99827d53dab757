package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrack_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skytrack_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	tleCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrack_tle_cache_lookups_total",
			Help: "Ephemeris cache lookups by result (hit, miss).",
		},
		[]string{"result"},
	)

	tleCacheEvictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrack_tle_cache_evictions_total",
			Help: "Ephemeris cache entries removed, by eviction mode.",
		},
		[]string{"mode"},
	)

	tleFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrack_tle_fetches_total",
			Help: "External element-set retrievals by result (ok, fetch_error, parse_error).",
		},
		[]string{"result"},
	)

	tleFetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skytrack_tle_fetch_duration_seconds",
			Help:    "Duration of external element-set retrievals.",
			Buckets: prometheus.DefBuckets,
		},
	)

	trailSamples = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrack_trail_samples_total",
			Help: "Trail samples by outcome (accepted, skipped).",
		},
		[]string{"outcome"},
	)

	trailDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skytrack_trail_sample_duration_seconds",
			Help:    "Time to sample one full-period trail.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	positionUnavailable = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skytrack_position_unavailable_total",
			Help: "Live position polls that produced no result.",
		},
	)

	sceneEntities = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skytrack_scene_entities",
			Help: "Number of entities registered in the scene.",
		},
	)

	sceneSelections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrack_scene_selection_changes_total",
			Help: "Selection state changes by kind (select, clear).",
		},
		[]string{"kind"},
	)

	sceneFrameDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skytrack_scene_frame_duration_seconds",
			Help:    "Time spent in one scene tick, render included.",
			Buckets: []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05},
		},
	)

	streamConnections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrack_stream_connections_total",
			Help: "SSE stream connection events (connect, disconnect).",
		},
		[]string{"event"},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skytrack_streams_active",
			Help: "Currently open SSE streams.",
		},
	)

	streamMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skytrack_stream_messages_total",
			Help: "SSE data messages sent.",
		},
	)

	streamBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skytrack_stream_bytes_total",
			Help: "Bytes written to SSE streams.",
		},
	)

	streamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrack_stream_errors_total",
			Help: "SSE stream errors by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		tleCacheLookups,
		tleCacheEvictions,
		tleFetches,
		tleFetchDuration,
		trailSamples,
		trailDuration,
		positionUnavailable,
		sceneEntities,
		sceneSelections,
		sceneFrameDuration,
		streamConnections,
		streamsActive,
		streamMessages,
		streamBytes,
		streamErrors,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func IncCacheHit() { tleCacheLookups.WithLabelValues("hit").Inc() }
func IncCacheMiss() { tleCacheLookups.WithLabelValues("miss").Inc() }

// AddCacheEvictions records n entries removed by the given eviction mode.
func AddCacheEvictions(mode string, n int) {
	if n > 0 {
		tleCacheEvictions.WithLabelValues(mode).Add(float64(n))
	}
}

// RecordFetch records one external retrieval and its outcome.
func RecordFetch(d time.Duration, result string) {
	tleFetches.WithLabelValues(result).Inc()
	tleFetchDuration.Observe(d.Seconds())
}

// RecordTrail records the outcome of one trail sampling pass.
func RecordTrail(d time.Duration, accepted, skipped int) {
	trailDuration.Observe(d.Seconds())
	trailSamples.WithLabelValues("accepted").Add(float64(accepted))
	trailSamples.WithLabelValues("skipped").Add(float64(skipped))
}

func IncPositionUnavailable() { positionUnavailable.Inc() }

func SetSceneEntities(n int) { sceneEntities.Set(float64(n)) }

func IncSelectionChange(kind string) { sceneSelections.WithLabelValues(kind).Inc() }

func ObserveFrame(d time.Duration) { sceneFrameDuration.Observe(d.Seconds()) }

func IncStreamConnections(event string) { streamConnections.WithLabelValues(event).Inc() }
func IncStreamsActive() { streamsActive.Inc() }
func DecStreamsActive() { streamsActive.Dec() }
func IncStreamMessages() { streamMessages.Inc() }
func AddStreamBytes(n int64) { streamBytes.Add(float64(n)) }
func IncStreamErrors(reason string) { streamErrors.WithLabelValues(reason).Inc() }

// knownRoutes are exact paths reported under their own label.
var knownRoutes = map[string]bool{
	"/healthz":                 true,
	"/readyz":                  true,
	"/metrics":                 true,
	"/api/v1/entities":         true,
	"/api/v1/selection":        true,
	"/api/v1/pointer/click":    true,
	"/api/v1/globe/visibility": true,
	"/api/v1/surface":          true,
	"/api/v1/cache/evict":      true,
	"/api/v1/stream/scene":     true,
}

// paramRoutes collapse parameterized paths to a single label.
var paramRoutes = []struct {
	prefix string
	label  string
}{
	{"/api/v1/entities/", "/api/v1/entities/{id}"},
	{"/api/v1/selection/", "/api/v1/selection/{id}"},
	{"/api/v1/tle/", "/api/v1/tle/{name}"},
}

// normalizeRoute maps a request path to a bounded-cardinality label.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	for _, r := range paramRoutes {
		if strings.HasPrefix(path, r.prefix) && len(path) > len(r.prefix) {
			return r.label
		}
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the wrapped writer so SSE handlers keep working.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
