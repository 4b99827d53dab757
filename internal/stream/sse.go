// Package stream publishes scene frames to browsers over Server-Sent Events.
// Clients connect via GET /api/v1/stream/scene and receive the most recent
// frame rendered by the scene engine at a fixed cadence.
//
// SSE message format:
//
//	data: {"type":"frame","seq":42,"frame":{"ts":1234.5,"camera":{...},"entities":[...]}}\n\n
//
// First message is always metadata:
//
//	data: {"type":"metadata","server_time":"...","frame_interval_ms":100,"trails":true}\n\n
//
// A replaced trail or a removed entity produces a release message:
//
//	data: {"type":"release","kind":"trail","id":"iss"}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval when no frame
// went out. Reconnecting clients receive a fresh metadata message.
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/OlivierFch/sky-track/internal/httputil"
	"github.com/OlivierFch/sky-track/internal/metrics"
	"github.com/OlivierFch/sky-track/internal/scene"
)

// Config holds streaming configuration.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	MaxTotal           int           // Max concurrent streams overall (default: 1000).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
	FrameInterval      time.Duration // Frame sampling interval (default: 100ms).
	TrustProxy         bool          // Honour X-Forwarded-For when limiting.
}

// DefaultConfig returns the stream defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentPerIP: 10,
		MaxTotal:           defaultMaxTotal,
		KeepaliveInterval:  30 * time.Second,
		FrameInterval:      100 * time.Millisecond,
	}
}

// Handler manages SSE streaming connections.
type Handler struct {
	hub     *Hub
	config  Config
	limiter *streamLimiter
	logger  *slog.Logger
}

// NewHandler creates a new streaming handler reading frames from hub.
func NewHandler(hub *Hub, config Config, logger *slog.Logger) *Handler {
	def := DefaultConfig()
	if config.MaxConcurrentPerIP <= 0 {
		config.MaxConcurrentPerIP = def.MaxConcurrentPerIP
	}
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = def.KeepaliveInterval
	}
	if config.FrameInterval <= 0 {
		config.FrameInterval = def.FrameInterval
	}
	return &Handler{
		hub:     hub,
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP, config.MaxTotal),
		logger:  logger,
	}
}

// HandleScene serves the SSE scene stream.
// GET /api/v1/stream/scene?trails=false
func (h *Handler) HandleScene(w http.ResponseWriter, r *http.Request) {
	trails := true
	if v := r.URL.Query().Get("trails"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid trails parameter, must be a boolean")
			return
		}
		trails = b
	}

	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"component", "stream",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Retry-After", "30")
		httputil.WriteError(w, http.StatusTooManyRequests, "too many concurrent streams")
		return
	}

	metrics.IncStreamConnections("connect")
	metrics.IncStreamsActive()

	startTime := time.Now()
	h.logger.Info("stream connected",
		"component", "stream",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"trails", trails,
	)

	sub := h.hub.subscribe()
	defer func() {
		h.hub.unsubscribe(sub)
		h.limiter.release(ip)
		metrics.IncStreamConnections("disconnect")
		metrics.DecStreamsActive()
		h.logger.Info("stream disconnected",
			"component", "stream",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Long-lived stream: drop the server-wide write timeout.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "component", "stream", "error", err)
	}

	c := &client{
		w:       w,
		flusher: flusher,
		rc:      rc,
		ip:      ip,
		logger:  h.logger,
	}

	// Jittered retry (3-7s) spreads reconnects after a restart.
	fmt.Fprintf(w, "retry: %d\n\n", 3000+rand.IntN(4000))
	flusher.Flush()

	meta := metadataMessage{
		Type:            "metadata",
		ServerTime:      time.Now().UTC().Format(time.RFC3339),
		FrameIntervalMs: h.config.FrameInterval.Milliseconds(),
		Trails:          trails,
	}
	if err := c.sendJSON(meta); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error (metadata)", "component", "stream", "remote_ip", ip, "error", err)
		return
	}

	ticker := time.NewTicker(h.config.FrameInterval)
	defer ticker.Stop()

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	var lastSeq uint64

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-sub.releases:
			if err := c.sendJSON(msg); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error (release)", "component", "stream", "remote_ip", ip, "error", err)
				return
			}
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-ticker.C:
			frame, seq := h.hub.Latest()
			if seq == 0 || seq == lastSeq {
				continue
			}
			lastSeq = seq

			data, err := json.Marshal(buildFrameMessage(frame, seq, trails))
			if err != nil {
				metrics.IncStreamErrors("marshal_error")
				h.logger.Warn("stream marshal error", "component", "stream", "remote_ip", ip, "error", err)
				continue
			}
			if err := c.sendRaw(data); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error", "component", "stream", "remote_ip", ip, "error", err)
				return
			}
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "component", "stream", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

// buildFrameMessage wraps f for the wire. Without trails only the selected
// entity keeps its trail.
func buildFrameMessage(f scene.Frame, seq uint64, trails bool) frameMessage {
	if !trails {
		entities := make([]scene.EntityView, len(f.Entities))
		for i, e := range f.Entities {
			if !e.Selected {
				e.Trail = nil
			}
			entities[i] = e
		}
		f.Entities = entities
	}
	if f.Entities == nil {
		f.Entities = []scene.EntityView{}
	}
	return frameMessage{Type: "frame", Seq: seq, Frame: f}
}

// SSE message payload types.

type metadataMessage struct {
	Type            string `json:"type"`
	ServerTime      string `json:"server_time"`
	FrameIntervalMs int64  `json:"frame_interval_ms"`
	Trails          bool   `json:"trails"`
}

type frameMessage struct {
	Type  string      `json:"type"`
	Seq   uint64      `json:"seq"`
	Frame scene.Frame `json:"frame"`
}

type releaseMessage struct {
	Type string `json:"type"`
	Kind string `json:"kind"`
	ID   string `json:"id"`
}
