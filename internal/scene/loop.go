package scene

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/OlivierFch/sky-track/internal/metrics"
)

// Loop is the frame scheduler. Each Tick runs the per-frame updates in a
// fixed order (glow pulse, camera follow, focus animation) and renders.
// Focus runs after follow so an in-flight focus animation owns the camera
// for that frame.
type Loop struct {
	engine *Engine
	logger *slog.Logger
}

// NewLoop creates a loop driving engine.
func NewLoop(engine *Engine, logger *slog.Logger) *Loop {
	return &Loop{engine: engine, logger: logger}
}

// Tick advances the scene to timestamp ts (ms) and renders one frame.
func (l *Loop) Tick(ts float64) {
	start := time.Now()

	l.engine.UpdateGlowPulse(ts)
	l.engine.UpdateCameraFollow()
	l.engine.UpdateFocus(ts)
	l.engine.Render(ts)

	metrics.ObserveFrame(time.Since(start))
}

// Run ticks at fps frames per second until ctx is cancelled. Timestamps are
// milliseconds since Run started.
func (l *Loop) Run(ctx context.Context, fps int) error {
	if fps <= 0 {
		return fmt.Errorf("invalid frame rate %d", fps)
	}

	interval := time.Second / time.Duration(fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	origin := time.Now()
	l.logger.Info("scene loop started", "component", "scene", "fps", fps)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("scene loop stopped", "component", "scene")
			return nil
		case now := <-ticker.C:
			l.Tick(float64(now.Sub(origin)) / float64(time.Millisecond))
		}
	}
}
