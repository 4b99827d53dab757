// Package trail samples one orbital period of sub-satellite points into a
// scene-space polyline and keeps it fresh on a timer.
package trail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/OlivierFch/sky-track/internal/metrics"
	"github.com/OlivierFch/sky-track/internal/propagation"
	"github.com/OlivierFch/sky-track/internal/scene"
	"github.com/OlivierFch/sky-track/internal/tle"
)

// Config controls trail sampling.
type Config struct {
	Step       time.Duration // spacing between samples
	Radius     float64       // scene radius the trail is drawn at
	MaxSamples int           // cap on points per trail; the step widens to fit
	Refresh    time.Duration // resampling interval
}

// DefaultConfig returns the settings used for low Earth orbit objects.
func DefaultConfig() Config {
	return Config{
		Step:       5 * time.Second,
		Radius:     1.04,
		MaxSamples: 2000,
		Refresh:    5 * time.Second,
	}
}

// Propagator is the propagation capability the sampler consumes.
type Propagator interface {
	Position(eph tle.Ephemeris) (propagation.Position, error)
	Series(ctx context.Context, pos propagation.Position, times []time.Time) ([]propagation.Sample, error)
}

// Sampler produces trails.
type Sampler struct {
	prop   Propagator
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
}

// NewSampler creates a sampler. Zero config fields take DefaultConfig values.
func NewSampler(prop Propagator, cfg Config, logger *slog.Logger) *Sampler {
	def := DefaultConfig()
	if cfg.Step <= 0 {
		cfg.Step = def.Step
	}
	if cfg.Radius <= 0 {
		cfg.Radius = def.Radius
	}
	if cfg.MaxSamples < 2 {
		cfg.MaxSamples = def.MaxSamples
	}
	if cfg.Refresh <= 0 {
		cfg.Refresh = def.Refresh
	}
	return &Sampler{
		prop:   prop,
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
	}
}

// Config returns the effective configuration.
func (s *Sampler) Config() Config {
	return s.cfg
}

// sampleTimes returns now, now+step, ... up to now+period inclusive. When
// that would exceed maxSamples points the step is widened to period/(maxSamples-1).
func sampleTimes(now time.Time, period, step time.Duration, maxSamples int) []time.Time {
	if period <= 0 {
		return nil
	}
	if int(period/step)+1 > maxSamples {
		step = period / time.Duration(maxSamples-1)
	}
	n := int(period/step) + 1
	if n > maxSamples {
		n = maxSamples
	}

	times := make([]time.Time, n)
	for i := range times {
		times[i] = now.Add(time.Duration(i) * step)
	}
	return times
}

// Sample returns a fresh trail covering one orbital period of eph starting
// at now. Instants without a usable position are skipped; the result may be
// empty. An error means eph cannot be propagated at all or ctx ended.
func (s *Sampler) Sample(ctx context.Context, eph tle.Ephemeris, now time.Time) ([]scene.Vec3, error) {
	pos, err := s.prop.Position(eph)
	if err != nil {
		return nil, fmt.Errorf("trail for %s: %w", eph.Name, err)
	}

	start := time.Now()
	times := sampleTimes(now, pos.Period(), s.cfg.Step, s.cfg.MaxSamples)
	samples, err := s.prop.Series(ctx, pos, times)
	if err != nil {
		return nil, fmt.Errorf("trail for %s: %w", eph.Name, err)
	}

	points := make([]scene.Vec3, 0, len(samples))
	for _, smp := range samples {
		if !smp.OK || !smp.Geodetic.Finite() {
			continue
		}
		points = append(points, scene.FromGeodetic(smp.Geodetic.Lat, smp.Geodetic.Lon, s.cfg.Radius))
	}

	skipped := len(samples) - len(points)
	metrics.RecordTrail(time.Since(start), len(points), skipped)
	if skipped > 0 {
		s.logger.Debug("trail samples skipped",
			"component", "trail",
			"name", eph.Name,
			"skipped", skipped,
			"accepted", len(points),
		)
	}
	return points, nil
}
