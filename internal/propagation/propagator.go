package propagation

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/OlivierFch/sky-track/internal/tle"
)

// Propagator hands out initialised SGP4 records and propagates time series
// over a shared worker pool. Records are memoised per element set so the
// per-second position poll and the trail refresh never re-run SGP4 init.
type Propagator struct {
	pool   *WorkerPool
	cache  *lru.Cache[string, *SGP4Propagator]
	logger *slog.Logger
}

// NewPropagator creates a propagator. Zero config values select defaults.
func NewPropagator(config PropConfig, logger *slog.Logger) (*Propagator, error) {
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if config.CacheSize <= 0 {
		config.CacheSize = 256
	}

	cache, err := lru.New[string, *SGP4Propagator](config.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating sgp4 cache: %w", err)
	}

	return &Propagator{
		pool:   NewWorkerPool(config.Workers, logger),
		cache:  cache,
		logger: logger,
	}, nil
}

// For returns the SGP4 record for eph, initialising it on first use.
func (p *Propagator) For(eph tle.Ephemeris) (*SGP4Propagator, error) {
	key := eph.Line1 + "\n" + eph.Line2
	if sp, ok := p.cache.Get(key); ok {
		return sp, nil
	}

	sp, err := NewSGP4Propagator(eph.Line1, eph.Line2)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", eph.Name, err)
	}
	p.cache.Add(key, sp)

	p.logger.Debug("sgp4 record initialised",
		"component", "propagation",
		"name", eph.Name,
		"norad_id", sp.NORADID(),
		"period_s", sp.Period().Seconds(),
	)
	return sp, nil
}

// Position is For returning the propagation capability interface.
func (p *Propagator) Position(eph tle.Ephemeris) (Position, error) {
	sp, err := p.For(eph)
	if err != nil {
		return nil, err
	}
	return sp, nil
}

// Series propagates pos at every instant in times, preserving order.
func (p *Propagator) Series(ctx context.Context, pos Position, times []time.Time) ([]Sample, error) {
	return p.pool.PropagateSeries(ctx, pos, times)
}

// Cached returns the number of memoised SGP4 records.
func (p *Propagator) Cached() int {
	return p.cache.Len()
}
