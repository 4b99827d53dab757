package tle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/OlivierFch/sky-track/internal/metrics"
)

// Resolver returns element sets from the cache, falling back to a Retriever
// on a miss and writing the parsed result through to the cache.
type Resolver struct {
	cache     *Cache
	retriever Retriever
	logger    *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(cache *Cache, retriever Retriever, logger *slog.Logger) *Resolver {
	return &Resolver{
		cache:     cache,
		retriever: retriever,
		logger:    logger,
	}
}

// Resolve returns the element set for name. Failures are *FetchError or
// *ParseError. A cache write failure is logged; the parsed result is still
// returned.
func (r *Resolver) Resolve(ctx context.Context, name string) (Ephemeris, error) {
	if eph, ok := r.cache.Load(name); ok {
		return eph, nil
	}

	start := time.Now()
	text, err := r.retriever.Retrieve(ctx, name)
	if err != nil {
		metrics.RecordFetch(time.Since(start), "fetch_error")
		var fe *FetchError
		if !errors.As(err, &fe) {
			err = &FetchError{Name: name, Err: err}
		}
		return Ephemeris{}, err
	}

	eph, err := ParseEphemeris(name, text)
	if err != nil {
		metrics.RecordFetch(time.Since(start), "parse_error")
		return Ephemeris{}, err
	}
	metrics.RecordFetch(time.Since(start), "ok")

	if err := r.cache.Save(name, eph); err != nil {
		r.logger.Warn("TLE cache write failed", "component", "tle", "name", name, "error", err)
	}

	return eph, nil
}

// Cache returns the underlying cache.
func (r *Resolver) Cache() *Cache {
	return r.cache
}
