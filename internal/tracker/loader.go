package tracker

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// LoadDefaults resolves and tracks names concurrently, each under its name
// with a random colour. A name that fails to resolve or propagate is logged
// and skipped. Returns the number of objects now tracked from names.
func (t *Tracker) LoadDefaults(ctx context.Context, names []string) int {
	var loaded atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.cfg.LoadConcurrency)

	for _, name := range names {
		g.Go(func() error {
			if _, err := t.Add(gctx, name, ""); err != nil {
				t.logger.Warn("default object skipped",
					"component", "tracker",
					"name", name,
					"error", err,
				)
				return nil
			}
			loaded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	t.logger.Info("default objects loaded",
		"component", "tracker",
		"requested", len(names),
		"loaded", loaded.Load(),
	)
	return int(loaded.Load())
}
