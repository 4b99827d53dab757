package propagation

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// propagateJob is a unit of work for the worker pool.
type propagateJob struct {
	index int
	time  time.Time
}

// WorkerPool manages a fixed number of goroutines for parallel propagation.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		workers: workers,
		logger:  logger,
	}
}

// PropagateSeries propagates pos at every instant in times. The result has
// one Sample per input instant, in input order; unavailable instants carry
// OK=false. Returns ctx.Err() if the context is cancelled before all
// samples are computed.
func (wp *WorkerPool) PropagateSeries(ctx context.Context, pos Position, times []time.Time) ([]Sample, error) {
	if len(times) == 0 {
		return nil, nil
	}

	samples := make([]Sample, len(times))
	jobs := make(chan propagateJob, wp.workers*2)

	// Each worker writes only the indices it receives, so the slice needs
	// no further synchronisation.
	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				g, ok := pos.Propagate(job.time)
				samples[job.index] = Sample{Time: job.time, Geodetic: g, OK: ok}
			}
		}()
	}

	var cancelled bool
feed:
	for i, t := range times {
		select {
		case jobs <- propagateJob{index: i, time: t}:
		case <-ctx.Done():
			cancelled = true
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled {
		wp.logger.Debug("propagation series cancelled", "component", "propagation", "requested", len(times))
		return nil, ctx.Err()
	}
	return samples, nil
}
