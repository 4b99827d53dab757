package trail

import (
	"context"
	"sync"
	"time"

	"github.com/OlivierFch/sky-track/internal/scene"
	"github.com/OlivierFch/sky-track/internal/tle"
)

// Refresher resamples a trail every Config.Refresh and whenever the element
// set changes, handing each new trail to a callback.
type Refresher struct {
	sampler *Sampler
	deliver func([]scene.Vec3)

	mu  sync.Mutex
	eph tle.Ephemeris

	changed  chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// Start samples eph immediately and then keeps resampling until Stop or ctx
// is cancelled. deliver is called from the refresher's goroutine.
func (s *Sampler) Start(ctx context.Context, eph tle.Ephemeris, deliver func([]scene.Vec3)) *Refresher {
	ctx, cancel := context.WithCancel(ctx)
	r := &Refresher{
		sampler: s,
		deliver: deliver,
		eph:     eph,
		changed: make(chan struct{}, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go r.run(ctx)
	return r
}

func (r *Refresher) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.sampler.cfg.Refresh)
	defer ticker.Stop()

	r.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		case <-r.changed:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	r.mu.Lock()
	eph := r.eph
	r.mu.Unlock()

	points, err := r.sampler.Sample(ctx, eph, r.sampler.now())
	if err != nil {
		if ctx.Err() == nil {
			r.sampler.logger.Warn("trail refresh failed", "component", "trail", "name", eph.Name, "error", err)
		}
		return
	}
	if ctx.Err() != nil {
		return
	}
	r.deliver(points)
}

// SetEphemeris swaps the element set. A different element set triggers an
// immediate resample; an identical one is ignored.
func (r *Refresher) SetEphemeris(eph tle.Ephemeris) {
	r.mu.Lock()
	same := r.eph == eph
	r.eph = eph
	r.mu.Unlock()

	if same {
		return
	}
	select {
	case r.changed <- struct{}{}:
	default:
	}
}

// Stop halts resampling and waits for the goroutine to exit. No delivery
// happens after Stop returns. Safe to call more than once.
func (r *Refresher) Stop() {
	r.stopOnce.Do(r.cancel)
	<-r.done
}
