package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/OlivierFch/sky-track/internal/metrics"
	"github.com/OlivierFch/sky-track/internal/scene"
	"github.com/OlivierFch/sky-track/internal/tle"
	"github.com/OlivierFch/sky-track/internal/trail"
)

// entry is one tracked object. Position and trail arrive from independent
// timers; each overwrites its own slot and an update is pushed once both
// slots hold data.
type entry struct {
	id      string
	color   string
	tracker *Tracker

	mu          sync.Mutex
	eph         tle.Ephemeris
	position    scene.Vec3
	hasPosition bool
	trail       []scene.Vec3

	refresher *trail.Refresher
	cancel    context.CancelFunc
	done      chan struct{}
}

func (e *entry) setEphemeris(eph tle.Ephemeris) {
	e.mu.Lock()
	e.eph = eph
	e.mu.Unlock()
}

func (e *entry) ephemeris() tle.Ephemeris {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.eph
}

func (e *entry) info() Info {
	eph := e.ephemeris()
	return Info{
		ID:      e.id,
		Name:    eph.Name,
		Color:   e.color,
		NORADID: eph.NORADID(),
		Epoch:   eph.Epoch(),
		Line1:   eph.Line1,
		Line2:   eph.Line2,
	}
}

// pollPosition samples the live position every PositionInterval until ctx
// is cancelled.
func (e *entry) pollPosition(ctx context.Context) {
	defer close(e.done)

	ticker := time.NewTicker(e.tracker.cfg.PositionInterval)
	defer ticker.Stop()

	e.samplePosition()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.samplePosition()
		}
	}
}

// samplePosition keeps the previous position when propagation has no
// result for this instant.
func (e *entry) samplePosition() {
	eph := e.ephemeris()
	pos, err := e.tracker.prop.Position(eph)
	if err != nil {
		metrics.IncPositionUnavailable()
		return
	}
	g, ok := pos.Propagate(e.tracker.now())
	if !ok || !g.Finite() {
		metrics.IncPositionUnavailable()
		e.tracker.logger.Debug("position unavailable", "component", "tracker", "id", e.id)
		return
	}

	e.mu.Lock()
	e.position = scene.FromGeodetic(g.Lat, g.Lon, e.tracker.cfg.Radius)
	e.hasPosition = true
	e.mu.Unlock()
	e.push()
}

// setTrail stores a new trail. Empty trails are dropped so the last valid
// one stays on screen.
func (e *entry) setTrail(points []scene.Vec3) {
	if len(points) == 0 {
		return
	}
	e.mu.Lock()
	e.trail = points
	e.mu.Unlock()
	e.push()
}

func (e *entry) push() {
	e.mu.Lock()
	if !e.hasPosition || len(e.trail) == 0 {
		e.mu.Unlock()
		return
	}
	pos, points := e.position, e.trail
	e.mu.Unlock()

	e.tracker.sink.Update(e.id, pos, points)
}

// stop cancels both timers and waits for them to exit.
func (e *entry) stop() {
	e.cancel()
	e.refresher.Stop()
	<-e.done
}
