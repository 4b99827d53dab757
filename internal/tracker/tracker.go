// Package tracker drives the scene from element sets: one position poller
// and one trail refresher per tracked object, pushing updates into the
// scene's entity lifecycle surface.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/OlivierFch/sky-track/internal/scene"
	"github.com/OlivierFch/sky-track/internal/tle"
	"github.com/OlivierFch/sky-track/internal/trail"
)

// ErrUnknownID is returned for operations on an id that is not tracked.
var ErrUnknownID = errors.New("unknown id")

// Sink is the entity lifecycle surface updates are pushed into.
type Sink interface {
	Add(id, color string)
	Update(id string, position scene.Vec3, trail []scene.Vec3)
	Remove(id string)
}

// Resolver returns element sets by name.
type Resolver interface {
	Resolve(ctx context.Context, name string) (tle.Ephemeris, error)
}

// Config controls the per-object pollers.
type Config struct {
	PositionInterval time.Duration // live position poll (default 1s)
	Radius           float64       // scene radius of the marker (default 1.04)
	LoadConcurrency  int           // parallel resolutions in LoadDefaults (default 4)
}

// Info describes one tracked object.
type Info struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Color   string    `json:"color"`
	NORADID int       `json:"noradId"`
	Epoch   time.Time `json:"epoch"`
	Line1   string    `json:"line1"`
	Line2   string    `json:"line2"`
}

// Tracker owns the pollers of every tracked object.
type Tracker struct {
	sink     Sink
	prop     trail.Propagator
	sampler  *trail.Sampler
	resolver Resolver
	cfg      Config
	now      func() time.Time
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

// New creates a tracker.
func New(sink Sink, prop trail.Propagator, sampler *trail.Sampler, resolver Resolver, cfg Config, logger *slog.Logger) *Tracker {
	if cfg.PositionInterval <= 0 {
		cfg.PositionInterval = time.Second
	}
	if cfg.Radius <= 0 {
		cfg.Radius = sampler.Config().Radius
	}
	if cfg.LoadConcurrency <= 0 {
		cfg.LoadConcurrency = 4
	}
	return &Tracker{
		sink:     sink,
		prop:     prop,
		sampler:  sampler,
		resolver: resolver,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
		entries:  make(map[string]*entry),
	}
}

// Track registers id with the sink and starts its position poller and
// trail refresher. Tracking an id again swaps its element set.
func (t *Tracker) Track(id string, eph tle.Ephemeris, color string) error {
	if id == "" {
		return errors.New("empty id")
	}
	if _, err := t.prop.Position(eph); err != nil {
		return fmt.Errorf("tracking %s: %w", id, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[id]; ok {
		e.setEphemeris(eph)
		e.refresher.SetEphemeris(eph)
		return nil
	}

	t.sink.Add(id, color)

	ctx, cancel := context.WithCancel(context.Background())
	e := &entry{
		id:      id,
		color:   color,
		eph:     eph,
		tracker: t,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	e.refresher = t.sampler.Start(ctx, eph, e.setTrail)
	go e.pollPosition(ctx)

	t.entries[id] = e
	t.logger.Info("tracking object", "component", "tracker", "id", id, "name", eph.Name, "color", color)
	return nil
}

// Untrack stops id's pollers and removes it from the sink.
func (t *Tracker) Untrack(id string) error {
	t.mu.Lock()
	e, ok := t.entries[id]
	delete(t.entries, id)
	t.mu.Unlock()

	if !ok {
		return ErrUnknownID
	}
	e.stop()
	t.sink.Remove(id)
	t.logger.Info("untracked object", "component", "tracker", "id", id)
	return nil
}

// Close untracks everything.
func (t *Tracker) Close() {
	for _, id := range t.IDs() {
		_ = t.Untrack(id)
	}
}

// IDs returns the tracked ids in lexical order.
func (t *Tracker) IDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]string, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Info returns details of a tracked object.
func (t *Tracker) Info(id string) (Info, bool) {
	t.mu.Lock()
	e, ok := t.entries[id]
	t.mu.Unlock()
	if !ok {
		return Info{}, false
	}
	return e.info(), true
}

// List returns details of every tracked object, ordered by id.
func (t *Tracker) List() []Info {
	var out []Info
	for _, id := range t.IDs() {
		if info, ok := t.Info(id); ok {
			out = append(out, info)
		}
	}
	return out
}

// Add resolves name and tracks it under its name. An empty color picks a
// random one.
func (t *Tracker) Add(ctx context.Context, name, color string) (tle.Ephemeris, error) {
	eph, err := t.resolver.Resolve(ctx, name)
	if err != nil {
		return tle.Ephemeris{}, err
	}
	if color == "" {
		color = RandomColor()
	}
	if err := t.Track(name, eph, color); err != nil {
		return tle.Ephemeris{}, err
	}
	return eph, nil
}

// RandomColor returns a random "#rrggbb" colour.
func RandomColor() string {
	return fmt.Sprintf("#%06x", rand.IntN(0x1000000))
}
