// Package scene holds the retained scene model of the globe view: the
// registry of tracked entities, pointer picking, the selection state
// machine and the per-frame glow, follow and focus animations.
//
// The Engine never draws. Each tick it hands an immutable Frame to a
// Renderer; input arrives through a PointerSource.
package scene

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/OlivierFch/sky-track/internal/metrics"
)

// entity is the engine-side record of a tracked object.
type entity struct {
	id       string
	color    string
	seq      int
	position Vec3
	trail    []Vec3
	glow     float64
}

// release is a renderable to free once the lock is dropped.
type release struct {
	kind Kind
	id   string
}

// Engine owns the entity registry, selection and camera. It is safe for
// concurrent use: one mutex serialises registry mutation and the per-frame
// updates that iterate it. Renderer and selection callbacks are invoked
// after the mutex is released, still within the triggering call.
type Engine struct {
	mu         sync.Mutex
	entities   map[string]*entity
	ordered    []*entity // registration order
	nextSeq    int
	selected   string
	following  bool
	camera     Camera
	surface    Surface
	focus      *focusAnimation
	visibility Visibility
	onSelect   SelectionFunc
	detach     func()

	renderer Renderer
	logger   *slog.Logger
}

// NewEngine creates an engine drawing through renderer. When pointer is
// non-nil its clicks are routed to HandleClick until DisposeAll.
func NewEngine(renderer Renderer, pointer PointerSource, logger *slog.Logger) *Engine {
	if renderer == nil {
		renderer = nopRenderer{}
	}
	e := &Engine{
		entities:   make(map[string]*entity),
		camera:     NewCamera(DefaultSurface.aspect()),
		surface:    DefaultSurface,
		visibility: Visible,
		renderer:   renderer,
		logger:     logger,
	}
	if pointer != nil {
		e.detach = pointer.OnClick(e.HandleClick)
	}
	return e
}

// OnSelected registers the selection callback, replacing any previous one.
func (e *Engine) OnSelected(fn SelectionFunc) {
	e.mu.Lock()
	e.onSelect = fn
	e.mu.Unlock()
}

// Add registers id with its marker and trail at default glow. A duplicate
// or empty id is ignored.
func (e *Engine) Add(id, color string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if id == "" {
		return
	}
	if _, ok := e.entities[id]; ok {
		return
	}

	ent := &entity{id: id, color: color, seq: e.nextSeq, glow: GlowDefault}
	e.nextSeq++
	e.entities[id] = ent
	e.ordered = append(e.ordered, ent)

	metrics.SetSceneEntities(len(e.entities))
	e.logger.Debug("entity added", "component", "scene", "id", id, "color", color)
}

// Update moves id's marker to position and replaces its trail wholesale.
// The previous trail is released only when the points actually changed.
// Unknown ids are ignored.
func (e *Engine) Update(id string, position Vec3, trail []Vec3) {
	e.mu.Lock()
	ent, ok := e.entities[id]
	if !ok {
		e.mu.Unlock()
		return
	}
	ent.position = position
	replaced := !slices.Equal(ent.trail, trail)
	released := replaced && len(ent.trail) > 0
	if replaced {
		ent.trail = slices.Clone(trail)
	}
	e.mu.Unlock()

	if released {
		e.renderer.Release(KindTrail, id)
	}
}

// RemoveByID releases id's renderables and unregisters it. Removing the
// selected entity clears the selection and notifies the callback.
func (e *Engine) RemoveByID(id string) {
	e.mu.Lock()
	releases, notify, cb := e.removeLocked(id)
	e.mu.Unlock()

	e.flush(releases)
	if notify && cb != nil {
		cb("")
	}
}

// removeLocked unregisters id. notify reports whether the selection was
// cleared as a result.
func (e *Engine) removeLocked(id string) (releases []release, notify bool, cb SelectionFunc) {
	ent, ok := e.entities[id]
	if !ok {
		return nil, false, nil
	}

	delete(e.entities, id)
	e.ordered = slices.DeleteFunc(e.ordered, func(x *entity) bool { return x == ent })
	releases = []release{{KindMarker, id}, {KindTrail, id}}

	if e.selected == id {
		e.clearLocked()
		notify, cb = true, e.onSelect
		metrics.IncSelectionChange("clear")
	}

	metrics.SetSceneEntities(len(e.entities))
	e.logger.Debug("entity removed", "component", "scene", "id", id)
	return releases, notify, cb
}

// SelectByID selects id: highlights it, follows it with the camera, starts
// a focus animation towards it and notifies the callback. Unknown or
// already selected ids are ignored.
func (e *Engine) SelectByID(id string) {
	e.mu.Lock()
	changed := e.selectLocked(id)
	cb := e.onSelect
	e.mu.Unlock()

	if changed && cb != nil {
		cb(id)
	}
}

func (e *Engine) selectLocked(id string) bool {
	ent, ok := e.entities[id]
	if !ok || id == e.selected {
		return false
	}

	// Switching targets resets the previous highlight without a separate
	// notification.
	e.clearLocked()

	ent.glow = GlowSelected
	e.selected = id
	e.following = true
	e.focus = &focusAnimation{
		start: e.camera.Position,
		end:   FocusEnd(e.camera.Position, ent.position),
	}

	metrics.IncSelectionChange("select")
	e.logger.Debug("entity selected", "component", "scene", "id", id)
	return true
}

// ClearSelection resets every glow to default, stops following and
// notifies the callback. A no-op when nothing is selected.
func (e *Engine) ClearSelection() {
	e.mu.Lock()
	if e.selected == "" {
		e.mu.Unlock()
		return
	}
	e.clearLocked()
	cb := e.onSelect
	metrics.IncSelectionChange("clear")
	e.mu.Unlock()

	if cb != nil {
		cb("")
	}
}

func (e *Engine) clearLocked() {
	for _, ent := range e.ordered {
		ent.glow = GlowDefault
	}
	e.selected = ""
	e.following = false
}

// HandleClick picks the entity under pointer position (x, y). A hit on an
// unselected entity selects it; a click on empty space clears the selection.
func (e *Engine) HandleClick(x, y float64) {
	e.mu.Lock()
	if _, _, ok := e.surface.NDC(x, y); !ok {
		e.mu.Unlock()
		return
	}

	id, hit := e.pickLocked(x, y)
	var (
		notify bool
		sel    string
	)
	switch {
	case hit:
		notify = e.selectLocked(id)
		sel = id
	case e.selected != "":
		e.clearLocked()
		notify = true
		metrics.IncSelectionChange("clear")
	}
	cb := e.onSelect
	e.mu.Unlock()

	if notify && cb != nil {
		cb(sel)
	}
}

// UpdateGlowPulse sets the glow of every unselected entity from the pulse
// curve at timestamp ts (ms).
func (e *Engine) UpdateGlowPulse(ts float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, ent := range e.ordered {
		if ent.id == e.selected {
			continue
		}
		ent.glow = PulseIntensity(ts, ent.seq)
	}
}

// UpdateCameraFollow eases the camera towards the followed entity's
// direction, keeping its distance from the origin. No-op without a target.
func (e *Engine) UpdateCameraFollow() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.following || e.selected == "" {
		return
	}
	ent, ok := e.entities[e.selected]
	if !ok {
		return
	}

	e.camera.Position = FollowStep(e.camera.Position, ent.position)
	e.camera.LookAtOrigin()
}

// UpdateFocus advances the focus animation to timestamp ts (ms). The first
// call after a selection anchors the animation's start time.
func (e *Engine) UpdateFocus(ts float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	f := e.focus
	if f == nil {
		return
	}
	if !f.started {
		f.startTS, f.started = ts, true
	}

	pos, done := FocusPosition(f.start, f.end, ts-f.startTS)
	e.camera.Position = pos
	e.camera.LookAtOrigin()
	if done {
		e.focus = nil
	}
}

// Focusing reports whether a focus animation is in flight.
func (e *Engine) Focusing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.focus != nil
}

// SetVisibility shows or hides the globe body and atmosphere. Entities stay
// visible either way.
func (e *Engine) SetVisibility(mode Visibility) {
	e.mu.Lock()
	e.visibility = mode
	e.mu.Unlock()
}

// Toggle flips the globe between visible and hidden and returns
// the new mode.
func (e *Engine) Toggle() Visibility {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.visibility == Hidden {
		e.visibility = Visible
	} else {
		e.visibility = Hidden
	}
	return e.visibility
}

// Visibility returns the current globe visibility mode.
func (e *Engine) Visibility() Visibility {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visibility
}

// Resize updates the render surface and the camera aspect.
func (e *Engine) Resize(s Surface) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.surface = s
	e.camera.Aspect = s.aspect()
}

// DisposeAll removes every entity and detaches the pointer listener.
func (e *Engine) DisposeAll() {
	e.mu.Lock()
	var (
		releases []release
		notify   bool
		cb       SelectionFunc
	)
	for _, ent := range slices.Clone(e.ordered) {
		r, n, c := e.removeLocked(ent.id)
		releases = append(releases, r...)
		if n {
			notify, cb = true, c
		}
	}
	e.focus = nil
	detach := e.detach
	e.detach = nil
	e.mu.Unlock()

	if detach != nil {
		detach()
	}
	e.flush(releases)
	if notify && cb != nil {
		cb("")
	}
	e.logger.Info("scene disposed", "component", "scene", "released", len(releases)/2)
}

// Render snapshots the scene at ts and hands it to the renderer.
func (e *Engine) Render(ts float64) {
	e.renderer.Render(e.Snapshot(ts))
}

func (e *Engine) flush(releases []release) {
	for _, r := range releases {
		e.renderer.Release(r.kind, r.id)
	}
}

// Selected returns the selected id, if any.
func (e *Engine) Selected() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected, e.selected != ""
}

// Len returns the number of registered entities.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entities)
}

// Surface returns the current render surface.
func (e *Engine) Surface() Surface {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.surface
}

// Camera returns a copy of the camera.
func (e *Engine) Camera() Camera {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.camera
}

// Entity returns the render state of id.
func (e *Engine) Entity(id string) (EntityView, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, ok := e.entities[id]
	if !ok {
		return EntityView{}, false
	}
	return e.viewLocked(ent), true
}

// Snapshot returns an immutable view of the whole scene at ts.
func (e *Engine) Snapshot(ts float64) Frame {
	e.mu.Lock()
	defer e.mu.Unlock()

	views := make([]EntityView, 0, len(e.ordered))
	for _, ent := range e.ordered {
		views = append(views, e.viewLocked(ent))
	}

	return Frame{
		Timestamp: ts,
		Camera:    e.camera,
		Surface:   e.surface,
		Globe: Globe{
			EarthVisible:      e.visibility != Hidden,
			EarthTransparent:  e.visibility != Visible,
			AtmosphereVisible: e.visibility != Hidden,
			EarthRadius:       EarthRadius,
			AtmosphereRadius:  AtmosphereRadius,
		},
		Entities: views,
		Selected: e.selected,
	}
}

func (e *Engine) viewLocked(ent *entity) EntityView {
	return EntityView{
		ID:       ent.id,
		Color:    ent.color,
		Position: ent.position,
		Trail:    ent.trail,
		Glow:     ent.glow,
		Selected: ent.id == e.selected,
		Radius:   MarkerRadius,
	}
}
