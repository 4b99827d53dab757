package scene

import (
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// recordingRenderer keeps every frame and release it receives.
type recordingRenderer struct {
	mu       sync.Mutex
	frames   []Frame
	releases []release
}

func (r *recordingRenderer) Render(f Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
}

func (r *recordingRenderer) Release(kind Kind, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releases = append(r.releases, release{kind, id})
}

func (r *recordingRenderer) lastFrame(t *testing.T) Frame {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		t.Fatal("no frame rendered")
	}
	return r.frames[len(r.frames)-1]
}

func (r *recordingRenderer) frameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// fakePointer lets tests deliver clicks.
type fakePointer struct {
	handler  func(x, y float64)
	detached int
}

func (p *fakePointer) OnClick(h func(x, y float64)) func() {
	p.handler = h
	return func() {
		p.handler = nil
		p.detached++
	}
}

func (p *fakePointer) click(x, y float64) {
	if p.handler != nil {
		p.handler(x, y)
	}
}

// selections records selection callbacks.
type selections struct {
	calls []string
}

func (s *selections) record(id string) { s.calls = append(s.calls, id) }

func newTestEngine() (*Engine, *recordingRenderer, *fakePointer, *selections) {
	r := &recordingRenderer{}
	p := &fakePointer{}
	e := NewEngine(r, p, testLogger())
	s := &selections{}
	e.OnSelected(s.record)
	return e, r, p, s
}

func approxVec(a, b Vec3, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol && math.Abs(a.Z-b.Z) <= tol
}

func TestEngineAddTwiceRegistersOnce(t *testing.T) {
	e, _, _, _ := newTestEngine()
	e.Add("ISS", "#ff0000")
	e.Add("ISS", "#00ff00")

	if e.Len() != 1 {
		t.Fatalf("Len = %d, want 1", e.Len())
	}
	view, _ := e.Entity("ISS")
	if view.Color != "#ff0000" {
		t.Errorf("color = %q, duplicate add must not overwrite", view.Color)
	}
	if view.Glow != GlowDefault {
		t.Errorf("glow = %v, want default %v", view.Glow, GlowDefault)
	}
}

func TestEngineAddEmptyIDIgnored(t *testing.T) {
	e, _, _, _ := newTestEngine()
	e.Add("", "#ffffff")
	if e.Len() != 0 {
		t.Errorf("Len = %d, want 0", e.Len())
	}
}

func TestEngineUpdateUnknownIsNoop(t *testing.T) {
	e, r, _, _ := newTestEngine()
	e.Update("ghost", Vec3{X: 1}, []Vec3{{X: 1}})

	if e.Len() != 0 {
		t.Errorf("Len = %d, want 0", e.Len())
	}
	if len(r.releases) != 0 {
		t.Errorf("releases = %v, want none", r.releases)
	}
}

func TestEngineRemoveThenUpdateIsNoop(t *testing.T) {
	e, r, _, _ := newTestEngine()
	e.Add("ISS", "#ff0000")
	e.RemoveByID("ISS")
	e.Update("ISS", Vec3{X: 1}, nil)

	if _, ok := e.Entity("ISS"); ok {
		t.Error("entity should stay removed")
	}
	want := []release{{KindMarker, "ISS"}, {KindTrail, "ISS"}}
	if len(r.releases) != 2 || r.releases[0] != want[0] || r.releases[1] != want[1] {
		t.Errorf("releases = %v, want %v", r.releases, want)
	}

	// Unknown id.
	e.RemoveByID("ISS")
	if len(r.releases) != 2 {
		t.Errorf("second remove released again: %v", r.releases)
	}
}

func TestEngineUpdateReplacesTrail(t *testing.T) {
	e, r, _, _ := newTestEngine()
	e.Add("ISS", "#ff0000")

	first := []Vec3{{X: 1}, {Y: 1}}
	e.Update("ISS", Vec3{X: 1}, first)
	if len(r.releases) != 0 {
		t.Errorf("first trail should not release anything, got %v", r.releases)
	}

	e.Update("ISS", Vec3{Y: 1}, []Vec3{{Z: 1}})
	view, _ := e.Entity("ISS")
	if len(view.Trail) != 1 || view.Trail[0] != (Vec3{Z: 1}) {
		t.Errorf("trail = %v, want wholesale replacement", view.Trail)
	}
	if view.Position != (Vec3{Y: 1}) {
		t.Errorf("position = %v", view.Position)
	}
	if len(r.releases) != 1 || r.releases[0] != (release{KindTrail, "ISS"}) {
		t.Errorf("releases = %v, want old trail released", r.releases)
	}

	// Re-pushing the same points moves the marker without a release.
	e.Update("ISS", Vec3{Z: 1}, []Vec3{{Z: 1}})
	if len(r.releases) != 1 {
		t.Errorf("releases = %v, unchanged trail should not release", r.releases)
	}
	view, _ = e.Entity("ISS")
	if view.Position != (Vec3{Z: 1}) {
		t.Errorf("position = %v, want moved marker", view.Position)
	}

	// The engine keeps its own copy.
	input := []Vec3{{X: 2}}
	e.Update("ISS", Vec3{}, input)
	input[0] = Vec3{X: 99}
	view, _ = e.Entity("ISS")
	if view.Trail[0] != (Vec3{X: 2}) {
		t.Error("caller mutation leaked into the engine")
	}
}

func TestResizeReachesFrameAndPicking(t *testing.T) {
	e, r, p, s := newTestEngine()
	e.Add("ISS", "#ff0000")
	e.Update("ISS", Vec3{Z: 1.04}, []Vec3{{Z: 1.04}})

	wide := Surface{Width: 1600, Height: 900}
	e.Resize(wide)
	if e.Surface() != wide {
		t.Errorf("surface = %+v, want %+v", e.Surface(), wide)
	}
	e.Render(0)
	if got := r.lastFrame(t).Surface; got != wide {
		t.Errorf("frame surface = %+v, want %+v", got, wide)
	}

	p.click(800, 450)
	if id, _ := e.Selected(); id != "ISS" {
		t.Errorf("selected = %q after centre click, want ISS (calls %v)", id, s.calls)
	}
}

func TestSelectUnknownIsNoop(t *testing.T) {
	e, _, _, s := newTestEngine()
	e.SelectByID("ghost")

	if _, ok := e.Selected(); ok {
		t.Error("expected no selection")
	}
	if len(s.calls) != 0 {
		t.Errorf("callbacks = %v, want none", s.calls)
	}
}

func TestSelectSameTwiceNotifiesOnce(t *testing.T) {
	e, _, _, s := newTestEngine()
	e.Add("a", "#111111")
	e.SelectByID("a")
	e.SelectByID("a")

	if len(s.calls) != 1 || s.calls[0] != "a" {
		t.Errorf("callbacks = %v, want [a]", s.calls)
	}
}

func TestSelectSwitchTarget(t *testing.T) {
	e, _, _, s := newTestEngine()
	e.Add("a", "#111111")
	e.Add("b", "#222222")
	e.SelectByID("a")
	e.SelectByID("b")

	if len(s.calls) != 2 || s.calls[0] != "a" || s.calls[1] != "b" {
		t.Errorf("callbacks = %v, want [a b]", s.calls)
	}
	if id, _ := e.Selected(); id != "b" {
		t.Errorf("selected = %q, want b", id)
	}
	a, _ := e.Entity("a")
	if a.Glow != GlowDefault || a.Selected {
		t.Errorf("a = %+v, want default glow and unselected", a)
	}
	b, _ := e.Entity("b")
	if b.Glow != GlowSelected || !b.Selected {
		t.Errorf("b = %+v, want selected glow", b)
	}
}

func TestClearSelectionFromUnselectedIsNoop(t *testing.T) {
	e, _, _, s := newTestEngine()
	e.Add("a", "#111111")
	e.ClearSelection()

	if len(s.calls) != 0 {
		t.Errorf("callbacks = %v, want none", s.calls)
	}
}

func TestOnSelectedReplacesCallback(t *testing.T) {
	e, _, _, first := newTestEngine()
	second := &selections{}
	e.OnSelected(second.record)

	e.Add("a", "#111111")
	e.SelectByID("a")

	if len(first.calls) != 0 {
		t.Errorf("replaced callback still invoked: %v", first.calls)
	}
	if len(second.calls) != 1 {
		t.Errorf("callbacks = %v, want [a]", second.calls)
	}
}

func TestRemoveSelectedClearsSelection(t *testing.T) {
	e, _, _, s := newTestEngine()
	e.Add("a", "#111111")
	e.Add("b", "#222222")
	e.SelectByID("a")
	e.RemoveByID("a")

	if _, ok := e.Selected(); ok {
		t.Error("selection should be cleared after removing the selected entity")
	}
	if len(s.calls) != 2 || s.calls[1] != "" {
		t.Errorf("callbacks = %v, want [a \"\"]", s.calls)
	}

	// Follow has nothing to chase.
	before := e.Camera().Position
	e.UpdateCameraFollow()
	if e.Camera().Position != before {
		t.Error("camera moved without a follow target")
	}

	// Removing an unselected entity does not notify.
	e.RemoveByID("b")
	if len(s.calls) != 2 {
		t.Errorf("callbacks = %v, want no further notification", s.calls)
	}
}

func TestGlowPulseSkipsSelected(t *testing.T) {
	e, _, _, _ := newTestEngine()
	e.Add("a", "#111111")
	e.Add("b", "#222222")
	e.Add("c", "#333333")
	e.SelectByID("b")

	const ts = 500.0
	e.UpdateGlowPulse(ts)

	a, _ := e.Entity("a")
	if want := PulseIntensity(ts, 0); a.Glow != want {
		t.Errorf("a glow = %v, want %v", a.Glow, want)
	}
	b, _ := e.Entity("b")
	if b.Glow != GlowSelected {
		t.Errorf("selected glow = %v, want %v", b.Glow, GlowSelected)
	}
	c, _ := e.Entity("c")
	if want := PulseIntensity(ts, 2); c.Glow != want {
		t.Errorf("c glow = %v, want %v", c.Glow, want)
	}
	if a.Glow == c.Glow {
		t.Error("pulses should be desynchronised")
	}
}

func TestCameraFollow(t *testing.T) {
	e, _, _, _ := newTestEngine()
	e.Add("a", "#111111")
	e.Update("a", Vec3{Y: 1.04}, nil)

	// No target yet.
	e.UpdateCameraFollow()
	if e.Camera().Position != DefaultCameraPosition {
		t.Fatalf("camera moved without selection: %v", e.Camera().Position)
	}

	e.SelectByID("a")
	e.UpdateCameraFollow()

	cam := e.Camera()
	want := Vec3{Z: 3.5}.Lerp(Vec3{Y: 3.5}, FollowFactor)
	if !approxVec(cam.Position, want, 1e-12) {
		t.Errorf("camera = %v, want %v", cam.Position, want)
	}
	if cam.Target != (Vec3{}) {
		t.Errorf("target = %v, want origin", cam.Target)
	}
}

func TestFocusAnimation(t *testing.T) {
	e, _, _, _ := newTestEngine()
	e.Add("a", "#111111")
	e.Update("a", Vec3{X: 1.04}, nil)
	e.SelectByID("a")

	if !e.Focusing() {
		t.Fatal("selection should start a focus animation")
	}

	start := DefaultCameraPosition
	end := Vec3{X: FocusDistance}

	e.UpdateFocus(1000)
	if got := e.Camera().Position; !approxVec(got, start, 1e-12) {
		t.Errorf("t=0: camera = %v, want %v", got, start)
	}

	e.UpdateFocus(1000 + FocusDuration/2)
	if got, want := e.Camera().Position, start.Lerp(end, 0.5); !approxVec(got, want, 1e-12) {
		t.Errorf("t=half: camera = %v, want %v", got, want)
	}

	e.UpdateFocus(1000 + FocusDuration)
	if got := e.Camera().Position; !approxVec(got, end, 1e-12) {
		t.Errorf("t=end: camera = %v, want %v", got, end)
	}
	if e.Focusing() {
		t.Error("animation should terminate at progress 1")
	}
}

func TestFocusSupersededStartsFromLiveCamera(t *testing.T) {
	e, _, _, _ := newTestEngine()
	e.Add("a", "#111111")
	e.Add("b", "#222222")
	e.Update("a", Vec3{X: 1.04}, nil)
	e.Update("b", Vec3{Y: 1.04}, nil)

	e.SelectByID("a")
	e.UpdateFocus(0)
	e.UpdateFocus(FocusDuration / 2)
	mid := e.Camera().Position

	e.SelectByID("b")
	e.UpdateFocus(5000)
	if got := e.Camera().Position; !approxVec(got, mid, 1e-12) {
		t.Errorf("new animation started at %v, want live position %v", got, mid)
	}

	e.UpdateFocus(5000 + FocusDuration)
	if got, want := e.Camera().Position, (Vec3{Y: FocusDistance}); !approxVec(got, want, 1e-12) {
		t.Errorf("camera = %v, want %v", got, want)
	}
}

func TestSetVisibility(t *testing.T) {
	tests := []struct {
		mode                 Visibility
		visible, transparent bool
	}{
		{Visible, true, false},
		{Hidden, false, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			e, _, _, _ := newTestEngine()
			e.Add("a", "#111111")
			e.SetVisibility(tt.mode)

			f := e.Snapshot(0)
			if f.Globe.EarthVisible != tt.visible || f.Globe.AtmosphereVisible != tt.visible {
				t.Errorf("globe = %+v, want visible=%v", f.Globe, tt.visible)
			}
			if f.Globe.EarthTransparent != tt.transparent {
				t.Errorf("transparent = %v, want %v", f.Globe.EarthTransparent, tt.transparent)
			}
			if len(f.Entities) != 1 {
				t.Error("entities must render regardless of globe visibility")
			}
		})
	}
}

func TestToggle(t *testing.T) {
	e, _, _, _ := newTestEngine()
	if got := e.Toggle(); got != Hidden {
		t.Errorf("first toggle = %q, want hidden", got)
	}
	if got := e.Toggle(); got != Visible {
		t.Errorf("second toggle = %q, want visible", got)
	}
}

func TestDisposeAll(t *testing.T) {
	e, r, p, s := newTestEngine()
	e.Add("a", "#111111")
	e.Add("b", "#222222")
	e.SelectByID("a")

	e.DisposeAll()

	if e.Len() != 0 {
		t.Errorf("Len = %d, want 0", e.Len())
	}
	if len(r.releases) != 4 {
		t.Errorf("releases = %v, want 4", r.releases)
	}
	if p.detached != 1 {
		t.Errorf("pointer detached %d times, want 1", p.detached)
	}
	if s.calls[len(s.calls)-1] != "" {
		t.Errorf("callbacks = %v, want trailing clear", s.calls)
	}

	// Disposing again is harmless.
	e.DisposeAll()
	if p.detached != 1 {
		t.Errorf("pointer detached %d times, want 1", p.detached)
	}
}

func TestSnapshotOrder(t *testing.T) {
	e, _, _, _ := newTestEngine()
	for _, id := range []string{"c", "a", "b"} {
		e.Add(id, "#000000")
	}
	e.RemoveByID("a")
	e.Add("d", "#000000")

	f := e.Snapshot(42)
	var got []string
	for _, v := range f.Entities {
		got = append(got, v.ID)
	}
	want := []string{"c", "b", "d"}
	if len(got) != len(want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ids = %v, want %v", got, want)
		}
	}
	if f.Timestamp != 42 {
		t.Errorf("ts = %v", f.Timestamp)
	}
}

// TestISSScenario walks the register, update, select, clear sequence
// through the controller and the frame loop.
func TestISSScenario(t *testing.T) {
	e, r, _, s := newTestEngine()
	c := NewController(e)
	loop := NewLoop(e, testLogger())

	c.Add("ISS", "#ff0000")
	trail := []Vec3{{X: 1}, {Y: 1}, {Z: 1}}
	c.Update("ISS", Vec3{X: 1, Y: 0, Z: 0}, trail)
	loop.Tick(16)

	f := r.lastFrame(t)
	if len(f.Entities) != 1 {
		t.Fatalf("rendered %d entities, want 1", len(f.Entities))
	}
	iss := f.Entities[0]
	if iss.ID != "ISS" || iss.Color != "#ff0000" {
		t.Errorf("entity = %+v", iss)
	}
	if iss.Position != (Vec3{X: 1}) {
		t.Errorf("mesh at %v, want (1,0,0)", iss.Position)
	}
	if len(iss.Trail) != 3 {
		t.Errorf("trail has %d points, want 3", len(iss.Trail))
	}

	e.SelectByID("ISS")
	if len(s.calls) != 1 || s.calls[0] != "ISS" {
		t.Fatalf("callbacks = %v, want [ISS]", s.calls)
	}
	loop.Tick(32)
	if v, _ := e.Entity("ISS"); v.Glow != GlowSelected {
		t.Errorf("glow = %v, want %v", v.Glow, GlowSelected)
	}
	if f := r.lastFrame(t); f.Selected != "ISS" || !f.Entities[0].Selected {
		t.Errorf("frame selection = %q", f.Selected)
	}

	e.ClearSelection()
	if len(s.calls) != 2 || s.calls[1] != "" {
		t.Fatalf("callbacks = %v, want [ISS \"\"]", s.calls)
	}
	if v, _ := e.Entity("ISS"); v.Glow != GlowDefault {
		t.Errorf("glow = %v, want %v", v.Glow, GlowDefault)
	}

	c.Remove("ISS")
	if e.Len() != 0 {
		t.Errorf("Len = %d after controller remove", e.Len())
	}
}
