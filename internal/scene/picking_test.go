package scene

import (
	"math"
	"testing"
)

// project maps a world point to surface coordinates; the inverse of the
// picking ray construction.
func project(c Camera, s Surface, p Vec3) (x, y float64) {
	forward, right, up := c.basis()
	d := p.Sub(c.Position)
	depth := d.Dot(forward)
	tanHalf := math.Tan(c.Fov * math.Pi / 360)

	ndcX := d.Dot(right) / depth / (tanHalf * c.Aspect)
	ndcY := d.Dot(up) / depth / tanHalf
	x = s.Left + (ndcX+1)/2*s.Width
	y = s.Top + (1-ndcY)/2*s.Height
	return x, y
}

func TestSurfaceNDC(t *testing.T) {
	s := Surface{Left: 100, Top: 50, Width: 800, Height: 600}
	tests := []struct {
		name string
		x, y float64
		ndcX float64
		ndcY float64
	}{
		{"centre", 500, 350, 0, 0},
		{"top left", 100, 50, -1, 1},
		{"bottom right", 900, 650, 1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, ok := s.NDC(tt.x, tt.y)
			if !ok {
				t.Fatal("unexpected degenerate surface")
			}
			if math.Abs(x-tt.ndcX) > 1e-12 || math.Abs(y-tt.ndcY) > 1e-12 {
				t.Errorf("NDC = (%v, %v), want (%v, %v)", x, y, tt.ndcX, tt.ndcY)
			}
		})
	}

	if _, _, ok := (Surface{Width: 0, Height: 600}).NDC(1, 1); ok {
		t.Error("zero-width surface should not produce NDC")
	}
}

func TestCameraRayCentre(t *testing.T) {
	c := NewCamera(4.0 / 3.0)
	origin, dir := c.Ray(0, 0)
	if origin != DefaultCameraPosition {
		t.Errorf("origin = %v", origin)
	}
	if !approxVec(dir, Vec3{Z: -1}, 1e-12) {
		t.Errorf("dir = %v, want (0,0,-1)", dir)
	}
}

func TestIntersectSphere(t *testing.T) {
	tests := []struct {
		name   string
		origin Vec3
		dir    Vec3
		center Vec3
		wantT  float64
		hit    bool
	}{
		{"head on", Vec3{Z: 5}, Vec3{Z: -1}, Vec3{}, 4, true},
		{"miss", Vec3{Z: 5}, Vec3{Z: -1}, Vec3{X: 2}, 0, false},
		{"behind", Vec3{Z: 5}, Vec3{Z: 1}, Vec3{}, 0, false},
		{"inside", Vec3{}, Vec3{X: 1}, Vec3{}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := intersectSphere(tt.origin, tt.dir, tt.center, 1)
			if ok != tt.hit {
				t.Fatalf("hit = %v, want %v", ok, tt.hit)
			}
			if ok && math.Abs(got-tt.wantT) > 1e-12 {
				t.Errorf("t = %v, want %v", got, tt.wantT)
			}
		})
	}
}

func TestClickSelectsEntity(t *testing.T) {
	e, _, p, s := newTestEngine()
	e.Add("ISS", "#ff0000")
	e.Add("POLAR", "#00ff00")
	e.Update("ISS", Vec3{X: 1.04}, nil)
	e.Update("POLAR", Vec3{Y: 1.04}, nil)

	x, y := project(e.Camera(), DefaultSurface, Vec3{X: 1.04})
	p.click(x, y)

	if id, _ := e.Selected(); id != "ISS" {
		t.Fatalf("selected = %q, want ISS", id)
	}
	if len(s.calls) != 1 || s.calls[0] != "ISS" {
		t.Errorf("callbacks = %v, want [ISS]", s.calls)
	}

	// Clicking the selected entity again changes nothing.
	p.click(x, y)
	if len(s.calls) != 1 {
		t.Errorf("callbacks = %v, re-click must be a no-op", s.calls)
	}
}

func TestClickEmptySpaceClears(t *testing.T) {
	e, _, p, s := newTestEngine()
	e.Add("ISS", "#ff0000")
	e.Update("ISS", Vec3{Z: 1.04}, nil)
	e.SelectByID("ISS")

	p.click(5, 5)

	if _, ok := e.Selected(); ok {
		t.Error("click on empty space should deselect")
	}
	if len(s.calls) != 2 || s.calls[1] != "" {
		t.Errorf("callbacks = %v, want [ISS \"\"]", s.calls)
	}

	// Nothing selected: another miss is silent.
	p.click(5, 5)
	if len(s.calls) != 2 {
		t.Errorf("callbacks = %v, want no extra notification", s.calls)
	}
}

func TestClickPicksNearest(t *testing.T) {
	e, _, p, _ := newTestEngine()
	e.Add("far", "#111111")
	e.Add("near", "#222222")
	// Both on the camera's line of sight; near is closer to the camera at z=3.5.
	e.Update("far", Vec3{Z: 0.5}, nil)
	e.Update("near", Vec3{Z: 1.04}, nil)

	p.click(DefaultSurface.Width/2, DefaultSurface.Height/2)

	if id, _ := e.Selected(); id != "near" {
		t.Errorf("selected = %q, want near", id)
	}
}

func TestClickRespectsSurfaceOffset(t *testing.T) {
	e, _, p, _ := newTestEngine()
	surface := Surface{Left: 200, Top: 100, Width: 1000, Height: 500}
	e.Resize(surface)
	e.Add("ISS", "#ff0000")
	e.Update("ISS", Vec3{X: -0.6, Y: 0.4, Z: 0.74}, nil)

	if got := e.Camera().Aspect; got != 2 {
		t.Errorf("aspect = %v, want 2", got)
	}

	x, y := project(e.Camera(), surface, Vec3{X: -0.6, Y: 0.4, Z: 0.74})
	p.click(x, y)

	if id, _ := e.Selected(); id != "ISS" {
		t.Errorf("selected = %q, want ISS", id)
	}
}

func TestClickAfterDisposeIgnored(t *testing.T) {
	e, _, p, s := newTestEngine()
	e.Add("ISS", "#ff0000")
	e.Update("ISS", Vec3{Z: 1.04}, nil)
	e.DisposeAll()

	p.click(DefaultSurface.Width/2, DefaultSurface.Height/2)
	if len(s.calls) != 0 {
		t.Errorf("callbacks = %v, want none after dispose", s.calls)
	}
}
