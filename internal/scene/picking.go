package scene

import "math"

// Surface is the on-screen rectangle the scene is drawn into, in the same
// coordinate space as pointer events.
type Surface struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DefaultSurface is used until the host reports its real size.
var DefaultSurface = Surface{Width: 800, Height: 600}

func (s Surface) aspect() float64 {
	if s.Width <= 0 || s.Height <= 0 {
		return DefaultSurface.Width / DefaultSurface.Height
	}
	return s.Width / s.Height
}

// NDC converts a pointer position to normalised device coordinates.
// ok is false for a degenerate surface.
func (s Surface) NDC(x, y float64) (ndcX, ndcY float64, ok bool) {
	if s.Width <= 0 || s.Height <= 0 {
		return 0, 0, false
	}
	ndcX = (x-s.Left)/s.Width*2 - 1
	ndcY = -(y-s.Top)/s.Height*2 + 1
	return ndcX, ndcY, true
}

// intersectSphere returns the distance along a unit ray to the nearest
// intersection in front of origin with the sphere (center, radius).
func intersectSphere(origin, dir, center Vec3, radius float64) (float64, bool) {
	oc := origin.Sub(center)
	b := oc.Dot(dir)
	c := oc.Dot(oc) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	if t := -b - sq; t >= 0 {
		return t, true
	}
	if t := -b + sq; t >= 0 {
		return t, true
	}
	return 0, false
}

// pickLocked returns the entity whose marker is hit first by the ray through
// pointer position (x, y). The caller holds e.mu.
func (e *Engine) pickLocked(x, y float64) (string, bool) {
	ndcX, ndcY, ok := e.surface.NDC(x, y)
	if !ok {
		return "", false
	}
	origin, dir := e.camera.Ray(ndcX, ndcY)

	var (
		hitID string
		hitT  = math.Inf(1)
	)
	for _, ent := range e.ordered {
		t, ok := intersectSphere(origin, dir, ent.position, MarkerRadius)
		if !ok || t < e.camera.Near || t > e.camera.Far {
			continue
		}
		if t < hitT {
			hitT, hitID = t, ent.id
		}
	}
	return hitID, hitID != ""
}
