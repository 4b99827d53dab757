package scene

import "math"

// Default camera and globe geometry.
const (
	DefaultFov       = 45.0
	DefaultNear      = 0.01
	DefaultFar       = 100.0
	EarthRadius      = 1.0
	AtmosphereRadius = 1.02
	MarkerRadius     = 0.015
)

// DefaultCameraPosition is where the camera starts, looking at the origin.
var DefaultCameraPosition = Vec3{X: 0, Y: 0, Z: 3.5}

// Camera is a perspective camera. Target is the orbit-controls pivot the
// camera looks at.
type Camera struct {
	Position Vec3    `json:"position"`
	Target   Vec3    `json:"target"`
	Up       Vec3    `json:"up"`
	Fov      float64 `json:"fov"` // vertical, degrees
	Aspect   float64 `json:"aspect"`
	Near     float64 `json:"near"`
	Far      float64 `json:"far"`
}

// NewCamera returns the default camera for a surface with the given aspect.
func NewCamera(aspect float64) Camera {
	return Camera{
		Position: DefaultCameraPosition,
		Up:       Vec3{Y: 1},
		Fov:      DefaultFov,
		Aspect:   aspect,
		Near:     DefaultNear,
		Far:      DefaultFar,
	}
}

// LookAtOrigin re-aims the camera and its orbit pivot at the scene origin.
func (c *Camera) LookAtOrigin() {
	c.Target = Vec3{}
}

// basis returns the camera's forward, right and up unit vectors.
func (c Camera) basis() (forward, right, up Vec3) {
	forward = c.Target.Sub(c.Position).Normalize()
	right = forward.Cross(c.Up).Normalize()
	if right.IsZero() {
		// Looking straight along Up; any perpendicular axis will do.
		right = forward.Cross(Vec3{Z: 1}).Normalize()
		if right.IsZero() {
			right = Vec3{X: 1}
		}
	}
	up = right.Cross(forward)
	return forward, right, up
}

// Ray returns the world-space ray through normalised device coordinates
// (ndcX, ndcY), each in [-1, 1] with +Y up.
func (c Camera) Ray(ndcX, ndcY float64) (origin, dir Vec3) {
	forward, right, up := c.basis()
	tanHalf := math.Tan(c.Fov * math.Pi / 360)

	dir = forward.
		Add(right.Scale(ndcX * tanHalf * c.Aspect)).
		Add(up.Scale(ndcY * tanHalf)).
		Normalize()
	return c.Position, dir
}
