package scene

import "math"

// Vec3 is a point or direction in scene space. The scene is Y-up with the
// globe centred on the origin and an Earth radius of 1.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }

func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }

func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }

func (a Vec3) Dot(b Vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

func (a Vec3) Len() float64 { return math.Sqrt(a.Dot(a)) }

// Normalize returns the unit vector along a, or the zero vector if a is zero.
func (a Vec3) Normalize() Vec3 {
	l := a.Len()
	if l == 0 {
		return Vec3{}
	}
	return a.Scale(1 / l)
}

// Lerp interpolates linearly from a towards b by t.
func (a Vec3) Lerp(b Vec3, t float64) Vec3 {
	return a.Add(b.Sub(a).Scale(t))
}

// IsZero reports whether a is exactly the origin.
func (a Vec3) IsZero() bool { return a == Vec3{} }

// FromGeodetic maps latitude and longitude (degrees) onto a sphere of the
// given radius: x = r·cos(lat)·cos(lon), y = r·sin(lat), z = r·cos(lat)·sin(lon).
func FromGeodetic(latDeg, lonDeg, radius float64) Vec3 {
	lat := latDeg * math.Pi / 180
	lon := lonDeg * math.Pi / 180
	return Vec3{
		X: radius * math.Cos(lat) * math.Cos(lon),
		Y: radius * math.Sin(lat),
		Z: radius * math.Cos(lat) * math.Sin(lon),
	}
}
