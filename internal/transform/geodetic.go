package transform

import (
	"math"

	satellite "github.com/joshuaferrara/go-satellite"
)

const rad2deg = 180.0 / math.Pi

// Geodetic is a point relative to the WGS84 ellipsoid.
type Geodetic struct {
	Lat float64 `json:"lat"` // degrees, [-90, 90]
	Lon float64 `json:"lon"` // degrees, [-180, 180]
	Alt float64 `json:"alt"` // km above the ellipsoid
}

// Finite reports whether every coordinate is a finite number.
func (g Geodetic) Finite() bool {
	for _, v := range [...]float64{g.Lat, g.Lon, g.Alt} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ECIToGeodetic converts an inertial position (km) to geodetic coordinates
// using the sidereal angle gmst (radians).
func ECIToGeodetic(x, y, z, gmst float64) Geodetic {
	alt, _, ll := satellite.ECIToLLA(satellite.Vector3{X: x, Y: y, Z: z}, gmst)
	return Geodetic{
		Lat: ll.Latitude * rad2deg,
		Lon: NormalizeLongitude(ll.Longitude * rad2deg),
		Alt: alt,
	}
}

// NormalizeLongitude wraps lon (degrees) into [-180, 180].
func NormalizeLongitude(lon float64) float64 {
	if lon >= -180 && lon <= 180 {
		return lon
	}
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}
