package propagation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/OlivierFch/sky-track/internal/transform"
)

// SGP4 library: github.com/joshuaferrara/go-satellite.
//
// Propagate() takes the Satellite by value, so SGP4 error codes raised
// during propagation are not visible to the caller. Failures are detected
// from the output instead (NaN/Inf, implausible radius).

// Radius bounds (km) for a plausible propagated position.
const (
	minRadiusKm = 6200.0
	maxRadiusKm = 500000.0
)

// SGP4Propagator wraps an initialised SGP4 record for one element set.
type SGP4Propagator struct {
	sat        satellite.Satellite
	noradID    string
	meanMotion float64 // rad/min
}

// NewSGP4Propagator initialises SGP4 from the two element lines.
//
// The lines are pre-validated because go-satellite calls log.Fatal on
// malformed input, which would take the process down.
func NewSGP4Propagator(line1, line2 string) (*SGP4Propagator, error) {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)
	if err := validateTLELines(line1, line2); err != nil {
		return nil, fmt.Errorf("invalid TLE: %w", err)
	}

	revsPerDay, err := strconv.ParseFloat(strings.TrimSpace(line2[52:63]), 64)
	if err != nil || revsPerDay <= 0 {
		return nil, fmt.Errorf("invalid TLE: mean motion %q", line2[52:63])
	}

	id := strings.TrimSpace(line1[2:7])
	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed for NORAD %s: code=%d %s", id, sat.Error, sat.ErrorStr)
	}

	return &SGP4Propagator{
		sat:        sat,
		noradID:    id,
		meanMotion: revsPerDay * 2 * math.Pi / 1440.0,
	}, nil
}

// validateTLELines performs basic format validation on trimmed TLE lines.
func validateTLELines(line1, line2 string) error {
	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}
	return nil
}

// NORADID returns the catalog number from line 1.
func (p *SGP4Propagator) NORADID() string {
	return p.noradID
}

// MeanMotion returns the mean motion in radians per minute.
func (p *SGP4Propagator) MeanMotion() float64 {
	return p.meanMotion
}

// Period returns the orbital period derived from the mean motion.
func (p *SGP4Propagator) Period() time.Duration {
	seconds := 2 * math.Pi / p.meanMotion * 60
	return time.Duration(seconds * float64(time.Second))
}

// Propagate returns the geodetic position at t. ok is false when SGP4
// produces no usable result (decayed orbit, epoch too far, NaN output).
func (p *SGP4Propagator) Propagate(t time.Time) (transform.Geodetic, bool) {
	t = t.UTC()
	pos, _ := satellite.Propagate(p.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) ||
		math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return transform.Geodetic{}, false
	}

	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if mag < minRadiusKm || mag > maxRadiusKm {
		return transform.Geodetic{}, false
	}

	g := transform.ECIToGeodetic(pos.X, pos.Y, pos.Z, transform.GMST(t))
	if !g.Finite() {
		return transform.Geodetic{}, false
	}
	return g, true
}
