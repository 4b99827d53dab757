package propagation

import (
	"time"

	"github.com/OlivierFch/sky-track/internal/transform"
)

// Position is a propagation capability: element set in, geodetic point out.
// ok=false means no result for this instant and is not an error.
type Position interface {
	Propagate(t time.Time) (transform.Geodetic, bool)
	Period() time.Duration
}

// Sample is one propagated point of a time series.
type Sample struct {
	Time     time.Time
	Geodetic transform.Geodetic
	OK       bool
}

// PropConfig holds propagation settings.
type PropConfig struct {
	Workers   int // worker pool size (default: runtime.NumCPU())
	CacheSize int // initialised SGP4 records kept in memory (default: 256)
}
