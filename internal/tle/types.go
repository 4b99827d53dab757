package tle

import (
	"strings"
	"time"
)

// Ephemeris is a single object's two-line element set. It is immutable once
// fetched; Name is its identity.
type Ephemeris struct {
	Name  string `json:"name"`
	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
}

// NORADID returns the catalog number from line 1, or 0 when it cannot be read.
func (e Ephemeris) NORADID() int {
	id, err := noradID(e.Line1)
	if err != nil {
		return 0
	}
	return id
}

// Epoch returns the element-set epoch from line 1, or the zero time when it
// cannot be read.
func (e Ephemeris) Epoch() time.Time {
	if len(e.Line1) < 32 {
		return time.Time{}
	}
	t, err := parseEpoch(strings.TrimSpace(e.Line1[18:32]))
	if err != nil {
		return time.Time{}
	}
	return t
}
