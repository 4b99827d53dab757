package tle

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseEphemeris builds an Ephemeris from the raw text returned for name.
// The text is split into trimmed lines and blank lines are dropped; the first
// three remaining lines are taken as name, line 1 and line 2.
func ParseEphemeris(name, text string) (Ephemeris, error) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	if len(lines) < 3 {
		return Ephemeris{}, &ParseError{Name: name, Lines: len(lines)}
	}

	return Ephemeris{
		Name:  lines[0],
		Line1: lines[1],
		Line2: lines[2],
	}, nil
}

// noradID extracts the catalog number from line 1 cols 3-7.
func noradID(line1 string) (int, error) {
	if len(line1) < 7 {
		return 0, fmt.Errorf("line1 too short: %d", len(line1))
	}
	return strconv.Atoi(strings.TrimSpace(line1[2:7]))
}

// parseEpoch converts a TLE epoch string in YYDDD.DDDDDDDD format to time.Time.
// Year 00-56 → 2000s, 57-99 → 1900s.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch string too short: %q", s)
	}

	yearStr := s[:2]
	dayStr := s[2:]

	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", yearStr, err)
	}

	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(dayStr, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", dayStr, err)
	}

	// dayOfYear is 1-based: day 1 = Jan 1.
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return t.Add(time.Duration((dayOfYear - 1) * float64(24*time.Hour))), nil
}
