package tle

import (
	"fmt"
	"net/http"
)

// FetchError reports that the external retrieval did not succeed, either at
// the transport level (Err set) or with a non-200 status (StatusCode set).
type FetchError struct {
	Name       string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetching TLE for %s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("fetching TLE for %s: unexpected status %d %s", e.Name, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports retrieved text that does not hold a name line followed
// by two element lines.
type ParseError struct {
	Name  string
	Lines int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid TLE data for %s: got %d non-empty lines, need 3", e.Name, e.Lines)
}
