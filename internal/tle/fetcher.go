package tle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// DefaultSourceURL is the celestrak GP endpoint queried by object name.
const DefaultSourceURL = "https://celestrak.org/NORAD/elements/gp.php"

// maxBodyBytes caps a single-object response. One element set is ~170 bytes;
// a name query can match a handful of objects.
const maxBodyBytes = 1 << 20

// Retriever returns the raw multi-line element-set text for an object name.
type Retriever interface {
	Retrieve(ctx context.Context, name string) (string, error)
}

// Fetcher retrieves raw TLE text from a celestrak-compatible HTTP source.
type Fetcher struct {
	sourceURL  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher for the given source URL.
func NewFetcher(sourceURL string, logger *slog.Logger) *Fetcher {
	if sourceURL == "" {
		sourceURL = DefaultSourceURL
	}
	return &Fetcher{
		sourceURL: sourceURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// SourceURL returns the configured source URL.
func (f *Fetcher) SourceURL() string {
	return f.sourceURL
}

// requestURL builds "<source>?NAME=<name>&FORMAT=TLE", keeping any query the
// source URL already carries.
func (f *Fetcher) requestURL(name string) (string, error) {
	u, err := url.Parse(f.sourceURL)
	if err != nil {
		return "", fmt.Errorf("parsing source URL: %w", err)
	}
	q := u.Query()
	q.Set("NAME", name)
	q.Set("FORMAT", "TLE")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Retrieve performs an HTTP GET for name. Every failure is a *FetchError.
func (f *Fetcher) Retrieve(ctx context.Context, name string) (string, error) {
	target, err := f.requestURL(name)
	if err != nil {
		return "", &FetchError{Name: name, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", &FetchError{Name: name, Err: fmt.Errorf("creating request: %w", err)}
	}

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", &FetchError{Name: name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{Name: name, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return "", &FetchError{Name: name, Err: fmt.Errorf("reading response body: %w", err)}
	}
	if len(body) > maxBodyBytes {
		return "", &FetchError{Name: name, Err: fmt.Errorf("response exceeds %d byte limit", maxBodyBytes)}
	}

	f.logger.Debug("TLE retrieved",
		"component", "tle",
		"name", name,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return string(body), nil
}
