package tle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

const issText = "ISS (ZARYA)\n1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9005\n2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09\n"

// TestFetcherBodyLimit verifies that oversized responses return an error
// instead of consuming unbounded memory.
func TestFetcherBodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		chunk := strings.Repeat("A", 256*1024)
		for i := 0; i < 6; i++ {
			if _, err := w.Write([]byte(chunk)); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	fetcher := NewFetcher(server.URL, testLogger)
	_, err := fetcher.Retrieve(context.Background(), "ISS (ZARYA)")
	if err == nil {
		t.Fatal("expected error for oversized response, got nil")
	}
	if !strings.Contains(err.Error(), "byte limit") {
		t.Errorf("expected body limit error, got: %v", err)
	}
}

// TestFetcherSuccess verifies the query string and body passthrough.
func TestFetcherSuccess(t *testing.T) {
	var gotName, gotFormat string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotName = r.URL.Query().Get("NAME")
		gotFormat = r.URL.Query().Get("FORMAT")
		w.Write([]byte(issText))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.URL, testLogger)
	text, err := fetcher.Retrieve(context.Background(), "ISS (ZARYA)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != issText {
		t.Errorf("body mismatch: got %d bytes, want %d", len(text), len(issText))
	}
	if gotName != "ISS (ZARYA)" {
		t.Errorf("NAME = %q, want %q", gotName, "ISS (ZARYA)")
	}
	if gotFormat != "TLE" {
		t.Errorf("FORMAT = %q, want TLE", gotFormat)
	}
}

// TestFetcherHTTPError verifies non-200 responses become a FetchError.
func TestFetcherHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(server.URL, testLogger)
	_, err := fetcher.Retrieve(context.Background(), "NOPE")

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", fe.StatusCode, http.StatusNotFound)
	}
	if fe.Name != "NOPE" {
		t.Errorf("name = %q, want NOPE", fe.Name)
	}
}

// TestFetcherTransportError verifies connection failures are FetchErrors.
func TestFetcherTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewFetcher(url, testLogger).Retrieve(context.Background(), "ISS")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.Err == nil {
		t.Error("expected wrapped transport error")
	}
}

func TestFetcherDefaultSource(t *testing.T) {
	f := NewFetcher("", testLogger)
	if f.SourceURL() != DefaultSourceURL {
		t.Errorf("SourceURL = %q, want %q", f.SourceURL(), DefaultSourceURL)
	}
}
