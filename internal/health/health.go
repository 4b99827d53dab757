// Package health serves liveness and readiness probes.
package health

import (
	"net/http"
	"sync/atomic"
)

// Healthz returns 200 "ok\n" unconditionally.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// Probe tracks startup readiness. The service is ready once the default
// objects have been loaded, whether or not every one of them resolved.
type Probe struct {
	ready atomic.Bool
}

// MarkReady flips the probe to ready.
func (p *Probe) MarkReady() { p.ready.Store(true) }

// Ready reports the current state.
func (p *Probe) Ready() bool { return p.ready.Load() }

// Readyz returns 200 "ready\n" once MarkReady was called, 503 before.
func (p *Probe) Readyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if !p.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready\n"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready\n"))
}
