package stream

import (
	"sync"

	"github.com/OlivierFch/sky-track/internal/metrics"
	"github.com/OlivierFch/sky-track/internal/scene"
)

// releaseBuffer bounds the release notices queued per subscriber.
const releaseBuffer = 64

// Hub is the scene renderer behind the SSE stream. It keeps only the most
// recent frame; each stream samples it at its own rate, so a slow client
// skips frames instead of queueing them. Release notices are queued per
// subscriber and dropped when a subscriber falls too far behind.
type Hub struct {
	mu    sync.Mutex
	frame scene.Frame
	seq   uint64
	subs  map[*subscriber]struct{}
}

type subscriber struct {
	releases chan releaseMessage
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*subscriber]struct{})}
}

// Render stores f as the latest frame.
func (h *Hub) Render(f scene.Frame) {
	h.mu.Lock()
	h.frame = f
	h.seq++
	h.mu.Unlock()
}

// Release forwards a release notice to every subscriber.
func (h *Hub) Release(kind scene.Kind, id string) {
	msg := releaseMessage{Type: "release", Kind: string(kind), ID: id}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.releases <- msg:
		default:
			metrics.IncStreamErrors("release_dropped")
		}
	}
}

// Latest returns the most recent frame and its sequence number. seq is 0
// until the first frame is rendered.
func (h *Hub) Latest() (scene.Frame, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frame, h.seq
}

// Subscribers returns the number of attached streams.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) subscribe() *subscriber {
	s := &subscriber{releases: make(chan releaseMessage, releaseBuffer)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *Hub) unsubscribe(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}
