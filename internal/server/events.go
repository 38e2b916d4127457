package server

import (
	"net/http"
	"sync"

	"github.com/starfederation/datastar-go/datastar"
)

// Hub fans out change pings to subscribed event streams. A ping carries no
// payload; subscribers re-read what they display.
type Hub struct {
	mu        sync.Mutex
	listeners map[chan struct{}]struct{}
	closed    bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{listeners: make(map[chan struct{}]struct{})}
}

// Subscribe registers a listener. The channel is closed by Unsubscribe or
// when the hub closes.
func (h *Hub) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch
	}
	h.listeners[ch] = struct{}{}
	return ch
}

// Unsubscribe removes ch and closes it.
func (h *Hub) Unsubscribe(ch chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.listeners[ch]; ok {
		delete(h.listeners, ch)
		close(ch)
	}
}

// Broadcast pings every listener without blocking; a listener with a
// pending ping is skipped.
func (h *Hub) Broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close closes all listeners and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.listeners {
		close(ch)
	}
	clear(h.listeners)
}

// Len reports the number of subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// handleEvents streams the saved-dashboard list as datastar signal patches,
// once on connect and again after every save or delete.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(ch)

	sse := datastar.NewSSE(w, r)
	push := func() error {
		list, err := s.cfg.Store.List(r.Context())
		if err != nil {
			return err
		}
		return sse.MarshalAndPatchSignals(map[string]any{"saved": list})
	}

	if err := push(); err != nil {
		s.logger.Warn("event stream failed", "error", err)
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			if err := push(); err != nil {
				s.logger.Warn("event stream failed", "error", err)
				return
			}
		}
	}
}
