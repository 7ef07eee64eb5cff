// Package realtime fans domain events out to connected browsers over
// server-sent events. It is the delivery half of the change-subscription
// surface: the API publishes to Kafka, the hub consumes and pushes.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/example/storefront/internal/event"
)

// subscriberBuffer bounds how far a slow client may fall behind before
// events are dropped for it.
const subscriberBuffer = 16

// Hub routes event envelopes to subscribers by envelope key. A subscriber
// with an empty key receives every event (the back-office firehose).
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan event.Envelope]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan event.Envelope]struct{})}
}

// Subscribe registers interest in events for key. The returned cancel
// function must be called when the subscriber disconnects.
func (h *Hub) Subscribe(key string) (<-chan event.Envelope, func()) {
	ch := make(chan event.Envelope, subscriberBuffer)

	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[chan event.Envelope]struct{})
	}
	h.subs[key][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs[key], ch)
		if len(h.subs[key]) == 0 {
			delete(h.subs, key)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// HandleEvent is the Kafka consumer handler; it decodes the envelope and
// delivers it to matching subscribers. Slow subscribers are skipped rather
// than blocking delivery.
func (h *Hub) HandleEvent(ctx context.Context, key, value []byte) error {
	var env event.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		log.Printf("[Realtime] Failed to decode event: %v", err)
		return err
	}

	h.mu.Lock()
	targets := make([]chan event.Envelope, 0)
	for ch := range h.subs[env.Key] {
		targets = append(targets, ch)
	}
	for ch := range h.subs[""] {
		targets = append(targets, ch)
	}
	h.mu.Unlock()

	for _, ch := range targets {
		select {
		case ch <- env:
		default:
		}
	}
	return nil
}

// ServeSSE streams events for key to the client until it disconnects.
func (h *Hub) ServeSSE(w http.ResponseWriter, r *http.Request, key string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := h.Subscribe(key)
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case env := <-ch:
			data, err := json.Marshal(env)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", env.Type, data)
			flusher.Flush()
		}
	}
}
