package http

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/go-chi/chi/v5"
)

type streamEvent struct {
	Kind      domain.EventKind `json:"kind"`
	NodeID    string           `json:"node_id,omitempty"`
	Iteration int              `json:"iteration,omitempty"`
	Messages  int              `json:"messages,omitempty"`
	Error     string           `json:"error,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// StreamManager handles active SSE connections
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan string]struct{} // RunID -> Set of Channels
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan string]struct{}),
	}
}

// Subscribe registers a channel for the events of runID.
// The returned func unsubscribes; it is safe to call after Close.
func (sm *StreamManager) Subscribe(runID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 64)
	if _, ok := sm.subscribers[runID]; !ok {
		sm.subscribers[runID] = make(map[chan string]struct{})
	}
	sm.subscribers[runID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[runID]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, runID)
			}
		}
	}
}

// Broadcast sends msg to every subscriber of runID without blocking.
func (sm *StreamManager) Broadcast(runID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[runID] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
		}
	}
}

// Close ends every subscription of runID.
func (sm *StreamManager) Close(runID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for ch := range sm.subscribers[runID] {
		close(ch)
	}
	delete(sm.subscribers, runID)
}

// Len returns the number of subscribers of runID.
func (sm *StreamManager) Len(runID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[runID])
}

// SubscribeEvents handles GET /v1/runs/{id}/events (SSE). Clients subscribe
// before posting a run with the same run_id and receive its events until it ends.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	runID := chi.URLParam(r, "id")
	ch, cancel := s.Streams.Subscribe(runID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				fmt.Fprintf(w, "event: done\ndata: %s\n\n", runID)
				flusher.Flush()
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
