package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/greencred/greencred/internal/app/engagement"
	"github.com/greencred/greencred/internal/domain"
	"github.com/greencred/greencred/internal/infra/observability"
)

// ─── Engagement API ─────────────────────────────────────────────────────────
//
// GET /api/summary             — windows, status counts, categories, level, goal
// GET /api/achievements        — all achievements (locked + unlocked)
// GET /api/verification/stats  — review scheduler counters
// GET /api/events/live         — SSE stream of ledger events

// handleSummary returns the dashboard snapshot.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, engagement.Summarize(s.ledger.Snapshot(), s.weeklyGoal, s.now()))
}

// handleAchievements returns every achievement with unlock status.
func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	list := engagement.Achievements(s.ledger.Snapshot(), s.now())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"unlocked":     engagement.UnlockedCount(list),
		"total":        len(list),
		"achievements": list,
	})
}

// handleVerificationStats returns scheduler counters.
func (s *Server) handleVerificationStats(w http.ResponseWriter, r *http.Request) {
	if s.verifier == nil {
		writeError(w, http.StatusServiceUnavailable, "verifier not running")
		return
	}
	writeJSON(w, http.StatusOK, s.verifier.Stats())
}

// ─── Live Event Feed ────────────────────────────────────────────────────────

// EventHub fans ledger events out to SSE clients. Implements domain.EventSink.
type EventHub struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
	buffer  int
}

// NewEventHub creates a new broadcast hub.
func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[chan []byte]struct{}),
		buffer:  32,
	}
}

// Publish sends an event to all connected clients.
func (h *EventHub) Publish(e domain.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	msg := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", e.Seq, e.Type, data))

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
			// Slow client; drop.
		}
	}
}

// Subscribe registers a new client. Returns the channel and an unsubscribe func.
func (h *EventHub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, h.buffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	observability.SSEClients.Inc()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients, ch)
			h.mu.Unlock()
			observability.SSEClients.Dec()
		})
	}
}

// ClientCount returns the number of connected clients.
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleSSE serves the live feed via Server-Sent Events.
// GET /api/events/live
func (h *EventHub) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ch, unsub := h.Subscribe()
	defer unsub()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-ch:
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
