package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"hypogate/internal"
)

const (
	SSE_CLIENT_BUFFER  = 16
	SSE_PING_INTERVAL  = 30 * time.Second
	SSE_ALL_EXPERIMENT = "*"
)

// Event is an experiment progress notification.
type Event struct {
	ExperimentID string                 `json:"experiment_id"`
	EventType    string                 `json:"event_type"`
	Status       string                 `json:"status,omitempty"`
	Phase        string                 `json:"phase,omitempty"`
	Data         map[string]interface{} `json:"data,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
}

// EventHub fans experiment events out to Server-Sent Events clients.
// Clients subscribe to one experiment or to all of them.
type EventHub struct {
	mu      sync.RWMutex
	clients map[string]map[chan Event]struct{}
	logger  *internal.Logger
}

// NewEventHub creates a new SSE hub
func NewEventHub(logger *internal.Logger) *EventHub {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &EventHub{
		clients: make(map[string]map[chan Event]struct{}),
		logger:  logger.Named("sse"),
	}
}

func (h *EventHub) subscribe(key string) chan Event {
	ch := make(chan Event, SSE_CLIENT_BUFFER)
	h.mu.Lock()
	if h.clients[key] == nil {
		h.clients[key] = make(map[chan Event]struct{})
	}
	h.clients[key][ch] = struct{}{}
	h.logger.Debug("client subscribed to %s (total clients: %d)", key, len(h.clients[key]))
	h.mu.Unlock()
	return ch
}

func (h *EventHub) unsubscribe(key string, ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.clients[key]; ok {
		delete(clients, ch)
		if len(clients) == 0 {
			delete(h.clients, key)
		}
	}
}

// Broadcast delivers event to the experiment's subscribers and to the
// catch-all subscribers. Slow clients miss events rather than block.
func (h *EventHub) Broadcast(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, key := range []string{event.ExperimentID, SSE_ALL_EXPERIMENT} {
		for ch := range h.clients[key] {
			select {
			case ch <- event:
			default:
				h.logger.Warn("client channel full for %s, skipping %s event", key, event.EventType)
			}
		}
	}
}

// ClientCount returns the number of subscribers for an experiment id.
func (h *EventHub) ClientCount(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[key])
}

// HandleSSE streams events. ?experiment_id= narrows the stream.
func (h *EventHub) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	key := r.URL.Query().Get("experiment_id")
	if key == "" {
		key = SSE_ALL_EXPERIMENT
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := h.subscribe(key)
	defer h.unsubscribe(key, ch)

	ping := time.NewTicker(SSE_PING_INTERVAL)
	defer ping.Stop()
	ctx := r.Context()
	for {
		select {
		case event := <-ch:
			raw, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed to marshal event: %v", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.EventType, raw)
			flusher.Flush()
		case <-ping.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%q}\n\n", time.Now().UTC().Format(time.RFC3339))
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}
