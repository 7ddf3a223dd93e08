package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

const sseHeartbeat = 15 * time.Second

// topicSubscriber est implémenté par les bus capables de filtrer par préfixe de topic.
type topicSubscriber interface {
	SubscribeTopics(prefixes ...string) (<-chan ports.Event, func())
}

// handleEvents diffuse les événements du bus en SSE. ?topics=playback.,prayer. filtre par préfixe.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	if s.deps.Bus == nil {
		http.Error(w, "events unavailable", http.StatusServiceUnavailable)
		return
	}

	var prefixes []string
	if raw := r.URL.Query().Get("topics"); raw != "" {
		prefixes = strings.Split(raw, ",")
	}
	var (
		ch     <-chan ports.Event
		cancel func()
	)
	if ts, ok := s.deps.Bus.(topicSubscriber); ok {
		ch, cancel = ts.SubscribeTopics(prefixes...)
	} else {
		ch, cancel = s.deps.Bus.Subscribe()
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "event: hello\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			payload := evt.Payload
			if len(payload) == 0 {
				payload = []byte("{}")
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Topic, payload)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprintf(w, "event: ping\ndata: {}\n\n")
			flusher.Flush()
		}
	}
}
