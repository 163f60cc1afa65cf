package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const heartbeatInterval = 15 * time.Second

type event struct {
	name string
	data []byte
}

// hub fans named events out to every open stream
type hub struct {
	mu   sync.Mutex
	subs map[chan event]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[chan event]struct{})}
}

func (h *hub) subscribe() (<-chan event, func()) {
	ch := make(chan event, 8)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
		})
	}
}

// broadcast drops the event for streams that are not keeping up
func (h *hub) broadcast(name string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- event{name: name, data: data}:
		default:
		}
	}
}

func writeEvent(w io.Writer, name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return writeRaw(w, name, data)
}

func writeRaw(w io.Writer, name string, data []byte) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}

// getSessionEvents streams session snapshots as server-sent events, plus
// health and playlist changes
func (s *Server) getSessionEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.renderJSON(w, http.StatusInternalServerError, errorBody{Error: "streaming unsupported"})
		return
	}

	snapshots, cancel := s.deps.Session.Subscribe(16)
	defer cancel()
	events, unsubscribe := s.hub.subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "session", s.deps.Session.Snapshot()); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		var err error
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			err = writeEvent(w, "session", snap)
		case ev := <-events:
			err = writeRaw(w, ev.name, ev.data)
		case <-heartbeat.C:
			_, err = io.WriteString(w, ": ping\n\n")
		}
		if err != nil {
			s.logger.Debug("Event stream closed",
				zap.String("requestID", requestID(r.Context())),
				zap.Error(err))
			return
		}
		flusher.Flush()
	}
}
