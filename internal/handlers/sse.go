package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tapboard/internal/app"
)

const sseKeepAlive = 25 * time.Second

// eventStream writes server-sent events with increasing ids.
type eventStream struct {
	w     http.ResponseWriter
	f     http.Flusher
	seq   int
	retry time.Duration
}

func newEventStream(w http.ResponseWriter) (*eventStream, bool) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	return &eventStream{w: w, f: f, retry: 3 * time.Second}, true
}

func (s *eventStream) send(typ string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	s.seq++
	if s.seq == 1 {
		fmt.Fprintf(s.w, "retry: %d\n", s.retry.Milliseconds())
	}
	if _, err := fmt.Fprintf(s.w, "id: %d\nevent: %s\ndata: %s\n\n", s.seq, typ, b); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

func (s *eventStream) ping() error {
	if _, err := fmt.Fprint(s.w, ": ping\n\n"); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

// PourEventsGet streams the client's pour view ("pour" events) and every
// inventory write ("inventory" events).
func (s *Server) PourEventsGet(w http.ResponseWriter, r *http.Request) {
	stream, ok := newEventStream(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	id := app.ClientID(r)
	e := s.App.Pours().Engine(r.Context(), id)
	events, unsubscribe := s.App.SSE().Subscribe([]string{app.TopicClient(id), app.TopicInventory()}, 32)
	defer unsubscribe()

	if err := stream.send("pour", e.Snapshot()); err != nil {
		return
	}

	keep := time.NewTicker(sseKeepAlive)
	defer keep.Stop()

	for {
		var err error
		select {
		case <-r.Context().Done():
			return
		case <-keep.C:
			s.App.Pours().Touch(id)
			err = stream.ping()
		case ev, open := <-events:
			if !open {
				return
			}
			err = stream.send(ev.Type, ev.Data)
		}
		if err != nil {
			s.App.Logger().Debug("event stream closed", "client", id, "err", err)
			return
		}
	}
}
