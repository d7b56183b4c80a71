package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	applog "aurabudget/internal/log"
	"aurabudget/internal/storage"
	"aurabudget/internal/views"
)

func (s *Server) viewFilter(r *http.Request, name string) (storage.ExpenseFilter, error) {
	if name != views.NameExpenses {
		return storage.ExpenseFilter{}, nil
	}
	return ParseExpenseFilter(r.URL.Query())
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	f, err := s.viewFilter(r, name)
	if err != nil {
		s.writeError(w, r, "build_view", err)
		return
	}
	v, err := s.deps.Views.Build(r.Context(), name, f)
	if err != nil {
		s.writeError(w, r, "build_view", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// eventStream writes Server-Sent Events for one view.
type eventStream struct {
	w     http.ResponseWriter
	rc    *http.ResponseController
	event string
	seq   int
}

func (es *eventStream) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s view: %w", es.event, err)
	}
	es.seq++
	if _, err := fmt.Fprintf(es.w, "id: %d\nevent: %s\ndata: %s\n\n", es.seq, es.event, data); err != nil {
		return err
	}
	return es.rc.Flush()
}

func (es *eventStream) ping() error {
	if _, err := fmt.Fprint(es.w, ": keep-alive\n\n"); err != nil {
		return err
	}
	return es.rc.Flush()
}

// handleViewStream sends a loading placeholder, then the view, then a fresh
// view after every committed change until the client goes away or the server
// shuts down.
func (s *Server) handleViewStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.PathValue("name")
	loading, err := views.Loading(name, s.now())
	if err != nil {
		s.writeError(w, r, "stream_view", fmt.Errorf("%w: %q", err, name))
		return
	}
	f, err := s.viewFilter(r, name)
	if err != nil {
		s.writeError(w, r, "stream_view", err)
		return
	}

	changes, cancel := s.deps.Hub.Subscribe()
	defer cancel()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	logger := applog.FromContext(ctx)
	es := &eventStream{w: w, rc: http.NewResponseController(w), event: name}
	build := func() error {
		v, err := s.deps.Views.Build(ctx, name, f)
		if err != nil {
			return err
		}
		return es.send(v)
	}

	if err := es.send(loading); err != nil {
		logger.DebugContext(ctx, "View stream closed", applog.FieldView, name, "error", err)
		return
	}
	if err := build(); err != nil {
		logger.DebugContext(ctx, "View stream closed", applog.FieldView, name, "error", err)
		return
	}
	logger.DebugContext(ctx, "View stream opened", applog.FieldView, name)

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		var err error
		select {
		case <-ctx.Done():
			return
		case <-s.streams.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			logger.DebugContext(ctx, "Refreshing streamed view", applog.FieldView, name,
				applog.FieldEntity, c.Entity, "kind", c.Kind)
			err = build()
		case <-heartbeat.C:
			err = es.ping()
		}
		if err != nil {
			logger.DebugContext(ctx, "View stream closed", applog.FieldView, name, "error", err)
			return
		}
	}
}
