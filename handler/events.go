package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lambda-feedback/nodewarden/internal/supervisor"
	"go.uber.org/zap"
)

// EventResponse is the wire representation of a state transition.
type EventResponse struct {
	ID             string           `json:"id"`
	State          supervisor.State `json:"state"`
	Time           time.Time        `json:"time"`
	Detail         string           `json:"detail,omitempty"`
	Error          string           `json:"error,omitempty"`
	Pid            int              `json:"pid,omitempty"`
	StopFailed     bool             `json:"stop_failed,omitempty"`
	ExitDetectedAt *time.Time       `json:"exit_detected_at,omitempty"`
}

func NewEventResponse(e supervisor.Event) EventResponse {
	res := EventResponse{
		ID:         e.ID,
		State:      e.State,
		Time:       e.Time,
		Detail:     e.Detail,
		Pid:        e.Pid,
		StopFailed: e.StopFailed,
	}

	if e.Err != nil {
		res.Error = e.Err.Error()
	}

	if !e.ExitDetectedAt.IsZero() {
		detected := e.ExitDetectedAt
		res.ExitDetectedAt = &detected
	}

	return res
}

// Events streams state transitions as server-sent events until the client
// disconnects or the supervisor stops.
func (h *ControlHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Message: "streaming unsupported"})
		return
	}

	events, unsubscribe := h.supervisor.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// let the client know where the node stands before the first transition
	if err := writeSSE(w, "", "status", h.status()); err != nil {
		return
	}
	flusher.Flush()

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case e, ok := <-events:
			if !ok {
				return
			}

			if err := writeSSE(w, e.ID, "transition", NewEventResponse(e)); err != nil {
				h.log.Debug("failed to write event", zap.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, id, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	if id != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", id); err != nil {
			return err
		}
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
