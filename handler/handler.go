package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/lambda-feedback/nodewarden/config"
	"github.com/lambda-feedback/nodewarden/internal/process"
	"github.com/lambda-feedback/nodewarden/internal/supervisor"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Supervisor is the part of the supervisor exposed by the control API.
type Supervisor interface {
	State() supervisor.State
	Handle() (process.Handle, bool)
	Start(context.Context) error
	Stop(context.Context) error
	Subscribe() (<-chan supervisor.Event, func())
}

type ControlHandlerParams struct {
	fx.In

	Supervisor Supervisor
	Config     config.Config
	Log        *zap.Logger
}

// ControlHandler serves the control API of the supervisor.
type ControlHandler struct {
	supervisor Supervisor
	auth       config.AuthConfig
	keepAlive  time.Duration
	log        *zap.Logger
}

func NewControlHandler(params ControlHandlerParams) *ControlHandler {
	return &ControlHandler{
		supervisor: params.Supervisor,
		auth:       params.Config.Auth,
		keepAlive:  15 * time.Second,
		log:        params.Log.Named("control"),
	}
}

// StatusResponse describes the current state of the node.
type StatusResponse struct {
	State       supervisor.State `json:"state"`
	Pid         int              `json:"pid,omitempty"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	Elevated    bool             `json:"elevated"`
	CommandLine []string         `json:"command_line,omitempty"`
}

// ErrorResponse represents error response data.
type ErrorResponse struct {
	Message string `json:"message"`
}

func (h *ControlHandler) status() StatusResponse {
	res := StatusResponse{State: h.supervisor.State()}

	if handle, ok := h.supervisor.Handle(); ok {
		startedAt := handle.StartedAt
		res.Pid = handle.Pid
		res.StartedAt = &startedAt
		res.Elevated = handle.Elevated
		res.CommandLine = handle.CommandLine
	}

	return res
}

func (h *ControlHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.status())
}

func (h *ControlHandler) Start(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	if err := h.supervisor.Start(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, h.status())
}

func (h *ControlHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	if err := h.supervisor.Stop(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, h.status())
}

func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// authorize checks the api key, if one is configured. Only requests that
// change the state of the node are authorized.
func (h *ControlHandler) authorize(w http.ResponseWriter, r *http.Request) bool {
	if h.auth.Key == "" || r.Header.Get("api-key") == h.auth.Key {
		return true
	}

	h.log.Debug("unauthorized request",
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
	)

	h.writeJSON(w, http.StatusUnauthorized, ErrorResponse{Message: "unauthorized"})

	return false
}

// getErrorStatusCode returns the status code for the given error.
func getErrorStatusCode(err error) int {
	switch {
	case errors.Is(err, supervisor.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, supervisor.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *ControlHandler) writeError(w http.ResponseWriter, err error) {
	status := getErrorStatusCode(err)

	h.log.Debug("request failed", zap.Int("status", status), zap.Error(err))

	h.writeJSON(w, status, ErrorResponse{Message: err.Error()})
}

func (h *ControlHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		h.log.Error("failed to encode response", zap.Error(err))
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := w.Write(body); err != nil {
		h.log.Debug("failed to write response", zap.Error(err))
	}
}
