package support

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/nutcracker-app/nutcracker/internal/api"
)

// Handler exposes the support pipeline over HTTP.
type Handler struct {
	orchestrator *Orchestrator
	validate     *validator.Validate
}

func NewHandler(orchestrator *Orchestrator) *Handler {
	return &Handler{orchestrator: orchestrator, validate: validator.New()}
}

type messageRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Message   string `json:"message" validate:"required"`
	Context   string `json:"context"`
}

// Message handles POST /api/v1/support/message.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError("session_id and message are required"))
		return
	}

	reply, err := h.orchestrator.HandleMessage(r.Context(), req.SessionID, req.Message, req.Context)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptySession), errors.Is(err, ErrEmptyMessage):
			api.HandleError(w, api.NewBadRequestError(err.Error()))
		default:
			slog.Error("support message failed", "error", err)
			api.HandleError(w, &api.AppError{
				Code:    http.StatusServiceUnavailable,
				Message: "Support is temporarily unavailable. Please try again shortly.",
			})
		}
		return
	}

	status := http.StatusOK
	if reply.RateLimited {
		if reply.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(reply.RetryAfter))
		}
		status = http.StatusTooManyRequests
	}
	api.JSON(w, status, reply)
}
