package generation

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nutcracker-app/nutcracker/internal/api"
	"github.com/nutcracker-app/nutcracker/internal/auth"
	"github.com/nutcracker-app/nutcracker/internal/quota"
)

// Handler exposes the generation pipeline and quota status over HTTP.
type Handler struct {
	orchestrator *Orchestrator
	quota        *quota.Service
	validate     *validator.Validate
}

func NewHandler(orchestrator *Orchestrator, quotaSvc *quota.Service) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		quota:        quotaSvc,
		validate:     validator.New(),
	}
}

type generateRequest struct {
	AnimalID string `json:"animal_id" validate:"required"`
	SeedText string `json:"seed_text" validate:"required"`
}

// Generate handles POST /api/v1/generate.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetSessionClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		api.HandleError(w, api.ErrInvalidToken)
		return
	}

	var req generateRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError("animal_id and seed_text are required"))
		return
	}

	result, err := h.orchestrator.Generate(r.Context(), userID, req.AnimalID, req.SeedText)
	if err != nil {
		h.handleGenerateError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleGenerateError(w http.ResponseWriter, err error) {
	var (
		verr  *ValidationError
		qerr  *QuotaExceededError
		cperr *ContentPolicyError
		terr  *TransientUpstreamError
	)
	switch {
	case errors.As(err, &verr):
		api.HandleError(w, api.NewBadRequestError(verr.Error()))
	case errors.As(err, &qerr):
		api.HandleError(w, api.NewRateLimitedError(quotaMessage(qerr), qerr.RetryAfter))
	case errors.As(err, &cperr):
		api.HandleError(w, api.NewBadRequestError("That idea can't be used. Try rephrasing it."))
	case errors.As(err, &terr):
		api.HandleError(w, &api.AppError{
			Code:    http.StatusServiceUnavailable,
			Message: "The studio is busy right now. Please try again in a moment.",
		})
	case errors.Is(err, quota.ErrUnavailable):
		api.HandleError(w, &api.AppError{
			Code:    http.StatusServiceUnavailable,
			Message: "Generation is temporarily unavailable. Please try again shortly.",
		})
	default:
		slog.Error("generation failed", "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}

func quotaMessage(err *QuotaExceededError) string {
	switch err.Reason {
	case quota.ReasonBudgetCap:
		return fmt.Sprintf("The studio has reached today's capacity. Come back in %s.", humanDuration(err.RetryAfter))
	default:
		return fmt.Sprintf("You've used all of today's creations. More arrive in %s.", humanDuration(err.RetryAfter))
	}
}

// humanDuration renders a retry hint like "8h 30m" or "45s".
func humanDuration(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// QuotaStatus handles GET /api/v1/quota.
func (h *Handler) QuotaStatus(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetSessionClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		api.HandleError(w, api.ErrInvalidToken)
		return
	}

	st, err := h.quota.Status(r.Context(), userID)
	if err != nil {
		api.HandleError(w, &api.AppError{
			Code:    http.StatusServiceUnavailable,
			Message: "Quota status is temporarily unavailable.",
		})
		return
	}
	api.JSON(w, http.StatusOK, st)
}
