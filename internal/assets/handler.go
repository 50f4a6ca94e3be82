package assets

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nutcracker-app/nutcracker/internal/api"
)

// Handler serves signed asset fetches.
type Handler struct {
	repo   *Repository
	signer *Signer
}

func NewHandler(repo *Repository, signer *Signer) *Handler {
	return &Handler{repo: repo, signer: signer}
}

// Serve handles GET /assets/{assetID}.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "assetID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid asset id"))
		return
	}

	q := r.URL.Query()
	if err := h.signer.Verify(id, q.Get("exp"), q.Get("sig")); err != nil {
		switch {
		case errors.Is(err, ErrExpired):
			api.HandleError(w, &api.AppError{Code: http.StatusForbidden, Message: "link expired"})
		default:
			api.HandleError(w, api.ErrForbidden)
		}
		return
	}

	mimeType, data, err := h.repo.Fetch(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			api.HandleError(w, api.ErrNotFound)
			return
		}
		slog.Error("fetching asset", "asset_id", id, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
