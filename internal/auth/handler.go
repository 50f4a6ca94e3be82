package auth

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/nutcracker-app/nutcracker/internal/api"
)

type Handler struct {
	jwtMgr *JWTManager
}

func NewHandler(jwtMgr *JWTManager) *Handler {
	return &Handler{jwtMgr: jwtMgr}
}

// CreateSession issues an anonymous session token. Each call mints a fresh
// identity; the PWA stores the token and its user ID in localStorage.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID := uuid.New().String()

	token, err := h.jwtMgr.GenerateSessionToken(userID)
	if err != nil {
		slog.Error("creating session token", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusCreated, map[string]any{
		"user_id":    userID,
		"token":      token.Token,
		"expires_in": token.ExpiresIn,
	})
}
