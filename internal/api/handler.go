package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/danniokta/notesafe/internal/auth"
	appctx "github.com/danniokta/notesafe/internal/context"
)

// Handler serves the programmatic API surface reached with bearer tokens
// rather than session cookies.
type Handler struct {
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger}
}

// GetUser returns the profile of the token's owner
// GET /api/v1/user
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, ok := appctx.User(r.Context())
	if !ok {
		// The bearer middleware guards this route; reaching here
		// without a user means a wiring bug.
		h.logger.Error("API route reached without authenticated user")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"message": "Internal server error"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(auth.APIResponse{
		Success: true,
		Data: auth.UserResponse{
			ID:       user.ID,
			Username: user.Username,
			Age:      user.Age,
			Bio:      user.Bio,
		},
		Timestamp: time.Now().UTC(),
	})
}
