package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/danniokta/notesafe/internal/auth"
	appctx "github.com/danniokta/notesafe/internal/context"
)

// apiMessage is the bare error body used on the API namespace
type apiMessage struct {
	Message string `json:"message"`
}

// BearerAuth authenticates API-namespace requests with an Authorization
// bearer token. Unlike the cookie path it is mandatory: a request without a
// valid token never reaches a business handler. Bearer identity carries no
// session object.
type BearerAuth struct {
	tokens *auth.APITokenService
}

// NewBearerAuth creates a new BearerAuth middleware instance
func NewBearerAuth(tokens *auth.APITokenService) *BearerAuth {
	return &BearerAuth{tokens: tokens}
}

// Handler validates the Authorization header and attaches the identity
func (m *BearerAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeAPIMessage(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			writeAPIMessage(w, http.StatusUnauthorized, "Invalid authorization header")
			return
		}

		user, token := m.tokens.ValidateAPIToken(r.Context(), parts[1])
		if user == nil {
			writeAPIMessage(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := appctx.WithUser(r.Context(), user)
		ctx = appctx.WithAPIToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeAPIMessage writes the bare {"message": ...} body used by the API
// namespace error contract.
func writeAPIMessage(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiMessage{Message: message})
}
