package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/danniokta/notesafe/internal/auth"
	appctx "github.com/danniokta/notesafe/internal/context"
)

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Success   bool        `json:"success"`
	Error     ErrorDetail `json:"error"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SessionAuth resolves the cookie identity on every request. It never
// rejects by itself: requests without a valid session simply continue
// anonymously, and RequireUser guards the protected routes.
type SessionAuth struct {
	sessions *auth.SessionService
	cookies  auth.CookiePolicy
}

// NewSessionAuth creates a new SessionAuth middleware instance
func NewSessionAuth(sessions *auth.SessionService, cookies auth.CookiePolicy) *SessionAuth {
	return &SessionAuth{
		sessions: sessions,
		cookies:  cookies,
	}
}

// Handler validates the session cookie when present. A valid session is
// re-issued as a cookie carrying the possibly renewed expiry; an invalid
// one is cleared from the client.
func (m *SessionAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(auth.SessionCookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		session, user := m.sessions.ValidateSessionToken(r.Context(), cookie.Value)
		if session == nil {
			m.cookies.ClearSessionCookie(w)
			next.ServeHTTP(w, r)
			return
		}

		m.cookies.SetSessionCookie(w, cookie.Value, session.ExpiresAt)

		ctx := appctx.WithUser(r.Context(), user)
		ctx = appctx.WithSession(ctx, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser rejects requests that reached a protected route without a
// resolved identity.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := appctx.User(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, auth.CodeUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSession additionally demands a cookie session, for actions that
// operate on the current session (logout, revoke-others).
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := appctx.Session(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, auth.CodeUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeError writes a JSON error response in the standard envelope
func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
		Timestamp: time.Now().UTC(),
	})
}
