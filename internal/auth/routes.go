package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Middleware is an interface for HTTP middleware
type Middleware func(http.Handler) http.Handler

// RegisterRoutes registers all authentication routes with the Chi router.
// The credential endpoints (register, login, forgot) carry the stricter
// rate limit; everything under the protected group requires a valid
// session cookie.
func RegisterRoutes(r chi.Router, handler *Handler, requireUser, requireSession, authLimiter Middleware) {
	r.Route("/auth", func(r chi.Router) {
		// Credential-accepting routes sit behind the per-IP auth limiter
		r.Group(func(r chi.Router) {
			r.Use(authLimiter)
			r.Post("/register", handler.Register)
			r.Post("/login", handler.Login)
			r.Post("/password/forgot", handler.ForgotPassword)
		})

		// Reset links authenticate by token, not cookie
		r.Get("/password/reset/{token}", handler.CheckResetToken)
		r.Post("/password/reset/{token}", handler.ResetPassword)

		// Protected routes (valid session cookie required)
		r.Group(func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/me", handler.GetMe)
			r.Put("/me", handler.UpdateProfile)
			r.Post("/password", handler.ChangePassword)

			r.Get("/sessions", handler.ListSessions)
			r.Post("/sessions/revoke", handler.RevokeSession)

			r.Post("/tokens", handler.CreateAPIToken)
			r.Get("/tokens", handler.ListAPITokens)
			r.Delete("/tokens/{id}", handler.RevokeAPIToken)

			r.Post("/account/delete", handler.DeleteAccount)
		})

		// These need the concrete session record, not just a user
		r.Group(func(r chi.Router) {
			r.Use(requireSession)
			r.Post("/logout", handler.Logout)
			r.Post("/sessions/revoke-others", handler.RevokeOtherSessions)
		})
	})
}
