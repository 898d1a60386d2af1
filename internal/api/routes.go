package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the bearer-token API under the given router.
// Every route here goes through the bearer middleware; there is no
// anonymous access on this surface.
func RegisterRoutes(r chi.Router, handler *Handler, bearerAuth func(next http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(bearerAuth)
		r.Get("/user", handler.GetUser)
	})
}
