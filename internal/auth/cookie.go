package auth

import (
	"net/http"
	"time"
)

// CookiePolicy carries the environment-dependent attributes of the session
// cookie. The cookie is HttpOnly and SameSite=Lax everywhere; Secure only
// outside development so local HTTP setups keep working.
type CookiePolicy struct {
	Secure bool
}

// SetSessionCookie writes the raw session token as the auth cookie, expiring
// together with the session.
func (p CookiePolicy) SetSessionCookie(w http.ResponseWriter, rawToken string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    rawToken,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   p.Secure,
	})
}

// ClearSessionCookie removes the auth cookie from the client
func (p CookiePolicy) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   p.Secure,
	})
}
