// Package context carries the per-request identity resolved by the auth
// middleware. Downstream handlers read the identity from here and never see
// raw tokens.
package context

import (
	"context"

	"github.com/danniokta/notesafe/internal/repository"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UserKey is the context key for the authenticated user
	UserKey ContextKey = "user"
	// SessionKey is the context key for the cookie session, when the
	// identity was resolved from a session cookie
	SessionKey ContextKey = "session"
	// APITokenKey is the context key for the API token record, when the
	// identity was resolved from a bearer token
	APITokenKey ContextKey = "api_token"
)

// WithUser stores the authenticated user on the context
func WithUser(ctx context.Context, user *repository.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// WithSession stores the cookie session on the context
func WithSession(ctx context.Context, session *repository.Session) context.Context {
	return context.WithValue(ctx, SessionKey, session)
}

// WithAPIToken stores the validated API token record on the context
func WithAPIToken(ctx context.Context, token *repository.APIToken) context.Context {
	return context.WithValue(ctx, APITokenKey, token)
}

// User extracts the authenticated user from the request context
func User(ctx context.Context) (*repository.User, bool) {
	user, ok := ctx.Value(UserKey).(*repository.User)
	return user, ok && user != nil
}

// Session extracts the cookie session from the request context.
// Bearer-authenticated requests have a user but no session.
func Session(ctx context.Context) (*repository.Session, bool) {
	session, ok := ctx.Value(SessionKey).(*repository.Session)
	return session, ok && session != nil
}

// APIToken extracts the API token record from the request context
func APIToken(ctx context.Context) (*repository.APIToken, bool) {
	token, ok := ctx.Value(APITokenKey).(*repository.APIToken)
	return token, ok && token != nil
}
