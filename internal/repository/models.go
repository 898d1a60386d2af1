package repository

import (
	"time"
)

// User represents a user account in the database.
// IDs are opaque 15-byte base32 strings (about 120 bits of entropy),
// generated by the auth package rather than the database.
type User struct {
	ID           string  `db:"id"`
	Username     string  `db:"username"`
	PasswordHash string  `db:"password_hash"`
	Age          *int    `db:"age"`
	Bio          *string `db:"bio"`
}

// Session represents an authentication session in the database.
// The ID is the hex SHA-256 of the raw session token, so a database
// compromise never exposes a live token.
type Session struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	IPAddress *string   `db:"ip_address"`
	UserAgent *string   `db:"user_agent"`
	CreatedAt time.Time `db:"created_at"`
}

// APIToken represents a long-lived bearer token for programmatic access.
// Only the SHA-256 hash of the raw token is stored.
type APIToken struct {
	ID         string     `db:"id"`
	UserID     string     `db:"user_id"`
	TokenHash  string     `db:"token_hash"`
	Name       string     `db:"name"`
	CreatedAt  time.Time  `db:"created_at"`
	ExpiresAt  *time.Time `db:"expires_at"`
	LastUsedAt *time.Time `db:"last_used_at"`
}

// APITokenInfo is the list projection of an API token. It deliberately
// omits the token hash.
type APITokenInfo struct {
	ID         string     `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt  *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	LastUsedAt *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
}

// PasswordResetToken represents a short-lived single-use reset token.
// Keyed by the token hash; at most one live token per user is enforced by
// the service deleting prior tokens on issue.
type PasswordResetToken struct {
	TokenHash string    `db:"token_hash"`
	UserID    string    `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
}
