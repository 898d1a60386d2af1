package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// Token byte lengths, sized per purpose: session and API tokens must resist
// brute force over their lifetime, entity IDs only need global uniqueness.
const (
	sessionTokenBytes = 18
	entityIDBytes     = 15 // ~120 bits, comparable to UUIDv4
	apiTokenBytes     = 32
	resetTokenBytes   = 20
)

// APITokenLength is the character length of a raw API token (hex encoded)
const APITokenLength = apiTokenBytes * 2

var base32NoPad = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSessionToken returns a new random session token, 18 bytes of
// randomness encoded base64url without padding.
func GenerateSessionToken() (string, error) {
	b, err := randomBytes(sessionTokenBytes)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateID returns a new opaque entity ID, 15 bytes of randomness encoded
// base32 lowercase without padding.
func GenerateID() (string, error) {
	b, err := randomBytes(entityIDBytes)
	if err != nil {
		return "", err
	}
	return strings.ToLower(base32NoPad.EncodeToString(b)), nil
}

// GenerateAPIToken returns a new random API bearer token, 32 bytes of
// randomness hex encoded (64 characters).
func GenerateAPIToken() (string, error) {
	b, err := randomBytes(apiTokenBytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateResetToken returns a new random password reset token, 20 bytes of
// randomness hex encoded.
func GenerateResetToken() (string, error) {
	b, err := randomBytes(resetTokenBytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashToken computes the hex SHA-256 digest of a raw token. The digest is
// the storage and lookup key; raw tokens never reach persisted state.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("reading random bytes: %w", err)
	}
	return b, nil
}
