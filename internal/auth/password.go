package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for new hashes. Verification reads the parameters out
// of the stored hash string, so these can change without invalidating
// existing credentials.
const (
	argonMemory      = 19456
	argonTime        = 2
	argonParallelism = 1
	argonKeyLength   = 32
	argonSaltLength  = 16
)

// PasswordHasher hashes and verifies passwords with Argon2id.
// Hashing is deliberately slow; callers should expect it to take on the
// order of tens to hundreds of milliseconds.
type PasswordHasher struct {
	memory      uint32
	time        uint32
	parallelism uint8
	keyLength   uint32
}

// NewPasswordHasher creates a PasswordHasher with the default parameters
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{
		memory:      argonMemory,
		time:        argonTime,
		parallelism: argonParallelism,
		keyLength:   argonKeyLength,
	}
}

// Hash derives an Argon2id hash of the password and encodes it in the PHC
// string format, embedding the parameters and salt alongside the digest.
func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.time, h.memory, h.parallelism, h.keyLength)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.memory,
		h.time,
		h.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// Verify reports whether the password matches the stored hash. Malformed
// hash strings are rejected rather than reported as errors: any input that
// cannot be parsed is simply not a match.
func (h *PasswordHasher) Verify(encodedHash, password string) bool {
	memory, timeCost, parallelism, salt, key, ok := decodeHash(encodedHash)
	if !ok {
		return false
	}

	derived := argon2.IDKey([]byte(password), salt, timeCost, memory, parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(derived, key) == 1
}

// decodeHash parses a PHC-formatted argon2id hash string
func decodeHash(encodedHash string) (memory, timeCost uint32, parallelism uint8, salt, key []byte, ok bool) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return 0, 0, 0, nil, nil, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return 0, 0, 0, nil, nil, false
	}

	var p uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &p); err != nil {
		return 0, 0, 0, nil, nil, false
	}
	if memory == 0 || timeCost == 0 || p == 0 || p > 255 {
		return 0, 0, 0, nil, nil, false
	}
	parallelism = uint8(p)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return 0, 0, 0, nil, nil, false
	}

	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return 0, 0, 0, nil, nil, false
	}

	return memory, timeCost, parallelism, salt, key, true
}
