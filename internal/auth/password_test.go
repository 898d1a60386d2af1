package auth

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestPasswordHashAndVerify(t *testing.T) {
	hasher := NewPasswordHasher()

	hash, err := hasher.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("expected PHC argon2id format, got %q", hash)
	}
	if !hasher.Verify(hash, "correct horse battery staple") {
		t.Error("correct password should verify")
	}
	if hasher.Verify(hash, "correct horse battery stapler") {
		t.Error("wrong password should not verify")
	}
	if hasher.Verify(hash, "") {
		t.Error("empty password should not verify")
	}
}

func TestPasswordHashesAreSalted(t *testing.T) {
	hasher := NewPasswordHasher()

	h1, err := hasher.Hash("samepassword")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h2, err := hasher.Hash("samepassword")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if h1 == h2 {
		t.Error("two hashes of the same password should differ (random salt)")
	}
	if !hasher.Verify(h1, "samepassword") || !hasher.Verify(h2, "samepassword") {
		t.Error("both hashes should verify against the password")
	}
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	hasher := NewPasswordHasher()

	cases := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"not a hash", "hello world"},
		{"wrong algorithm", "$argon2i$v=19$m=19456,t=2,p=1$c2FsdA$a2V5"},
		{"missing sections", "$argon2id$v=19$m=19456,t=2,p=1"},
		{"bad version", "$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$a2V5"},
		{"bad params", "$argon2id$v=19$m=zero,t=2,p=1$c2FsdA$a2V5"},
		{"zero parallelism", "$argon2id$v=19$m=19456,t=2,p=0$c2FsdA$a2V5"},
		{"invalid salt encoding", "$argon2id$v=19$m=19456,t=2,p=1$!!!$a2V5"},
		{"invalid key encoding", "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$!!!"},
		{"bcrypt hash", "$2a$10$N9qo8uLOickgx2ZMRZoMye"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if hasher.Verify(tc.hash, "anything") {
				t.Errorf("malformed hash %q should not verify", tc.hash)
			}
		})
	}
}

// For any password within the accepted length range, hashing then verifying
// with the same password succeeds and verifying with a different password
// fails.
func TestPasswordRoundTripProperty(t *testing.T) {
	hasher := NewPasswordHasher()

	rapid.Check(t, func(t *rapid.T) {
		password := rapid.StringMatching(`[ -~]{6,40}`).Draw(t, "password")

		hash, err := hasher.Hash(password)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !hasher.Verify(hash, password) {
			t.Fatal("password should verify against its own hash")
		}
		if hasher.Verify(hash, password+"x") {
			t.Fatal("different password should not verify")
		}
	})
}
