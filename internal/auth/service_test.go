package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/danniokta/notesafe/internal/config"
	"github.com/danniokta/notesafe/internal/repository"
	"github.com/danniokta/notesafe/internal/sanitizer"
)

type testEnv struct {
	service  *AuthService
	users    *mockUserRepository
	sessions *mockSessionRepository
	resets   *mockPasswordResetRepository
}

func newTestAuthService() *testEnv {
	users := newMockUserRepository()
	sessions := newMockSessionRepository(users)
	resets := newMockPasswordResetRepository()

	cfg := config.AuthConfig{
		SessionTTL:              30 * 24 * time.Hour,
		SessionRenewalThreshold: 15 * 24 * time.Hour,
		ResetTokenTTL:           15 * time.Minute,
	}

	service := NewAuthService(
		users,
		NewSessionService(sessions, cfg, nil),
		NewPasswordResetService(resets, cfg, nil),
		NewPasswordHasher(),
		sanitizer.NewTextPolicy(),
		nil,
	)

	return &testEnv{service: service, users: users, sessions: sessions, resets: resets}
}

func TestRegisterCreatesUserAndSession(t *testing.T) {
	env := newTestAuthService()
	ctx := context.Background()

	result, err := env.service.Register(ctx, RegisterRequest{
		Username: "Alice_01",
		Password: "hunter22",
	}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.User.Username != "alice_01" {
		t.Errorf("username should be lowercased, got %q", result.User.Username)
	}
	if result.User.PasswordHash == "hunter22" {
		t.Error("password must not be stored in clear")
	}
	if !strings.HasPrefix(result.User.PasswordHash, "$argon2id$") {
		t.Errorf("expected argon2id hash, got %q", result.User.PasswordHash)
	}
	if result.RawToken == "" {
		t.Error("registration should log the user in")
	}
	if result.Session.ID != HashToken(result.RawToken) {
		t.Error("session ID should be the hash of the raw token")
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	env := newTestAuthService()
	ctx := context.Background()

	if _, err := env.service.Register(ctx, RegisterRequest{Username: "alice", Password: "hunter22"}, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Same username in a different case is still a duplicate.
	_, err := env.service.Register(ctx, RegisterRequest{Username: "ALICE", Password: "different"}, nil, nil)
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestLoginFlow(t *testing.T) {
	env := newTestAuthService()
	ctx := context.Background()

	registered, err := env.service.Register(ctx, RegisterRequest{Username: "bob", Password: "hunter22"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Wrong password and unknown username yield the same error.
	if _, err := env.service.Login(ctx, LoginRequest{Username: "bob", Password: "wrong"}, nil, nil); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := env.service.Login(ctx, LoginRequest{Username: "nobody", Password: "hunter22"}, nil, nil); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown username, got %v", err)
	}

	logged, err := env.service.Login(ctx, LoginRequest{Username: "BOB", Password: "hunter22"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logged.User.ID != registered.User.ID {
		t.Error("login should resolve the same user")
	}
	if logged.RawToken == registered.RawToken {
		t.Error("each login gets a fresh token")
	}

	// Both sessions are live: multi-session is supported.
	if len(env.sessions.sessions) != 2 {
		t.Errorf("expected 2 live sessions, got %d", len(env.sessions.sessions))
	}
}

func TestLogoutRemovesOnlyCurrentSession(t *testing.T) {
	env := newTestAuthService()
	ctx := context.Background()

	first, err := env.service.Register(ctx, RegisterRequest{Username: "carol", Password: "hunter22"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := env.service.Login(ctx, LoginRequest{Username: "carol", Password: "hunter22"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := env.service.Logout(ctx, first.Session.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := env.sessions.sessions[first.Session.ID]; ok {
		t.Error("logged-out session should be gone")
	}
	if _, ok := env.sessions.sessions[second.Session.ID]; !ok {
		t.Error("the other session should survive")
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestAuthService()
	ctx := context.Background()

	registered, err := env.service.Register(ctx, RegisterRequest{Username: "dave", Password: "oldpassword"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	userID := registered.User.ID

	err = env.service.ChangePassword(ctx, userID, ChangePasswordRequest{
		CurrentPassword: "not-the-password",
		NewPassword:     "newpassword",
		ConfirmPassword: "newpassword",
	})
	if !errors.Is(err, ErrIncorrectPassword) {
		t.Errorf("expected ErrIncorrectPassword, got %v", err)
	}

	err = env.service.ChangePassword(ctx, userID, ChangePasswordRequest{
		CurrentPassword: "oldpassword",
		NewPassword:     "newpassword",
		ConfirmPassword: "newpassword",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := env.service.Login(ctx, LoginRequest{Username: "dave", Password: "oldpassword"}, nil, nil); !errors.Is(err, ErrInvalidCredentials) {
		t.Error("old password should no longer log in")
	}
	if _, err := env.service.Login(ctx, LoginRequest{Username: "dave", Password: "newpassword"}, nil, nil); err != nil {
		t.Errorf("new password should log in, got %v", err)
	}
}

func TestUpdateProfileSanitizesBio(t *testing.T) {
	env := newTestAuthService()
	ctx := context.Background()

	registered, err := env.service.Register(ctx, RegisterRequest{Username: "erin", Password: "hunter22"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	age := 30
	bio := `I enjoy <script>alert("hiking")</script> hiking`
	err = env.service.UpdateProfile(ctx, registered.User.ID, UpdateProfileRequest{Age: &age, Bio: &bio})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user, err := env.service.GetUser(ctx, registered.User.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Age == nil || *user.Age != 30 {
		t.Error("age should be stored")
	}
	if user.Bio == nil {
		t.Fatal("bio should be stored")
	}
	if strings.Contains(*user.Bio, "<script>") {
		t.Errorf("bio should be sanitized, got %q", *user.Bio)
	}
}

func TestRequestPasswordResetUnknownUser(t *testing.T) {
	env := newTestAuthService()

	path, err := env.service.RequestPasswordReset(context.Background(), ForgotPasswordRequest{Username: "ghost"})
	if err != nil {
		t.Fatalf("an unknown username must not surface an error, got %v", err)
	}
	if path != "" {
		t.Error("no reset link should be issued for an unknown username")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestAuthService()
	ctx := context.Background()

	registered, err := env.service.Register(ctx, RegisterRequest{Username: "frank", Password: "oldpassword"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A second device logs in too.
	if _, err := env.service.Login(ctx, LoginRequest{Username: "frank", Password: "oldpassword"}, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path, err := env.service.RequestPasswordReset(ctx, ForgotPasswordRequest{Username: "frank"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rawToken := strings.TrimPrefix(path, "/auth/password/reset/")
	if rawToken == path || rawToken == "" {
		t.Fatalf("unexpected reset path %q", path)
	}

	if !env.service.ValidateResetToken(ctx, rawToken) {
		t.Fatal("fresh token should validate")
	}

	result, err := env.service.ResetPassword(ctx, rawToken, ResetPasswordRequest{
		Password:        "brand-new-pass",
		ConfirmPassword: "brand-new-pass",
	}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Every pre-existing session is dead; only the fresh auto-login remains.
	if len(env.sessions.sessions) != 1 {
		t.Errorf("expected exactly the fresh session, got %d", len(env.sessions.sessions))
	}
	if _, ok := env.sessions.sessions[result.Session.ID]; !ok {
		t.Error("the fresh session should be live")
	}
	if result.User.ID != registered.User.ID {
		t.Error("reset should resolve the same user")
	}

	// The token is single-use.
	if _, err := env.service.ResetPassword(ctx, rawToken, ResetPasswordRequest{
		Password:        "another-pass",
		ConfirmPassword: "another-pass",
	}, nil, nil); !errors.Is(err, ErrInvalidResetToken) {
		t.Errorf("expected ErrInvalidResetToken on reuse, got %v", err)
	}

	if _, err := env.service.Login(ctx, LoginRequest{Username: "frank", Password: "brand-new-pass"}, nil, nil); err != nil {
		t.Errorf("new password should log in, got %v", err)
	}
}

func TestResetPasswordInvalidToken(t *testing.T) {
	env := newTestAuthService()

	_, err := env.service.ResetPassword(context.Background(), "bogus", ResetPasswordRequest{
		Password:        "whatever1",
		ConfirmPassword: "whatever1",
	}, nil, nil)
	if !errors.Is(err, ErrInvalidResetToken) {
		t.Errorf("expected ErrInvalidResetToken, got %v", err)
	}
}

func TestDeleteAccount(t *testing.T) {
	env := newTestAuthService()
	ctx := context.Background()

	registered, err := env.service.Register(ctx, RegisterRequest{Username: "grace", Password: "hunter22"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := env.service.DeleteAccount(ctx, registered.User.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := env.users.GetByID(ctx, registered.User.ID); !errors.Is(err, repository.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
