package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/danniokta/notesafe/internal/metrics"
	"github.com/danniokta/notesafe/internal/repository"
	"github.com/danniokta/notesafe/internal/sanitizer"
)

// Auth service errors
var (
	// ErrInvalidCredentials covers both unknown-username and wrong-password
	// so responses cannot be used for username enumeration.
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrIncorrectPassword  = errors.New("incorrect current password")
	ErrInvalidResetToken  = errors.New("invalid or expired password reset token")
)

// Error codes for API responses
const (
	CodeValidationError   = "VALIDATION_ERROR"
	CodeUsernameTaken     = "USERNAME_TAKEN"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeInvalidResetToken = "INVALID_RESET_TOKEN"
	CodeInternalError     = "INTERNAL_ERROR"
)

// AuthenticatedSession is returned by the flows that establish a session.
// RawToken is handed to the client as the cookie value and never persisted.
type AuthenticatedSession struct {
	User     *repository.User
	Session  *repository.Session
	RawToken string
}

// ResetSender delivers a password reset link to the user through an
// external channel (email or similar). The auth core only constructs the
// link path; delivery is the integrator's concern.
type ResetSender interface {
	Send(ctx context.Context, username, resetPath string) error
}

// AuthService orchestrates credential handling, sessions and the password
// reset flow on top of the leaf services.
type AuthService struct {
	users    repository.UserRepository
	sessions *SessionService
	resets   *PasswordResetService
	hasher   *PasswordHasher
	bio      *sanitizer.TextPolicy
	logger   *slog.Logger
}

// NewAuthService creates a new AuthService instance
func NewAuthService(
	users repository.UserRepository,
	sessions *SessionService,
	resets *PasswordResetService,
	hasher *PasswordHasher,
	bio *sanitizer.TextPolicy,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		resets:   resets,
		hasher:   hasher,
		bio:      bio,
		logger:   logger,
	}
}

// Sessions exposes the session service for the gateway middleware
func (s *AuthService) Sessions() *SessionService {
	return s.sessions
}

// Register creates a new account and logs it in with a fresh session.
// Usernames are normalized to lowercase before storage; a uniqueness
// violation surfaces as ErrUsernameTaken.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest, ipAddress, userAgent *string) (*AuthenticatedSession, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))

	userID, err := GenerateID()
	if err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &repository.User{
		ID:           userID,
		Username:     username,
		PasswordHash: passwordHash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		s.logger.Error("Failed to create user", "username", username, "error", err)
		return nil, err
	}

	s.logger.Info("User registered", "user_id", user.ID, "username", username)
	metrics.AuthRegistrationsTotal.Inc()
	return s.establishSession(ctx, user, ipAddress, userAgent)
}

// Login verifies the credentials and establishes a session. Unknown
// usernames and wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, req LoginRequest, ipAddress, userAgent *string) (*AuthenticatedSession, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			metrics.AuthLoginsTotal.WithLabelValues("failure").Inc()
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("Failed to look up user for login", "username", username, "error", err)
		return nil, err
	}

	if !s.hasher.Verify(user.PasswordHash, req.Password) {
		metrics.AuthLoginsTotal.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}

	s.logger.Info("User logged in", "user_id", user.ID)
	metrics.AuthLoginsTotal.WithLabelValues("success").Inc()
	return s.establishSession(ctx, user, ipAddress, userAgent)
}

// Logout invalidates the current session
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.InvalidateSession(ctx, sessionID)
}

// ChangePassword verifies the current password before storing the new hash
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(user.PasswordHash, req.CurrentPassword) {
		return ErrIncorrectPassword
	}

	passwordHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		s.logger.Error("Failed to update password", "user_id", userID, "error", err)
		return err
	}

	s.logger.Info("User password updated", "user_id", userID)
	return nil
}

// UpdateProfile updates the optional profile fields. The bio is stripped of
// HTML before storage.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) error {
	bio := req.Bio
	if bio != nil && s.bio != nil {
		clean := s.bio.Sanitize(*bio)
		bio = &clean
	}

	if err := s.users.UpdateProfile(ctx, userID, req.Age, bio); err != nil {
		s.logger.Error("Failed to update profile", "user_id", userID, "error", err)
		return err
	}

	s.logger.Info("User profile updated", "user_id", userID)
	return nil
}

// GetUser fetches a fresh user record
func (s *AuthService) GetUser(ctx context.Context, userID string) (*repository.User, error) {
	return s.users.GetByID(ctx, userID)
}

// DeleteAccount removes the user. Sessions, API tokens and reset tokens go
// with it via cascade.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		s.logger.Error("Failed to delete user account", "user_id", userID, "error", err)
		return err
	}
	s.logger.Info("User account deleted", "user_id", userID)
	return nil
}

// RequestPasswordReset issues a reset token for the username, if it exists,
// and returns the reset link path for the delivery channel. The empty path
// with a nil error means the username is unknown; callers respond the same
// way in both cases so the endpoint cannot confirm account existence.
func (s *AuthService) RequestPasswordReset(ctx context.Context, req ForgotPasswordRequest) (string, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.logger.Debug("Password reset requested for unknown username")
			return "", nil
		}
		return "", err
	}

	raw, err := s.resets.CreatePasswordResetToken(ctx, user.ID)
	if err != nil {
		return "", err
	}

	metrics.PasswordResetsTotal.WithLabelValues("requested").Inc()
	return "/auth/password/reset/" + raw, nil
}

// ValidateResetToken reports whether the raw reset token is currently
// redeemable, without consuming it.
func (s *AuthService) ValidateResetToken(ctx context.Context, rawToken string) bool {
	return s.resets.ValidatePasswordResetToken(ctx, rawToken) != ""
}

// ResetPassword completes the reset flow: validate the token, invalidate
// every existing session (the credentials may be compromised), store the new
// hash, consume the token, then auto-login with one fresh session.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken string, req ResetPasswordRequest, ipAddress, userAgent *string) (*AuthenticatedSession, error) {
	userID := s.resets.ValidatePasswordResetToken(ctx, rawToken)
	if userID == "" {
		return nil, ErrInvalidResetToken
	}

	if err := s.sessions.InvalidateAllUserSessions(ctx, userID); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		s.logger.Error("Failed to store reset password", "user_id", userID, "error", err)
		return nil, err
	}

	if err := s.resets.ConsumePasswordResetToken(ctx, rawToken); err != nil {
		s.logger.Error("Failed to consume reset token", "user_id", userID, "error", err)
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Password reset completed", "user_id", userID)
	metrics.PasswordResetsTotal.WithLabelValues("completed").Inc()
	return s.establishSession(ctx, user, ipAddress, userAgent)
}

// establishSession creates a fresh session and returns the raw token for
// the cookie.
func (s *AuthService) establishSession(ctx context.Context, user *repository.User, ipAddress, userAgent *string) (*AuthenticatedSession, error) {
	rawToken, err := GenerateSessionToken()
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.CreateSession(ctx, rawToken, user.ID, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	return &AuthenticatedSession{
		User:     user,
		Session:  session,
		RawToken: rawToken,
	}, nil
}
