package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/danniokta/notesafe/internal/config"
	"github.com/danniokta/notesafe/internal/repository"
)

// PasswordResetService issues and redeems short-lived, single-use password
// reset tokens. At most one live token exists per user: issuing a new one
// supersedes any previous token.
type PasswordResetService struct {
	resets repository.PasswordResetRepository
	ttl    time.Duration
	logger *slog.Logger
}

// NewPasswordResetService creates a new PasswordResetService instance
func NewPasswordResetService(resets repository.PasswordResetRepository, cfg config.AuthConfig, logger *slog.Logger) *PasswordResetService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PasswordResetService{
		resets: resets,
		ttl:    cfg.ResetTokenTTL,
		logger: logger,
	}
}

// CreatePasswordResetToken deletes any outstanding reset tokens for the
// user, then generates a fresh 20-byte token and stores its hash with the
// configured expiry. The raw token is returned for delivery.
func (s *PasswordResetService) CreatePasswordResetToken(ctx context.Context, userID string) (string, error) {
	if _, err := s.resets.DeleteByUserID(ctx, userID); err != nil {
		s.logger.Error("Failed to supersede existing reset tokens", "user_id", userID, "error", err)
		return "", err
	}

	raw, err := GenerateResetToken()
	if err != nil {
		return "", err
	}

	token := &repository.PasswordResetToken{
		TokenHash: HashToken(raw),
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(s.ttl),
	}

	if err := s.resets.Create(ctx, token); err != nil {
		s.logger.Error("Failed to create reset token", "user_id", userID, "error", err)
		return "", err
	}

	s.logger.Info("Password reset token created", "user_id", userID)
	return raw, nil
}

// ValidatePasswordResetToken resolves a raw reset token to its owning user
// ID without consuming it, so the token can be checked before the user
// submits a new password. Expired tokens are deleted on sight. Returns ""
// for unknown, expired or unreadable tokens.
func (s *PasswordResetService) ValidatePasswordResetToken(ctx context.Context, rawToken string) string {
	tokenHash := HashToken(rawToken)

	token, err := s.resets.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if err != repository.ErrResetTokenNotFound {
			s.logger.Error("Failed to look up reset token", "error", err)
		}
		return ""
	}

	if !time.Now().UTC().Before(token.ExpiresAt) {
		if err := s.resets.DeleteByTokenHash(ctx, tokenHash); err != nil {
			s.logger.Error("Failed to delete expired reset token", "error", err)
		}
		return ""
	}

	return token.UserID
}

// ConsumePasswordResetToken deletes the token. Called only after the
// password change has succeeded.
func (s *PasswordResetService) ConsumePasswordResetToken(ctx context.Context, rawToken string) error {
	return s.resets.DeleteByTokenHash(ctx, HashToken(rawToken))
}
