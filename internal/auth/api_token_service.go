package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/danniokta/notesafe/internal/metrics"
	"github.com/danniokta/notesafe/internal/repository"
	"github.com/google/uuid"
)

// APITokenCopyMessage is returned alongside a freshly created token. The
// raw token is shown exactly once and cannot be recovered afterwards.
const APITokenCopyMessage = "API token created successfully. Copy it now, you won't see it again."

// CreatedAPIToken is the one-time creation result carrying the raw token
type CreatedAPIToken struct {
	Token   string `json:"token"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

// APITokenService manages long-lived bearer tokens for programmatic access,
// independent of cookie sessions.
type APITokenService struct {
	tokens repository.APITokenRepository
	logger *slog.Logger
}

// NewAPITokenService creates a new APITokenService instance
func NewAPITokenService(tokens repository.APITokenRepository, logger *slog.Logger) *APITokenService {
	if logger == nil {
		logger = slog.Default()
	}
	return &APITokenService{tokens: tokens, logger: logger}
}

// CreateAPIToken generates a 32-byte random token for the user and stores
// only its SHA-256 hash with the given label. The raw token is returned once.
func (s *APITokenService) CreateAPIToken(ctx context.Context, userID, name string) (*CreatedAPIToken, error) {
	raw, err := GenerateAPIToken()
	if err != nil {
		return nil, err
	}

	token := &repository.APIToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: HashToken(raw),
		Name:      name,
	}

	if err := s.tokens.Create(ctx, token); err != nil {
		s.logger.Error("Failed to create API token", "user_id", userID, "error", err)
		return nil, err
	}

	s.logger.Info("API token created", "user_id", userID, "token_id", token.ID, "name", name)
	return &CreatedAPIToken{
		Token:   raw,
		ID:      token.ID,
		Message: APITokenCopyMessage,
	}, nil
}

// ValidateAPIToken resolves a raw bearer token to its owning user. On
// success the token's last-used timestamp is updated before returning.
// Tokens past their optional expiry are deleted and rejected. Repository
// failures deny access rather than surfacing an error.
func (s *APITokenService) ValidateAPIToken(ctx context.Context, rawToken string) (*repository.User, *repository.APIToken) {
	tokenHash := HashToken(rawToken)

	token, user, err := s.tokens.GetWithUser(ctx, tokenHash)
	if err != nil {
		if err != repository.ErrAPITokenNotFound {
			s.logger.Error("Failed to look up API token", "error", err)
		}
		metrics.APITokenAuthTotal.WithLabelValues("failure").Inc()
		return nil, nil
	}

	now := time.Now().UTC()
	if token.ExpiresAt != nil && !now.Before(*token.ExpiresAt) {
		if err := s.tokens.Delete(ctx, token.ID); err != nil && err != repository.ErrAPITokenNotFound {
			s.logger.Error("Failed to delete expired API token", "token_id", token.ID, "error", err)
		}
		metrics.APITokenAuthTotal.WithLabelValues("expired").Inc()
		return nil, nil
	}

	// Best-effort audit trail; a failed write does not fail validation.
	if err := s.tokens.UpdateLastUsed(ctx, token.ID, now); err != nil {
		s.logger.Warn("Failed to update API token last_used_at", "token_id", token.ID, "error", err)
	} else {
		token.LastUsedAt = &now
	}

	metrics.APITokenAuthTotal.WithLabelValues("success").Inc()
	return user, token
}

// RevokeAPIToken deletes a token, but only if it belongs to the requesting
// user. Ownership is part of the delete predicate so there is no window
// between check and delete.
func (s *APITokenService) RevokeAPIToken(ctx context.Context, tokenID, userID string) error {
	if err := s.tokens.DeleteOwned(ctx, tokenID, userID); err != nil {
		if err != repository.ErrAPITokenNotFound {
			s.logger.Error("Failed to revoke API token", "token_id", tokenID, "user_id", userID, "error", err)
		}
		return err
	}
	s.logger.Info("API token revoked", "token_id", tokenID, "user_id", userID)
	return nil
}

// ListAPITokens lists the user's token metadata. The projection never
// includes the token hash.
func (s *APITokenService) ListAPITokens(ctx context.Context, userID string) ([]*repository.APITokenInfo, error) {
	return s.tokens.ListByUserID(ctx, userID)
}
