package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PasswordResetRepository defines the interface for reset token data access
type PasswordResetRepository interface {
	Create(ctx context.Context, token *PasswordResetToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*PasswordResetToken, error)
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	// DeleteByUserID removes all reset tokens for a user, enforcing the
	// at-most-one-live-token invariant when a new token is issued.
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
}

// passwordResetRepository implements PasswordResetRepository using PostgreSQL
type passwordResetRepository struct {
	pool *pgxpool.Pool
}

// NewPasswordResetRepository creates a new PasswordResetRepository instance
func NewPasswordResetRepository(pool *pgxpool.Pool) PasswordResetRepository {
	return &passwordResetRepository{pool: pool}
}

// Create inserts a new reset token record, keyed by the token hash
func (r *passwordResetRepository) Create(ctx context.Context, token *PasswordResetToken) error {
	query := `
		INSERT INTO password_reset_tokens (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
	`

	_, err := r.pool.Exec(ctx, query,
		token.TokenHash,
		token.UserID,
		token.ExpiresAt,
	)
	return translateError(err, nil)
}

// GetByTokenHash retrieves a reset token by its hash
func (r *passwordResetRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*PasswordResetToken, error) {
	query := `
		SELECT token_hash, user_id, expires_at
		FROM password_reset_tokens
		WHERE token_hash = $1
	`

	token := &PasswordResetToken{}
	err := r.pool.QueryRow(ctx, query, tokenHash).Scan(
		&token.TokenHash,
		&token.UserID,
		&token.ExpiresAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResetTokenNotFound
		}
		return nil, translateError(err, nil)
	}

	return token, nil
}

// DeleteByTokenHash removes a reset token (consume or lazy expiry)
func (r *passwordResetRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	query := `DELETE FROM password_reset_tokens WHERE token_hash = $1`

	_, err := r.pool.Exec(ctx, query, tokenHash)
	return translateError(err, nil)
}

// DeleteByUserID removes all reset tokens belonging to a user
func (r *passwordResetRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	query := `DELETE FROM password_reset_tokens WHERE user_id = $1`

	result, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, translateError(err, nil)
	}

	return result.RowsAffected(), nil
}
