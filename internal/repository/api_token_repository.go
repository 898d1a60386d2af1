package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// APITokenRepository defines the interface for API token data access
type APITokenRepository interface {
	Create(ctx context.Context, token *APIToken) error
	// GetWithUser joins the token row (looked up by hash) with its owner.
	GetWithUser(ctx context.Context, tokenHash string) (*APIToken, *User, error)
	UpdateLastUsed(ctx context.Context, id string, usedAt time.Time) error
	// DeleteOwned deletes the token only if it belongs to userID. The
	// ownership check is part of the delete predicate, not a prior read.
	DeleteOwned(ctx context.Context, id, userID string) error
	ListByUserID(ctx context.Context, userID string) ([]*APITokenInfo, error)
	Delete(ctx context.Context, id string) error
}

// apiTokenRepository implements APITokenRepository using PostgreSQL
type apiTokenRepository struct {
	pool *pgxpool.Pool
}

// NewAPITokenRepository creates a new APITokenRepository instance
func NewAPITokenRepository(pool *pgxpool.Pool) APITokenRepository {
	return &apiTokenRepository{pool: pool}
}

// Create inserts a new API token record
func (r *apiTokenRepository) Create(ctx context.Context, token *APIToken) error {
	query := `
		INSERT INTO api_tokens (id, user_id, token_hash, name, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.Name,
		token.ExpiresAt,
	).Scan(&token.CreatedAt)

	return translateError(err, nil)
}

// GetWithUser retrieves a token by its hash together with the owning user
func (r *apiTokenRepository) GetWithUser(ctx context.Context, tokenHash string) (*APIToken, *User, error) {
	query := `
		SELECT t.id, t.user_id, t.token_hash, t.name, t.created_at, t.expires_at, t.last_used_at,
		       u.id, u.username, u.password_hash, u.age, u.bio
		FROM api_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token_hash = $1
	`

	token := &APIToken{}
	user := &User{}
	err := r.pool.QueryRow(ctx, query, tokenHash).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.Name,
		&token.CreatedAt,
		&token.ExpiresAt,
		&token.LastUsedAt,
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Age,
		&user.Bio,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrAPITokenNotFound
		}
		return nil, nil, translateError(err, nil)
	}

	return token, user, nil
}

// UpdateLastUsed records when the token last passed validation
func (r *apiTokenRepository) UpdateLastUsed(ctx context.Context, id string, usedAt time.Time) error {
	query := `UPDATE api_tokens SET last_used_at = $1 WHERE id = $2`

	_, err := r.pool.Exec(ctx, query, usedAt, id)
	return translateError(err, nil)
}

// DeleteOwned deletes a token scoped to its owner in a single statement
func (r *apiTokenRepository) DeleteOwned(ctx context.Context, id, userID string) error {
	query := `DELETE FROM api_tokens WHERE id = $1 AND user_id = $2`

	result, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return translateError(err, nil)
	}

	if result.RowsAffected() == 0 {
		return ErrAPITokenNotFound
	}

	return nil
}

// ListByUserID lists the token metadata for a user without the token hash
func (r *apiTokenRepository) ListByUserID(ctx context.Context, userID string) ([]*APITokenInfo, error) {
	query := `
		SELECT id, name, created_at, expires_at, last_used_at
		FROM api_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, translateError(err, nil)
	}
	defer rows.Close()

	var tokens []*APITokenInfo
	for rows.Next() {
		info := &APITokenInfo{}
		if err := rows.Scan(
			&info.ID,
			&info.Name,
			&info.CreatedAt,
			&info.ExpiresAt,
			&info.LastUsedAt,
		); err != nil {
			return nil, translateError(err, nil)
		}
		tokens = append(tokens, info)
	}

	if err := rows.Err(); err != nil {
		return nil, translateError(err, nil)
	}

	return tokens, nil
}

// Delete removes a token by ID regardless of owner
func (r *apiTokenRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM api_tokens WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return translateError(err, nil)
	}

	if result.RowsAffected() == 0 {
		return ErrAPITokenNotFound
	}

	return nil
}
