package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository defines the interface for session data access
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	// GetWithUser joins the session row with its owning user.
	GetWithUser(ctx context.Context, id string) (*Session, *User, error)
	UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error
	ListByUserID(ctx context.Context, userID string) ([]*Session, error)
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
	// DeleteByUserIDExcept deletes every session of the user except keepID.
	DeleteByUserIDExcept(ctx context.Context, userID, keepID string) (int64, error)
	// DeleteExpired removes sessions whose expiry has passed. Storage
	// hygiene only; validation already deletes expired rows lazily.
	DeleteExpired(ctx context.Context) (int64, error)
}

// sessionRepository implements SessionRepository using PostgreSQL
type sessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository instance
func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepository{pool: pool}
}

// Create inserts a new session. The ID is the hex SHA-256 of the raw token,
// computed by the caller; the raw token is never persisted.
func (r *sessionRepository) Create(ctx context.Context, session *Session) error {
	query := `
		INSERT INTO sessions (id, user_id, expires_at, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query,
		session.ID,
		session.UserID,
		session.ExpiresAt,
		session.IPAddress,
		session.UserAgent,
	).Scan(&session.CreatedAt)

	return translateError(err, nil)
}

// GetWithUser retrieves a session and its owning user in a single query
func (r *sessionRepository) GetWithUser(ctx context.Context, id string) (*Session, *User, error) {
	query := `
		SELECT s.id, s.user_id, s.expires_at, s.ip_address, s.user_agent, s.created_at,
		       u.id, u.username, u.password_hash, u.age, u.bio
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1
	`

	session := &Session{}
	user := &User{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.ExpiresAt,
		&session.IPAddress,
		&session.UserAgent,
		&session.CreatedAt,
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Age,
		&user.Bio,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, translateError(err, nil)
	}

	return session, user, nil
}

// UpdateExpiry extends a session's lifetime (sliding-window renewal)
func (r *sessionRepository) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	query := `UPDATE sessions SET expires_at = $1 WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, expiresAt, id)
	if err != nil {
		return translateError(err, nil)
	}

	if result.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// Delete removes a session by its ID
func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM sessions WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return translateError(err, nil)
	}

	if result.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// ListByUserID lists all sessions for a user, newest expiry first
func (r *sessionRepository) ListByUserID(ctx context.Context, userID string) ([]*Session, error) {
	query := `
		SELECT id, user_id, expires_at, ip_address, user_agent, created_at
		FROM sessions
		WHERE user_id = $1
		ORDER BY expires_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, translateError(err, nil)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session := &Session{}
		if err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.ExpiresAt,
			&session.IPAddress,
			&session.UserAgent,
			&session.CreatedAt,
		); err != nil {
			return nil, translateError(err, nil)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, translateError(err, nil)
	}

	return sessions, nil
}

// DeleteByUserID removes every session owned by the user
func (r *sessionRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	query := `DELETE FROM sessions WHERE user_id = $1`

	result, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, translateError(err, nil)
	}

	return result.RowsAffected(), nil
}

// DeleteByUserIDExcept removes every session owned by the user except keepID
func (r *sessionRepository) DeleteByUserIDExcept(ctx context.Context, userID, keepID string) (int64, error) {
	query := `DELETE FROM sessions WHERE user_id = $1 AND id <> $2`

	result, err := r.pool.Exec(ctx, query, userID, keepID)
	if err != nil {
		return 0, translateError(err, nil)
	}

	return result.RowsAffected(), nil
}

// DeleteExpired removes all sessions whose expiry has passed
func (r *sessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at < $1`

	result, err := r.pool.Exec(ctx, query, time.Now().UTC())
	if err != nil {
		return 0, translateError(err, nil)
	}

	return result.RowsAffected(), nil
}
