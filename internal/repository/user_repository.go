package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	UpdateProfile(ctx context.Context, id string, age *int, bio *string) error
	Delete(ctx context.Context, id string) error
}

// userRepository implements UserRepository using PostgreSQL
type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository instance
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

// Create inserts a new user. Usernames are stored as given; the service
// layer normalizes them to lowercase before calling. A uniqueness violation
// on username is reported as ErrUsernameTaken.
func (r *userRepository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, username, password_hash, age, bio)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Age,
		user.Bio,
	)
	return translateError(err, ErrUsernameTaken)
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*User, error) {
	query := `
		SELECT id, username, password_hash, age, bio
		FROM users
		WHERE id = $1
	`

	user := &User{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Age,
		&user.Bio,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, translateError(err, nil)
	}

	return user, nil
}

// GetByUsername retrieves a user by their username
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := `
		SELECT id, username, password_hash, age, bio
		FROM users
		WHERE username = $1
	`

	user := &User{}
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Age,
		&user.Bio,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, translateError(err, nil)
	}

	return user, nil
}

// UpdatePassword replaces the stored password hash for a user
func (r *userRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1 WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return translateError(err, nil)
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// UpdateProfile updates the optional profile fields for a user
func (r *userRepository) UpdateProfile(ctx context.Context, id string, age *int, bio *string) error {
	query := `UPDATE users SET age = $1, bio = $2 WHERE id = $3`

	result, err := r.pool.Exec(ctx, query, age, bio, id)
	if err != nil {
		return translateError(err, nil)
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// Delete deletes a user by their ID. Sessions, API tokens and reset tokens
// are removed by ON DELETE CASCADE.
func (r *userRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return translateError(err, nil)
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}
