package auth

import (
	"context"
	"strings"
	"time"

	"github.com/danniokta/notesafe/internal/repository"
)

// Mock implementations for testing. Each mock keeps its state in maps and
// supports error injection through the failWith field.

// mockUserRepository implements repository.UserRepository for testing
type mockUserRepository struct {
	users    map[string]*repository.User
	failWith error
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*repository.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *repository.User) error {
	if m.failWith != nil {
		return m.failWith
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Username, user.Username) {
			return repository.ErrUsernameTaken
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*repository.User, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*repository.User, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, user := range m.users {
		if strings.EqualFold(user.Username, username) {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	if m.failWith != nil {
		return m.failWith
	}
	user, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (m *mockUserRepository) UpdateProfile(ctx context.Context, id string, age *int, bio *string) error {
	if m.failWith != nil {
		return m.failWith
	}
	user, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.Age = age
	user.Bio = bio
	return nil
}

func (m *mockUserRepository) Delete(ctx context.Context, id string) error {
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

// mockSessionRepository implements repository.SessionRepository for testing
type mockSessionRepository struct {
	sessions map[string]*repository.Session
	users    *mockUserRepository
	failWith error
}

func newMockSessionRepository(users *mockUserRepository) *mockSessionRepository {
	return &mockSessionRepository{
		sessions: make(map[string]*repository.Session),
		users:    users,
	}
}

func (m *mockSessionRepository) Create(ctx context.Context, session *repository.Session) error {
	if m.failWith != nil {
		return m.failWith
	}
	session.CreatedAt = time.Now().UTC()
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionRepository) GetWithUser(ctx context.Context, id string) (*repository.Session, *repository.User, error) {
	if m.failWith != nil {
		return nil, nil, m.failWith
	}
	session, ok := m.sessions[id]
	if !ok {
		return nil, nil, repository.ErrSessionNotFound
	}
	user, err := m.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, nil, repository.ErrSessionNotFound
	}
	return session, user, nil
}

func (m *mockSessionRepository) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	if m.failWith != nil {
		return m.failWith
	}
	session, ok := m.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	session.ExpiresAt = expiresAt
	return nil
}

func (m *mockSessionRepository) Delete(ctx context.Context, id string) error {
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.sessions[id]; !ok {
		return repository.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepository) ListByUserID(ctx context.Context, userID string) ([]*repository.Session, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []*repository.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSessionRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	if m.failWith != nil {
		return 0, m.failWith
	}
	var n int64
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *mockSessionRepository) DeleteByUserIDExcept(ctx context.Context, userID, keepID string) (int64, error) {
	if m.failWith != nil {
		return 0, m.failWith
	}
	var n int64
	for id, s := range m.sessions {
		if s.UserID == userID && id != keepID {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *mockSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	if m.failWith != nil {
		return 0, m.failWith
	}
	now := time.Now().UTC()
	var n int64
	for id, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

// mockAPITokenRepository implements repository.APITokenRepository for testing
type mockAPITokenRepository struct {
	tokens   map[string]*repository.APIToken
	users    *mockUserRepository
	failWith error
}

func newMockAPITokenRepository(users *mockUserRepository) *mockAPITokenRepository {
	return &mockAPITokenRepository{
		tokens: make(map[string]*repository.APIToken),
		users:  users,
	}
}

func (m *mockAPITokenRepository) Create(ctx context.Context, token *repository.APIToken) error {
	if m.failWith != nil {
		return m.failWith
	}
	token.CreatedAt = time.Now().UTC()
	m.tokens[token.ID] = token
	return nil
}

func (m *mockAPITokenRepository) GetWithUser(ctx context.Context, tokenHash string) (*repository.APIToken, *repository.User, error) {
	if m.failWith != nil {
		return nil, nil, m.failWith
	}
	for _, t := range m.tokens {
		if t.TokenHash == tokenHash {
			user, err := m.users.GetByID(ctx, t.UserID)
			if err != nil {
				return nil, nil, repository.ErrAPITokenNotFound
			}
			return t, user, nil
		}
	}
	return nil, nil, repository.ErrAPITokenNotFound
}

func (m *mockAPITokenRepository) UpdateLastUsed(ctx context.Context, id string, usedAt time.Time) error {
	if m.failWith != nil {
		return m.failWith
	}
	token, ok := m.tokens[id]
	if !ok {
		return repository.ErrAPITokenNotFound
	}
	token.LastUsedAt = &usedAt
	return nil
}

func (m *mockAPITokenRepository) DeleteOwned(ctx context.Context, id, userID string) error {
	if m.failWith != nil {
		return m.failWith
	}
	token, ok := m.tokens[id]
	if !ok || token.UserID != userID {
		return repository.ErrAPITokenNotFound
	}
	delete(m.tokens, id)
	return nil
}

func (m *mockAPITokenRepository) ListByUserID(ctx context.Context, userID string) ([]*repository.APITokenInfo, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []*repository.APITokenInfo
	for _, t := range m.tokens {
		if t.UserID == userID {
			out = append(out, &repository.APITokenInfo{
				ID:         t.ID,
				Name:       t.Name,
				CreatedAt:  t.CreatedAt,
				ExpiresAt:  t.ExpiresAt,
				LastUsedAt: t.LastUsedAt,
			})
		}
	}
	return out, nil
}

func (m *mockAPITokenRepository) Delete(ctx context.Context, id string) error {
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.tokens[id]; !ok {
		return repository.ErrAPITokenNotFound
	}
	delete(m.tokens, id)
	return nil
}

// mockPasswordResetRepository implements repository.PasswordResetRepository
// for testing
type mockPasswordResetRepository struct {
	tokens   map[string]*repository.PasswordResetToken
	failWith error
}

func newMockPasswordResetRepository() *mockPasswordResetRepository {
	return &mockPasswordResetRepository{tokens: make(map[string]*repository.PasswordResetToken)}
}

func (m *mockPasswordResetRepository) Create(ctx context.Context, token *repository.PasswordResetToken) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.tokens[token.TokenHash] = token
	return nil
}

func (m *mockPasswordResetRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*repository.PasswordResetToken, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	if token, ok := m.tokens[tokenHash]; ok {
		return token, nil
	}
	return nil, repository.ErrResetTokenNotFound
}

func (m *mockPasswordResetRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.tokens[tokenHash]; !ok {
		return repository.ErrResetTokenNotFound
	}
	delete(m.tokens, tokenHash)
	return nil
}

func (m *mockPasswordResetRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	if m.failWith != nil {
		return 0, m.failWith
	}
	var n int64
	for hash, t := range m.tokens {
		if t.UserID == userID {
			delete(m.tokens, hash)
			n++
		}
	}
	return n, nil
}
