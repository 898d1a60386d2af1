package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/danniokta/notesafe/internal/config"
	"github.com/danniokta/notesafe/internal/metrics"
	"github.com/danniokta/notesafe/internal/repository"
)

// SessionCookieName is the name of the cookie carrying the raw session token
const SessionCookieName = "auth-session"

// SessionService manages the session lifecycle: creation, validation with
// sliding-window renewal, listing and revocation.
type SessionService struct {
	sessions repository.SessionRepository
	// ttl is the absolute session lifetime; renewalThreshold is the
	// remaining-lifetime window inside which validation extends the expiry.
	ttl              time.Duration
	renewalThreshold time.Duration
	logger           *slog.Logger
}

// NewSessionService creates a new SessionService instance
func NewSessionService(sessions repository.SessionRepository, cfg config.AuthConfig, logger *slog.Logger) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		sessions:         sessions,
		ttl:              cfg.SessionTTL,
		renewalThreshold: cfg.SessionRenewalThreshold,
		logger:           logger,
	}
}

// CreateSession persists a new session for the user. The session ID is the
// hex SHA-256 of the raw token; the token itself is never stored. IP address
// and user agent are captured for the active-sessions display only and play
// no part in authorization.
func (s *SessionService) CreateSession(ctx context.Context, rawToken, userID string, ipAddress, userAgent *string) (*repository.Session, error) {
	session := &repository.Session{
		ID:        HashToken(rawToken),
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(s.ttl),
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		s.logger.Error("Failed to create session", "user_id", userID, "error", err)
		return nil, err
	}

	s.logger.Info("Session created", "user_id", userID, "session_id", session.ID)
	return session, nil
}

// ValidateSessionToken resolves a raw session token to its session and user.
// Expired sessions are deleted on sight. A session validated inside the
// renewal threshold has its expiry extended by the full TTL and the update
// persisted before returning.
//
// Any repository failure returns (nil, nil): an unreachable database must
// deny access, never grant it, and the auth path must not surface errors.
func (s *SessionService) ValidateSessionToken(ctx context.Context, rawToken string) (*repository.Session, *repository.User) {
	sessionID := HashToken(rawToken)

	session, user, err := s.sessions.GetWithUser(ctx, sessionID)
	if err != nil {
		if err != repository.ErrSessionNotFound {
			s.logger.Error("Failed to look up session", "session_id", sessionID, "error", err)
		}
		return nil, nil
	}

	now := time.Now().UTC()

	if !now.Before(session.ExpiresAt) {
		if err := s.sessions.Delete(ctx, session.ID); err != nil && err != repository.ErrSessionNotFound {
			s.logger.Error("Failed to delete expired session", "session_id", session.ID, "error", err)
		}
		return nil, nil
	}

	if !now.Before(session.ExpiresAt.Add(-s.renewalThreshold)) {
		session.ExpiresAt = now.Add(s.ttl)
		if err := s.sessions.UpdateExpiry(ctx, session.ID, session.ExpiresAt); err != nil {
			s.logger.Error("Failed to renew session", "session_id", session.ID, "error", err)
			return nil, nil
		}
		s.logger.Debug("Session renewed", "session_id", session.ID, "expires_at", session.ExpiresAt)
		metrics.SessionsRenewedTotal.Inc()
	}

	return session, user
}

// InvalidateSession deletes one session. This backs explicit user actions
// (logout, revoking a device) so persistence failures propagate.
func (s *SessionService) InvalidateSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		s.logger.Error("Failed to invalidate session", "session_id", sessionID, "error", err)
		return err
	}
	s.logger.Info("Session invalidated", "session_id", sessionID)
	return nil
}

// GetUserSessions lists all sessions for the active-sessions display
func (s *SessionService) GetUserSessions(ctx context.Context, userID string) ([]*repository.Session, error) {
	return s.sessions.ListByUserID(ctx, userID)
}

// InvalidateOtherSessions deletes every session of the user except the one
// to keep ("log out everywhere else").
func (s *SessionService) InvalidateOtherSessions(ctx context.Context, userID, keepSessionID string) error {
	n, err := s.sessions.DeleteByUserIDExcept(ctx, userID, keepSessionID)
	if err != nil {
		s.logger.Error("Failed to invalidate other sessions", "user_id", userID, "error", err)
		return err
	}
	s.logger.Info("Other sessions invalidated", "user_id", userID, "count", n)
	return nil
}

// InvalidateAllUserSessions deletes every session of the user. Used after a
// password reset, when every existing session must re-authenticate.
func (s *SessionService) InvalidateAllUserSessions(ctx context.Context, userID string) error {
	n, err := s.sessions.DeleteByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to invalidate user sessions", "user_id", userID, "error", err)
		return err
	}
	s.logger.Info("All user sessions invalidated", "user_id", userID, "count", n)
	return nil
}
