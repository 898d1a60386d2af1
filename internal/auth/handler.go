package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	appctx "github.com/danniokta/notesafe/internal/context"
	"github.com/danniokta/notesafe/internal/repository"
)

// APIResponse represents the standard API response format
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError represents the error detail in API response
type APIError struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details map[string][]string `json:"details,omitempty"`
	// ErrorID is an opaque tracking identifier surfaced on unexpected
	// failures so a report can be matched to server logs.
	ErrorID string `json:"error_id,omitempty"`
}

// UserResponse is the user projection returned to clients
type UserResponse struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Age      *int    `json:"age,omitempty"`
	Bio      *string `json:"bio,omitempty"`
}

// SessionResponse is the session projection for the active-sessions display
type SessionResponse struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	IPAddress *string   `json:"ip_address,omitempty"`
	UserAgent *string   `json:"user_agent,omitempty"`
	Current   bool      `json:"current"`
}

// Handler handles HTTP requests for the authentication endpoints
type Handler struct {
	service   *AuthService
	apiTokens *APITokenService
	cookies   CookiePolicy
	sender    ResetSender
	logger    *slog.Logger
}

// NewHandler creates a new Handler instance. sender may be nil when no
// reset delivery channel is configured.
func NewHandler(service *AuthService, apiTokens *APITokenService, cookies CookiePolicy, sender ResetSender, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service:   service,
		apiTokens: apiTokens,
		cookies:   cookies,
		sender:    sender,
		logger:    logger,
	}
}

// Register handles account creation
// POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body", nil)
		return
	}

	if details := ValidateStruct(req); details != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Request validation failed", details)
		return
	}

	result, err := h.service.Register(r.Context(), req, clientIP(r), userAgent(r))
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			h.writeError(w, http.StatusConflict, CodeUsernameTaken, "Username already taken", nil)
			return
		}
		h.writeInternalError(w, r.Context(), err)
		return
	}

	h.cookies.SetSessionCookie(w, result.RawToken, result.Session.ExpiresAt)
	h.writeSuccess(w, http.StatusCreated, userResponse(result.User))
}

// Login handles cookie authentication
// POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body", nil)
		return
	}

	if details := ValidateStruct(req); details != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Request validation failed", details)
		return
	}

	result, err := h.service.Login(r.Context(), req, clientIP(r), userAgent(r))
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.writeError(w, http.StatusUnauthorized, CodeInvalidCredentials, "Incorrect username or password", nil)
			return
		}
		h.writeInternalError(w, r.Context(), err)
		return
	}

	h.cookies.SetSessionCookie(w, result.RawToken, result.Session.ExpiresAt)
	h.writeSuccess(w, http.StatusOK, userResponse(result.User))
}

// Logout invalidates the current session and clears the cookie
// POST /auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	session, _ := appctx.Session(r.Context())

	if err := h.service.Logout(r.Context(), session.ID); err != nil {
		h.writeInternalError(w, r.Context(), err)
		return
	}

	h.cookies.ClearSessionCookie(w)
	h.writeSuccess(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// GetMe returns the authenticated user's profile
// GET /auth/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, _ := appctx.User(r.Context())

	fresh, err := h.service.GetUser(r.Context(), user.ID)
	if err != nil {
		h.writeInternalError(w, r.Context(), err)
		return
	}

	h.writeSuccess(w, http.StatusOK, userResponse(fresh))
}

// UpdateProfile updates the optional profile fields
// PUT /auth/me
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, _ := appctx.User(r.Context())

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body", nil)
		return
	}

	if details := ValidateStruct(req); details != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Request validation failed", details)
		return
	}

	if err := h.service.UpdateProfile(r.Context(), user.ID, req); err != nil {
		h.writeInternalError(w, r.Context(), err)
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]string{"message": "Profile updated"})
}

// ChangePassword changes the password after verifying the current one
// POST /auth/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, _ := appctx.User(r.Context())

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body", nil)
		return
	}

	if details := ValidateStruct(req); details != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Request validation failed", details)
		return
	}

	if err := h.service.ChangePassword(r.Context(), user.ID, req); err != nil {
		if errors.Is(err, ErrIncorrectPassword) {
			h.writeError(w, http.StatusBadRequest, CodeValidationError, "Incorrect current password",
				map[string][]string{"current_password": {"Incorrect password"}})
			return
		}
		h.writeInternalError(w, r.Context(), err)
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

// ListSessions lists the user's active sessions
// GET /auth/sessions
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	user, _ := appctx.User(r.Context())
	current, _ := appctx.Session(r.Context())

	sessions, err := h.service.Sessions().GetUserSessions(r.Context(), user.ID)
	if err != nil {
		h.writeInternalError(w, r.Context(), err)
		return
	}

	resp := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, SessionResponse{
			ID:        s.ID,
			ExpiresAt: s.ExpiresAt,
			CreatedAt: s.CreatedAt,
			IPAddress: s.IPAddress,
			UserAgent: s.UserAgent,
			Current:   current != nil && current.ID == s.ID,
		})
	}

	h.writeSuccess(w, http.StatusOK, resp)
}

// RevokeSession invalidates one of the user's sessions
// POST /auth/sessions/revoke
func (h *Handler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	user, _ := appctx.User(r.Context())

	var req RevokeSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body", nil)
		return
	}

	if details := ValidateStruct(req); details != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Request validation failed", details)
		return
	}

	sessions, err := h.service.Sessions().GetUserSessions(r.Context(), user.ID)
	if err != nil {
		h.writeInternalError(w, r.Context(), err)
		return
	}

	owned := false
	for _, s := range sessions {
		if s.ID == req.SessionID {
			owned = true
			break
		}
	}
	if !owned {
		h.logger.Warn("Unauthorized session revocation attempt", "user_id", user.ID, "target_session_id", req.SessionID)
		h.writeError(w, http.StatusForbidden, CodeForbidden, "Unauthorized", nil)
		return
	}

	if err := h.service.Sessions().InvalidateSession(r.Context(), req.SessionID); err != nil {
		h.writeInternalError(w, r.Context(), err)
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]string{"message": "Session revoked"})
}

// RevokeOtherSessions logs the user out everywhere except this browser
// POST /auth/sessions/revoke-others
func (h *Handler) RevokeOtherSessions(w http.ResponseWriter, r *http.Request) {
	user, _ := appctx.User(r.Context())
	session, _ := appctx.Session(r.Context())

	if err := h.service.Sessions().InvalidateOtherSessions(r.Context(), user.ID, session.ID); err != nil {
		h.writeInternalError(w, r.Context(), err)
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]string{"message": "All other sessions revoked"})
}

// ForgotPassword issues a reset token. The response is identical whether or
// not the username exists.
// POST /auth/password/forgot
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body", nil)
		return
	}

	if details := ValidateStruct(req); details != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Request validation failed", details)
		return
	}

	resetPath, err := h.service.RequestPasswordReset(r.Context(), req)
	if err != nil {
		h.writeInternalError(w, r.Context(), err)
		return
	}

	if resetPath != "" && h.sender != nil {
		if err := h.sender.Send(r.Context(), req.Username, resetPath); err != nil {
			h.logger.Error("Failed to deliver password reset link", "error", err)
		}
	}

	h.writeSuccess(w, http.StatusOK, map[string]string{
		"message": "If the account exists, a password reset link has been sent.",
	})
}

// CheckResetToken reports whether a reset link is still redeemable, without
// consuming it, so the form can be shown or rejected up front.
// GET /auth/password/reset/{token}
func (h *Handler) CheckResetToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if !h.service.ValidateResetToken(r.Context(), token) {
		h.writeError(w, http.StatusBadRequest, CodeInvalidResetToken, "Invalid or expired password reset link", nil)
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]string{"message": "Token is valid"})
}

// ResetPassword completes the reset flow and auto-logs-in the browser
// POST /auth/password/reset/{token}
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body", nil)
		return
	}

	if details := ValidateStruct(req); details != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Request validation failed", details)
		return
	}

	result, err := h.service.ResetPassword(r.Context(), token, req, clientIP(r), userAgent(r))
	if err != nil {
		if errors.Is(err, ErrInvalidResetToken) {
			h.writeError(w, http.StatusBadRequest, CodeInvalidResetToken, "Invalid or expired token", nil)
			return
		}
		h.writeInternalError(w, r.Context(), err)
		return
	}

	h.cookies.SetSessionCookie(w, result.RawToken, result.Session.ExpiresAt)
	h.writeSuccess(w, http.StatusOK, userResponse(result.User))
}

// CreateAPIToken issues a new bearer token; the raw value appears in this
// response only.
// POST /auth/tokens
func (h *Handler) CreateAPIToken(w http.ResponseWriter, r *http.Request) {
	user, _ := appctx.User(r.Context())

	var req CreateAPITokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body", nil)
		return
	}

	if details := ValidateStruct(req); details != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Request validation failed", details)
		return
	}

	created, err := h.apiTokens.CreateAPIToken(r.Context(), user.ID, req.Name)
	if err != nil {
		h.writeInternalError(w, r.Context(), err)
		return
	}

	h.writeSuccess(w, http.StatusCreated, created)
}

// ListAPITokens lists the user's token metadata
// GET /auth/tokens
func (h *Handler) ListAPITokens(w http.ResponseWriter, r *http.Request) {
	user, _ := appctx.User(r.Context())

	tokens, err := h.apiTokens.ListAPITokens(r.Context(), user.ID)
	if err != nil {
		h.writeInternalError(w, r.Context(), err)
		return
	}
	if tokens == nil {
		tokens = []*repository.APITokenInfo{}
	}

	h.writeSuccess(w, http.StatusOK, tokens)
}

// RevokeAPIToken deletes one of the user's tokens
// DELETE /auth/tokens/{id}
func (h *Handler) RevokeAPIToken(w http.ResponseWriter, r *http.Request) {
	user, _ := appctx.User(r.Context())
	tokenID := chi.URLParam(r, "id")

	if err := h.apiTokens.RevokeAPIToken(r.Context(), tokenID, user.ID); err != nil {
		if errors.Is(err, repository.ErrAPITokenNotFound) {
			h.writeError(w, http.StatusNotFound, "TOKEN_NOT_FOUND", "API token not found", nil)
			return
		}
		h.writeInternalError(w, r.Context(), err)
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]string{"message": "API token revoked"})
}

// DeleteAccount permanently removes the account after an explicit
// confirmation phrase.
// POST /auth/account/delete
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user, _ := appctx.User(r.Context())

	var req DeleteAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body", nil)
		return
	}

	if details := ValidateStruct(req); details != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Incorrect confirmation", details)
		return
	}

	if err := h.service.DeleteAccount(r.Context(), user.ID); err != nil {
		h.writeInternalError(w, r.Context(), err)
		return
	}

	h.cookies.ClearSessionCookie(w)
	h.writeSuccess(w, http.StatusOK, map[string]string{"message": "Account deleted"})
}

func userResponse(user *repository.User) UserResponse {
	return UserResponse{
		ID:       user.ID,
		Username: user.Username,
		Age:      user.Age,
		Bio:      user.Bio,
	}
}

// clientIP returns the request's client address for session audit metadata
func clientIP(r *http.Request) *string {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	if ip == "" {
		return nil
	}
	return &ip
}

func userAgent(r *http.Request) *string {
	ua := r.UserAgent()
	if ua == "" {
		return nil
	}
	return &ua
}

// writeSuccess writes a JSON success response
func (h *Handler) writeSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// writeError writes a JSON error response
func (h *Handler) writeError(w http.ResponseWriter, statusCode int, code, message string, details map[string][]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now().UTC(),
	})
}

// writeInternalError logs the failure under an opaque tracking ID and
// returns only the generic message with that ID. Internal detail never
// reaches the response.
func (h *Handler) writeInternalError(w http.ResponseWriter, ctx context.Context, err error) {
	errorID := uuid.NewString()
	h.logger.Error("Unexpected error handling request", "error_id", errorID, "error", err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)

	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error: &APIError{
			Code:    CodeInternalError,
			Message: "An unexpected error occurred",
			ErrorID: errorID,
		},
		Timestamp: time.Now().UTC(),
	})
}
