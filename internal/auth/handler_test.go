package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	appctx "github.com/danniokta/notesafe/internal/context"
)

// recordingSender captures outgoing reset links
type recordingSender struct {
	username  string
	resetPath string
}

func (s *recordingSender) Send(ctx context.Context, username, resetPath string) error {
	s.username = username
	s.resetPath = resetPath
	return nil
}

type handlerFixture struct {
	router *chi.Mux
	env    *testEnv
	sender *recordingSender
}

// newHandlerFixture wires the handler into a router the way the server
// does, with a cookie-resolving middleware and the route guards.
func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	env := newTestAuthService()
	apiTokens := NewAPITokenService(newMockAPITokenRepository(env.users), nil)
	sender := &recordingSender{}
	cookies := CookiePolicy{}
	handler := NewHandler(env.service, apiTokens, cookies, sender, nil)

	resolve := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}
			session, user := env.service.Sessions().ValidateSessionToken(r.Context(), cookie.Value)
			if session == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := appctx.WithUser(r.Context(), user)
			ctx = appctx.WithSession(ctx, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
	guard := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := appctx.User(r.Context()); !ok {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	sessionGuard := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := appctx.Session(r.Context()); !ok {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	passthrough := func(next http.Handler) http.Handler { return next }

	router := chi.NewRouter()
	router.Use(resolve)
	RegisterRoutes(router, handler, guard, sessionGuard, passthrough)

	return &handlerFixture{router: router, env: env, sender: sender}
}

func (f *handlerFixture) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("expected a session cookie")
	return nil
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp
}

func (f *handlerFixture) register(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/auth/register", RegisterRequest{Username: username, Password: password}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed with %d: %s", rec.Code, rec.Body.String())
	}
	return sessionCookie(t, rec)
}

func TestRegisterEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/register", RegisterRequest{
		Username: "alice",
		Password: "hunter22",
	}, nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeResponse(t, rec)
	if !resp.Success {
		t.Error("expected success envelope")
	}

	cookie := sessionCookie(t, rec)
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if cookie.Path != "/" {
		t.Errorf("expected cookie path /, got %q", cookie.Path)
	}
}

func TestRegisterValidationError(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/register", RegisterRequest{
		Username: "a!",
		Password: "12345",
	}, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Error == nil || resp.Error.Code != CodeValidationError {
		t.Fatalf("expected %s, got %+v", CodeValidationError, resp.Error)
	}
	if len(resp.Error.Details["username"]) == 0 || len(resp.Error.Details["password"]) == 0 {
		t.Errorf("expected per-field details, got %v", resp.Error.Details)
	}
}

func TestRegisterDuplicateEndpoint(t *testing.T) {
	f := newHandlerFixture(t)
	f.register(t, "alice", "hunter22")

	rec := f.do(t, http.MethodPost, "/auth/register", RegisterRequest{
		Username: "alice",
		Password: "different1",
	}, nil)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Error == nil || resp.Error.Code != CodeUsernameTaken {
		t.Errorf("expected %s, got %+v", CodeUsernameTaken, resp.Error)
	}
}

func TestLoginEndpointBadCredentials(t *testing.T) {
	f := newHandlerFixture(t)
	f.register(t, "alice", "hunter22")

	rec := f.do(t, http.MethodPost, "/auth/login", LoginRequest{
		Username: "alice",
		Password: "wrongpass",
	}, nil)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Error == nil || resp.Error.Code != CodeInvalidCredentials {
		t.Errorf("expected %s, got %+v", CodeInvalidCredentials, resp.Error)
	}
}

func TestMeRequiresAuthentication(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/auth/me", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestMeReturnsProfile(t *testing.T) {
	f := newHandlerFixture(t)
	cookie := f.register(t, "alice", "hunter22")

	rec := f.do(t, http.MethodGet, "/auth/me", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"username":"alice"`) {
		t.Errorf("expected profile in body, got %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("profile response must not mention the password")
	}
}

func TestLogoutEndpoint(t *testing.T) {
	f := newHandlerFixture(t)
	cookie := f.register(t, "alice", "hunter22")

	rec := f.do(t, http.MethodPost, "/auth/logout", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// The session is dead now.
	rec = f.do(t, http.MethodGet, "/auth/me", nil, cookie)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestSessionListMarksCurrent(t *testing.T) {
	f := newHandlerFixture(t)
	f.register(t, "alice", "hunter22")

	login := f.do(t, http.MethodPost, "/auth/login", LoginRequest{Username: "alice", Password: "hunter22"}, nil)
	cookie := sessionCookie(t, login)

	rec := f.do(t, http.MethodGet, "/auth/sessions", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Data []SessionResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(resp.Data))
	}

	current := 0
	for _, s := range resp.Data {
		if s.Current {
			current++
			if s.ID != HashToken(cookie.Value) {
				t.Error("the current marker should be on this cookie's session")
			}
		}
	}
	if current != 1 {
		t.Errorf("exactly one session should be current, got %d", current)
	}
}

func TestRevokeSessionOfAnotherUserForbidden(t *testing.T) {
	f := newHandlerFixture(t)
	aliceCookie := f.register(t, "alice", "hunter22")
	bobCookie := f.register(t, "bob", "hunter22")

	rec := f.do(t, http.MethodPost, "/auth/sessions/revoke", RevokeSessionRequest{
		SessionID: HashToken(aliceCookie.Value),
	}, bobCookie)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	// Alice's session still works.
	rec = f.do(t, http.MethodGet, "/auth/me", nil, aliceCookie)
	if rec.Code != http.StatusOK {
		t.Error("the targeted session must be untouched")
	}
}

func TestRevokeOtherSessionsEndpoint(t *testing.T) {
	f := newHandlerFixture(t)
	first := f.register(t, "alice", "hunter22")

	login := f.do(t, http.MethodPost, "/auth/login", LoginRequest{Username: "alice", Password: "hunter22"}, nil)
	second := sessionCookie(t, login)

	rec := f.do(t, http.MethodPost, "/auth/sessions/revoke-others", nil, second)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if rec := f.do(t, http.MethodGet, "/auth/me", nil, second); rec.Code != http.StatusOK {
		t.Error("the current session should survive")
	}
	if rec := f.do(t, http.MethodGet, "/auth/me", nil, first); rec.Code != http.StatusUnauthorized {
		t.Error("the other session should be dead")
	}
}

func TestAPITokenLifecycleEndpoints(t *testing.T) {
	f := newHandlerFixture(t)
	cookie := f.register(t, "alice", "hunter22")

	created := f.do(t, http.MethodPost, "/auth/tokens", CreateAPITokenRequest{Name: "ci"}, cookie)
	if created.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", created.Code, created.Body.String())
	}

	var createResp struct {
		Data CreatedAPIToken `json:"data"`
	}
	if err := json.NewDecoder(created.Body).Decode(&createResp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(createResp.Data.Token) != APITokenLength {
		t.Errorf("expected raw token in creation response, got %q", createResp.Data.Token)
	}

	list := f.do(t, http.MethodGet, "/auth/tokens", nil, cookie)
	if list.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", list.Code)
	}
	if strings.Contains(list.Body.String(), createResp.Data.Token) {
		t.Error("the raw token must never appear in listings")
	}

	revoke := f.do(t, http.MethodDelete, "/auth/tokens/"+createResp.Data.ID, nil, cookie)
	if revoke.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", revoke.Code)
	}

	again := f.do(t, http.MethodDelete, "/auth/tokens/"+createResp.Data.ID, nil, cookie)
	if again.Code != http.StatusNotFound {
		t.Errorf("expected 404 for a revoked token, got %d", again.Code)
	}
}

func TestForgotPasswordEndpointIsUniform(t *testing.T) {
	f := newHandlerFixture(t)
	f.register(t, "alice", "hunter22")

	known := f.do(t, http.MethodPost, "/auth/password/forgot", ForgotPasswordRequest{Username: "alice"}, nil)
	unknown := f.do(t, http.MethodPost, "/auth/password/forgot", ForgotPasswordRequest{Username: "ghost"}, nil)

	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Fatalf("both should answer 200, got %d and %d", known.Code, unknown.Code)
	}
	if known.Body.String() != unknown.Body.String() {
		// The bodies differ only in timestamps; compare the messages.
		knownResp := decodeResponse(t, known)
		unknownResp := decodeResponse(t, unknown)
		k, _ := json.Marshal(knownResp.Data)
		u, _ := json.Marshal(unknownResp.Data)
		if !bytes.Equal(k, u) {
			t.Error("known and unknown usernames must get identical answers")
		}
	}

	if f.sender.username != "alice" || f.sender.resetPath == "" {
		t.Error("the reset link should go out for the known username")
	}
}

func TestResetPasswordEndpoints(t *testing.T) {
	f := newHandlerFixture(t)
	f.register(t, "alice", "hunter22")

	f.do(t, http.MethodPost, "/auth/password/forgot", ForgotPasswordRequest{Username: "alice"}, nil)
	resetPath := f.sender.resetPath
	if resetPath == "" {
		t.Fatal("expected a reset link")
	}

	check := f.do(t, http.MethodGet, resetPath, nil, nil)
	if check.Code != http.StatusOK {
		t.Fatalf("fresh token should check out, got %d", check.Code)
	}

	reset := f.do(t, http.MethodPost, resetPath, ResetPasswordRequest{
		Password:        "brand-new-pass",
		ConfirmPassword: "brand-new-pass",
	}, nil)
	if reset.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", reset.Code, reset.Body.String())
	}

	// The reset auto-logs-in.
	cookie := sessionCookie(t, reset)
	if rec := f.do(t, http.MethodGet, "/auth/me", nil, cookie); rec.Code != http.StatusOK {
		t.Error("the reset response cookie should authenticate")
	}

	// A dead token is rejected on check and on use.
	if rec := f.do(t, http.MethodGet, resetPath, nil, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a used token, got %d", rec.Code)
	}
}

func TestDeleteAccountEndpoint(t *testing.T) {
	f := newHandlerFixture(t)
	cookie := f.register(t, "alice", "hunter22")

	wrong := f.do(t, http.MethodPost, "/auth/account/delete", DeleteAccountRequest{Confirmation: "delete"}, cookie)
	if wrong.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a wrong confirmation, got %d", wrong.Code)
	}

	rec := f.do(t, http.MethodPost, "/auth/account/delete", DeleteAccountRequest{Confirmation: "DELETE"}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	login := f.do(t, http.MethodPost, "/auth/login", LoginRequest{Username: "alice", Password: "hunter22"}, nil)
	if login.Code != http.StatusUnauthorized {
		t.Errorf("a deleted account must not log in, got %d", login.Code)
	}
}

func TestSessionExpiryInCookie(t *testing.T) {
	f := newHandlerFixture(t)
	rec := f.do(t, http.MethodPost, "/auth/register", RegisterRequest{Username: "alice", Password: "hunter22"}, nil)
	cookie := sessionCookie(t, rec)

	if cookie.Expires.IsZero() {
		t.Fatal("session cookie should carry an expiry")
	}
	if time.Until(cookie.Expires) < 29*24*time.Hour {
		t.Errorf("cookie should expire with the session, got %v", cookie.Expires)
	}
}
