package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/pindropapp/pindrop-backend/api/middleware"
	"github.com/pindropapp/pindrop-backend/internal/accounts"
	"github.com/pindropapp/pindrop-backend/pkg/config"
	pkgerrors "github.com/pindropapp/pindrop-backend/pkg/errors"
)

type stubAccountsService struct {
	loginInput  *accounts.LoginInput
	external    *accounts.ExternalIdentity
	resp        *accounts.AuthResponse
	err         error
	deleteActor *accounts.Actor
	deleteID    uuid.UUID
}

func (s *stubAccountsService) Register(_ context.Context, _ accounts.RegisterInput) (*accounts.AuthResponse, error) {
	return s.resp, s.err
}

func (s *stubAccountsService) Login(_ context.Context, input accounts.LoginInput) (*accounts.AuthResponse, error) {
	s.loginInput = &input
	return s.resp, s.err
}

func (s *stubAccountsService) LoginExternal(_ context.Context, identity accounts.ExternalIdentity) (*accounts.AuthResponse, error) {
	s.external = &identity
	return s.resp, s.err
}

func (s *stubAccountsService) Profile(context.Context, uuid.UUID) (*accounts.AccountDTO, error) {
	if s.resp == nil {
		return nil, s.err
	}
	return &s.resp.Account, s.err
}

func (s *stubAccountsService) Delete(_ context.Context, actor accounts.Actor, targetID uuid.UUID) error {
	s.deleteActor = &actor
	s.deleteID = targetID
	return s.err
}

type stubRevoker struct {
	revoked []string
	err     error
}

func (s *stubRevoker) Revoke(_ context.Context, sessionID string) error {
	s.revoked = append(s.revoked, sessionID)
	return s.err
}

func testAppConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{SessionTTLMinutes: 60},
	}
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == middleware.SessionCookieName {
			return cookie
		}
	}
	return nil
}

func TestAuthLoginSetsSessionCookie(t *testing.T) {
	resp := &accounts.AuthResponse{
		AccessToken: "token-abc",
		Account:     accounts.AccountDTO{ID: uuid.New(), Username: "tester"},
	}
	svc := &stubAccountsService{resp: resp}
	handler := AuthLogin(svc, testAppConfig(), nil)

	body := []byte(`{"username":"tester","password":"secret"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	cookie := sessionCookie(rec)
	if cookie == nil {
		t.Fatal("expected session cookie")
	}
	if cookie.Value != "token-abc" || !cookie.HttpOnly {
		t.Fatalf("unexpected cookie: %+v", cookie)
	}

	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.AccessToken != "token-abc" {
		t.Fatalf("unexpected token: %s", envelope.Data.AccessToken)
	}
}

func TestAuthLoginPropagatesGenericUnauthorized(t *testing.T) {
	svc := &stubAccountsService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid username or password")}
	handler := AuthLogin(svc, testAppConfig(), nil)

	body := []byte(`{"username":"tester","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload.Error.Message != "invalid username or password" {
		t.Fatalf("message must stay generic, got %q", payload.Error.Message)
	}
	if sessionCookie(rec) != nil {
		t.Fatal("no cookie on failed login")
	}
}

func TestAuthLogoutRevokesSessionAndClearsCookie(t *testing.T) {
	revoker := &stubRevoker{}
	handler := AuthLogout(revoker, testAppConfig(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), uuid.New(), "tester", false, "sess-9"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(revoker.revoked) != 1 || revoker.revoked[0] != "sess-9" {
		t.Fatalf("expected session sess-9 revoked, got %v", revoker.revoked)
	}
	cookie := sessionCookie(rec)
	if cookie == nil || cookie.MaxAge != -1 {
		t.Fatalf("expected expired cookie, got %+v", cookie)
	}
}

func TestRegisterReturnsCreated(t *testing.T) {
	resp := &accounts.AuthResponse{
		AccessToken: "fresh-token",
		Account:     accounts.AccountDTO{ID: uuid.New(), Username: "newbie"},
	}
	svc := &stubAccountsService{resp: resp}
	handler := Register(svc, testAppConfig(), nil)

	body := []byte(`{"username":"newbie","email":"newbie@example.com","password":"longenough1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if sessionCookie(rec) == nil {
		t.Fatal("expected session cookie on register")
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc := &stubAccountsService{}
	handler := Register(svc, testAppConfig(), nil)

	body := []byte(`{"username":"newbie","email":"newbie@example.com","password":"short"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMeDeleteUsesCallerAsTarget(t *testing.T) {
	svc := &stubAccountsService{}
	handler := MeDelete(svc, testAppConfig(), nil)

	callerID := uuid.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/me", nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), callerID, "tester", false, "sess-1"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.deleteActor == nil || svc.deleteActor.ID != callerID || svc.deleteID != callerID {
		t.Fatalf("expected self-delete, got actor=%+v target=%s", svc.deleteActor, svc.deleteID)
	}
	cookie := sessionCookie(rec)
	if cookie == nil || cookie.MaxAge != -1 {
		t.Fatal("expected cleared cookie after account deletion")
	}
}
