package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tradedesk-backend/api/validators"
	"github.com/angelmondragon/tradedesk-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
)

type stubAuthService struct {
	loginErr     error
	refreshErr   error
	lastAccess   string
	lastRefresh  string
	loggedOut    string
	loginRequest auth.LoginRequest
}

func (s *stubAuthService) Login(_ context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	s.loginRequest = req
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &auth.LoginResponse{TokenPair: auth.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"}}, nil
}

func (s *stubAuthService) Refresh(_ context.Context, accessToken, refreshToken string) (*auth.TokenPair, error) {
	s.lastAccess = accessToken
	s.lastRefresh = refreshToken
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	return &auth.TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
}

func (s *stubAuthService) Logout(_ context.Context, accessToken string) error {
	s.loggedOut = accessToken
	return nil
}

func TestAuthLoginSetsTokenHeader(t *testing.T) {
	svc := &stubAuthService{}
	req := jsonRequest(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email":    "owner@example.com",
		"password": "hunter22",
	})
	rec := httptest.NewRecorder()

	AuthLogin(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "access-1", rec.Header().Get(validators.TokenHeader))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "owner@example.com", svc.loginRequest.Email)
}

func TestAuthLoginValidation(t *testing.T) {
	req := jsonRequest(t, http.MethodPost, "/api/auth/login", map[string]any{"email": "not-an-email"})
	rec := httptest.NewRecorder()
	AuthLogin(&stubAuthService{}, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthLoginInvalidCredentials(t *testing.T) {
	svc := &stubAuthService{loginErr: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	req := jsonRequest(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email":    "owner@example.com",
		"password": "wrong",
	})
	rec := httptest.NewRecorder()
	AuthLogin(svc, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRefresh(t *testing.T) {
	svc := &stubAuthService{}
	req := jsonRequest(t, http.MethodPost, "/api/auth/refresh", map[string]any{"refreshToken": "refresh-1"})
	req.Header.Set("Authorization", "Bearer access-1")
	rec := httptest.NewRecorder()

	AuthRefresh(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "access-1", svc.lastAccess)
	assert.Equal(t, "refresh-1", svc.lastRefresh)
	assert.Equal(t, "access-2", rec.Header().Get(validators.TokenHeader))
}

func TestAuthRefreshRequiresToken(t *testing.T) {
	req := jsonRequest(t, http.MethodPost, "/api/auth/refresh", map[string]any{"refreshToken": "refresh-1"})
	rec := httptest.NewRecorder()
	AuthRefresh(&stubAuthService{}, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthLogoutUsesHeaderFallback(t *testing.T) {
	svc := &stubAuthService{}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set(validators.TokenHeader, "access-9")
	rec := httptest.NewRecorder()

	AuthLogout(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "access-9", svc.loggedOut)
}
