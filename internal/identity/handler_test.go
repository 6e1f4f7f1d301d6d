package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dsm-gateway/internal/model"
)

func newTestHandler(t *testing.T) (http.Handler, *Service) {
	t.Helper()

	svc := newTestService(t)
	return NewHandler(svc).Routes(), svc
}

func doJSON(t *testing.T, h http.Handler, method string, path string, body any, bearer string) (*httptest.ResponseRecorder, model.Response) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var envelope model.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))

	return w, envelope
}

func TestLoginEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)

	w, envelope := doJSON(t, h, http.MethodPost, "/auth/login", model.LoginRequest{Username: "admin", Password: "password"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, envelope.Success)

	var pair model.TokenPair
	require.NoError(t, envelope.Decode(&pair))
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
}

func TestLoginEndpointRejectsBadPassword(t *testing.T) {
	h, _ := newTestHandler(t)

	w, envelope := doJSON(t, h, http.MethodPost, "/auth/login", model.LoginRequest{Username: "admin", Password: "nope"}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.False(t, envelope.Success)
	require.Equal(t, http.StatusUnauthorized, envelope.Code)
}

func TestRefreshEndpointRequiresToken(t *testing.T) {
	h, _ := newTestHandler(t)

	w, envelope := doJSON(t, h, http.MethodPost, "/auth/refresh", model.RefreshRequest{}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.False(t, envelope.Success)
}

func TestUsersEndpointEnforcesAdminAuthority(t *testing.T) {
	h, svc := newTestHandler(t)
	ctx := context.Background()

	userPair, err := svc.Login(ctx, "user", "password")
	require.NoError(t, err)

	w, envelope := doJSON(t, h, http.MethodGet, "/users", nil, userPair.AccessToken)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, http.StatusForbidden, envelope.Code)

	adminPair, err := svc.Login(ctx, "admin", "password")
	require.NoError(t, err)

	w, envelope = doJSON(t, h, http.MethodGet, "/users", nil, adminPair.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)

	var users []model.UserInfo
	require.NoError(t, envelope.Decode(&users))
	require.Len(t, users, 3)
}

func TestMeEndpointRejectsMissingBearer(t *testing.T) {
	h, _ := newTestHandler(t)

	w, envelope := doJSON(t, h, http.MethodGet, "/users/me", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.False(t, envelope.Success)
}

func TestExpiredAccessTokenIsUnauthorized(t *testing.T) {
	store, err := NewMemoryStore()
	require.NoError(t, err)
	svc := NewService(store, "test-secret", "test-refresh-secret", -time.Minute, 24*time.Hour)
	h := NewHandler(svc).Routes()

	pair, err := svc.Login(context.Background(), "user", "password")
	require.NoError(t, err)

	w, _ := doJSON(t, h, http.MethodGet, "/users/me", nil, pair.AccessToken)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutEndpointAlwaysSucceeds(t *testing.T) {
	h, _ := newTestHandler(t)

	w, envelope := doJSON(t, h, http.MethodPost, "/auth/logout", nil, "garbage")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, envelope.Success)
}
