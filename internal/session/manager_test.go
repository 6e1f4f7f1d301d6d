package session

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dsm-gateway/internal/authz"
	"dsm-gateway/internal/gateway"
	"dsm-gateway/internal/identity"
	"dsm-gateway/internal/locale"
	"dsm-gateway/internal/model"
)

func newTestResolver() *locale.Resolver {
	return locale.NewResolver([]string{"en", "zh"}, "zh")
}

func newTestBackend(t *testing.T) (*identity.Service, http.RoundTripper) {
	t.Helper()

	store, err := identity.NewMemoryStore()
	require.NoError(t, err)
	service := identity.NewService(store, "test-secret", "test-refresh-secret", 15*time.Minute, 24*time.Hour)

	return service, identity.NewTransport(identity.NewHandler(service).Routes())
}

// failingTransport simulates an unreachable backend.
type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, context.DeadlineExceeded
}

func TestLoginPopulatesSession(t *testing.T) {
	_, rt := newTestBackend(t)
	client := gateway.New("http://identity.internal", 5*time.Second, gateway.WithTransport(rt))
	m := New(client, newTestResolver(), nil)

	err := m.Login(context.Background(), model.LoginRequest{Username: "admin", Password: "password"})
	require.NoError(t, err)

	state := m.Snapshot()
	require.True(t, state.IsAuthenticated)
	require.False(t, state.IsLoading)
	require.Empty(t, state.Err)
	require.NotNil(t, state.User)
	require.Equal(t, "admin", state.User.Username)
}

func TestLoginFailureIsRecordedAndReturned(t *testing.T) {
	_, rt := newTestBackend(t)
	client := gateway.New("http://identity.internal", 5*time.Second, gateway.WithTransport(rt))
	m := New(client, newTestResolver(), nil)

	err := m.Login(context.Background(), model.LoginRequest{Username: "admin", Password: "wrong"})
	require.ErrorIs(t, err, ErrLoginFailed)

	state := m.Snapshot()
	require.False(t, state.IsAuthenticated)
	require.NotEmpty(t, state.Err, "failure message must survive for the login form")
	require.False(t, state.IsLoading, "loading flag always clears")
}

func TestLoginAgainstDeadBackend(t *testing.T) {
	client := gateway.New("http://identity.internal", time.Second, gateway.WithTransport(failingTransport{}))
	m := New(client, newTestResolver(), nil)

	err := m.Login(context.Background(), model.LoginRequest{Username: "admin", Password: "password"})
	require.ErrorIs(t, err, ErrLoginFailed)
	require.False(t, m.IsAuthenticated())
}

func TestLogoutClearsStateEvenWhenUpstreamFails(t *testing.T) {
	_, rt := newTestBackend(t)
	client := gateway.New("http://identity.internal", 5*time.Second, gateway.WithTransport(rt))
	m := New(client, newTestResolver(), nil)

	require.NoError(t, m.Login(context.Background(), model.LoginRequest{Username: "user", Password: "password"}))
	require.True(t, m.IsAuthenticated())

	// Swap in a dead backend for the logout call; local state must
	// still be dropped.
	m.client = gateway.New("http://identity.internal", time.Second, gateway.WithTransport(failingTransport{}))
	m.Logout(context.Background())

	require.False(t, m.IsAuthenticated())
	require.Nil(t, m.Snapshot().User)
}

func TestRestoreAndInitLoadsUser(t *testing.T) {
	service, rt := newTestBackend(t)
	client := gateway.New("http://identity.internal", 5*time.Second, gateway.WithTransport(rt))
	m := New(client, newTestResolver(), nil)

	pair, err := service.Login(context.Background(), "manager", "password")
	require.NoError(t, err)

	m.Restore(pair)
	require.False(t, m.IsAuthenticated(), "a token without a user record is not a session yet")

	require.NoError(t, m.Init(context.Background()))
	require.True(t, m.IsAuthenticated())
	require.Equal(t, "manager", m.Snapshot().User.Username)

	// Init with a loaded record is a no-op.
	require.NoError(t, m.Init(context.Background()))
}

func TestRefreshUserInfoWithoutTokenFails(t *testing.T) {
	_, rt := newTestBackend(t)
	client := gateway.New("http://identity.internal", 5*time.Second, gateway.WithTransport(rt))
	m := New(client, newTestResolver(), nil)

	err := m.RefreshUserInfo(context.Background())
	require.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestCanEvaluatesGuards(t *testing.T) {
	_, rt := newTestBackend(t)
	client := gateway.New("http://identity.internal", 5*time.Second, gateway.WithTransport(rt))
	m := New(client, newTestResolver(), nil)

	adminOnly := authz.Guard{Authorities: []string{"admin"}}
	require.False(t, m.Can(adminOnly), "anonymous sessions satisfy no constrained guard")

	require.NoError(t, m.Login(context.Background(), model.LoginRequest{Username: "admin", Password: "password"}))
	require.True(t, m.Can(adminOnly))

	require.NoError(t, m.Login(context.Background(), model.LoginRequest{Username: "user", Password: "password"}))
	require.False(t, m.Can(adminOnly))
}

func TestHandleUnauthorizedRedirectsWithPathLocale(t *testing.T) {
	_, rt := newTestBackend(t)

	var redirected string
	var m *Manager
	client := gateway.New("http://identity.internal", 5*time.Second,
		gateway.WithTransport(rt),
		gateway.WithUnauthorizedHook(func() { m.HandleUnauthorized() }))
	m = New(client, newTestResolver(), func(path string) { redirected = path })

	require.NoError(t, m.Login(context.Background(), model.LoginRequest{Username: "user", Password: "password"}))
	m.SetPath("/en/dashboard")

	// A request with a garbage token draws a 401, which fires the hook.
	m.client.Get(context.Background(), "/users/me", "garbage")

	require.Equal(t, "/en/login", redirected)
	require.False(t, m.IsAuthenticated(), "the 401 hook tears the session down")
}

func TestHandleUnauthorizedFallsBackToDefaultLocale(t *testing.T) {
	_, rt := newTestBackend(t)

	var redirected string
	client := gateway.New("http://identity.internal", 5*time.Second, gateway.WithTransport(rt))
	m := New(client, newTestResolver(), func(path string) { redirected = path })

	m.HandleUnauthorized()
	require.Equal(t, "/zh/login", redirected)
}

func TestTeardownDropsEverything(t *testing.T) {
	_, rt := newTestBackend(t)
	client := gateway.New("http://identity.internal", 5*time.Second, gateway.WithTransport(rt))
	m := New(client, newTestResolver(), nil)

	require.NoError(t, m.Login(context.Background(), model.LoginRequest{Username: "user", Password: "password"}))
	m.Teardown()

	state := m.Snapshot()
	require.False(t, state.IsAuthenticated)
	require.Nil(t, state.User)
}
