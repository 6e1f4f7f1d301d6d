package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"dsm-gateway/internal/gateway"
	"dsm-gateway/internal/identity"
	"dsm-gateway/internal/locale"
	"dsm-gateway/internal/token"
)

type sessionFixture struct {
	middleware *SessionMiddleware
	service    *identity.Service
	tokens     *token.Store
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	store, err := identity.NewMemoryStore()
	require.NoError(t, err)
	service := identity.NewService(store, "test-secret", "test-refresh-secret", 15*time.Minute, 24*time.Hour)
	handler := identity.NewHandler(service).Routes()

	client := gateway.New("http://identity.internal", 5*time.Second,
		gateway.WithTransport(identity.NewTransport(handler)))

	tokens := token.NewStore(token.Policy{
		AccessHTTPOnly: true,
		AccessMaxAge:   15 * time.Minute,
		RefreshMaxAge:  24 * time.Hour,
	})
	resolver := locale.NewResolver([]string{"en", "zh"}, "zh")

	return &sessionFixture{
		middleware: NewSessionMiddleware(tokens, resolver, client, []string{"/dashboard", "/profile", "/admin"}),
		service:    service,
		tokens:     tokens,
	}
}

// nextRecorder captures whether the request was forwarded and with what
// Authorization header.
type nextRecorder struct {
	called bool
	bearer string
}

func (n *nextRecorder) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n.called = true
		n.bearer = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	})
}

func expiredJWT(t *testing.T) string {
	t.Helper()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "2",
		"typ": "access",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("whatever"))
	require.NoError(t, err)

	return signed
}

func cookiesByName(w *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func TestStaticAssetsBypassAuth(t *testing.T) {
	f := newSessionFixture(t)
	next := &nextRecorder{}

	req := httptest.NewRequest(http.MethodGet, "/_next/static/chunk.js", nil)
	w := httptest.NewRecorder()
	f.middleware.Handler(next.handler()).ServeHTTP(w, req)

	require.True(t, next.called)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestPublicAPIPassesUnauthenticated(t *testing.T) {
	f := newSessionFixture(t)
	next := &nextRecorder{}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	w := httptest.NewRecorder()
	f.middleware.Handler(next.handler()).ServeHTTP(w, req)

	require.True(t, next.called)
	require.Empty(t, next.bearer)
}

func TestProtectedAPIAttachesBearer(t *testing.T) {
	f := newSessionFixture(t)
	next := &nextRecorder{}

	pair, err := f.service.Login(context.Background(), "user", "password")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(&http.Cookie{Name: token.AccessCookie, Value: pair.AccessToken})
	w := httptest.NewRecorder()
	f.middleware.Handler(next.handler()).ServeHTTP(w, req)

	require.True(t, next.called)
	require.Equal(t, "Bearer "+pair.AccessToken, next.bearer)
}

func TestProtectedAPIWithoutAnyTokenIs401(t *testing.T) {
	f := newSessionFixture(t)
	next := &nextRecorder{}

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	w := httptest.NewRecorder()
	f.middleware.Handler(next.handler()).ServeHTTP(w, req)

	require.False(t, next.called)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), `"success":false`)
}

func TestSilentRefreshRotatesCookiesOnAPI(t *testing.T) {
	f := newSessionFixture(t)
	next := &nextRecorder{}

	pair, err := f.service.Login(context.Background(), "user", "password")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(&http.Cookie{Name: token.AccessCookie, Value: expiredJWT(t)})
	req.AddCookie(&http.Cookie{Name: token.RefreshCookie, Value: pair.RefreshToken})
	w := httptest.NewRecorder()
	f.middleware.Handler(next.handler()).ServeHTTP(w, req)

	require.True(t, next.called, "request must be forwarded after refresh")

	cookies := cookiesByName(w)
	access := cookies[token.AccessCookie]
	refresh := cookies[token.RefreshCookie]
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	require.NotEqual(t, expiredJWT(t), access.Value)
	require.NotEqual(t, pair.RefreshToken, refresh.Value, "refresh token must rotate")
	require.Equal(t, "Bearer "+access.Value, next.bearer, "forwarded request carries the fresh token")
}

func TestSilentRefreshIsTerminalOnFailure(t *testing.T) {
	f := newSessionFixture(t)
	next := &nextRecorder{}

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(&http.Cookie{Name: token.RefreshCookie, Value: "revoked-or-garbage"})
	w := httptest.NewRecorder()
	f.middleware.Handler(next.handler()).ServeHTTP(w, req)

	require.False(t, next.called)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMalformedAccessTokenTreatedAsAbsent(t *testing.T) {
	f := newSessionFixture(t)
	next := &nextRecorder{}

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(&http.Cookie{Name: token.AccessCookie, Value: "not.a.jwt%%%"})
	w := httptest.NewRecorder()
	f.middleware.Handler(next.handler()).ServeHTTP(w, req)

	require.False(t, next.called)
	require.Equal(t, http.StatusUnauthorized, w.Code, "fail closed, never 500")
}

func TestPageWithoutLocaleRedirects(t *testing.T) {
	f := newSessionFixture(t)
	next := &nextRecorder{}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Accept-Language", "en;q=0.9, zh;q=1.0")
	w := httptest.NewRecorder()
	f.middleware.Handler(next.handler()).ServeHTTP(w, req)

	require.False(t, next.called)
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	require.Equal(t, "/zh/dashboard", w.Header().Get("Location"))
}

func TestLocaleRedirectUsesDefaultWithoutHints(t *testing.T) {
	f := newSessionFixture(t)
	next := &nextRecorder{}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	w := httptest.NewRecorder()
	f.middleware.Handler(next.handler()).ServeHTTP(w, req)

	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	require.Equal(t, "/zh/dashboard", w.Header().Get("Location"))
}

func TestLocaleRedirectPrefersCookie(t *testing.T) {
	f := newSessionFixture(t)
	next := &nextRecorder{}

	req := httptest.NewRequest(http.MethodGet, "/profile?tab=security", nil)
	req.AddCookie(&http.Cookie{Name: token.LocaleCookie, Value: "en"})
	w := httptest.NewRecorder()
	f.middleware.Handler(next.handler()).ServeHTTP(w, req)

	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	require.Equal(t, "/en/profile?tab=security", w.Header().Get("Location"))
}

func TestLocaleRedirectHappensBeforeAuth(t *testing.T) {
	f := newSessionFixture(t)
	next := &nextRecorder{}

	// No tokens at all: the answer is still a locale redirect, not a
	// login redirect.
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	w := httptest.NewRecorder()
	f.middleware.Handler(next.handler()).ServeHTTP(w, req)

	require.Equal(t, "/zh/admin", w.Header().Get("Location"))
}

func TestProtectedPageWithValidTokenForwards(t *testing.T) {
	f := newSessionFixture(t)
	next := &nextRecorder{}

	pair, err := f.service.Login(context.Background(), "user", "password")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/en/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: token.AccessCookie, Value: pair.AccessToken})
	w := httptest.NewRecorder()
	f.middleware.Handler(next.handler()).ServeHTTP(w, req)

	require.True(t, next.called)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedPageSilentRefresh(t *testing.T) {
	f := newSessionFixture(t)
	next := &nextRecorder{}

	pair, err := f.service.Login(context.Background(), "user", "password")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/en/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: token.AccessCookie, Value: expiredJWT(t)})
	req.AddCookie(&http.Cookie{Name: token.RefreshCookie, Value: pair.RefreshToken})
	w := httptest.NewRecorder()
	f.middleware.Handler(next.handler()).ServeHTTP(w, req)

	require.True(t, next.called)

	cookies := cookiesByName(w)
	require.NotNil(t, cookies[token.AccessCookie])
	require.NotEqual(t, pair.RefreshToken, cookies[token.RefreshCookie].Value)
}

func TestProtectedPageRevokedRefreshRedirectsToLocaleLogin(t *testing.T) {
	f := newSessionFixture(t)
	next := &nextRecorder{}

	ctx := context.Background()
	pair, err := f.service.Login(ctx, "user", "password")
	require.NoError(t, err)
	f.service.Logout(ctx, pair.AccessToken)

	req := httptest.NewRequest(http.MethodGet, "/en/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: token.AccessCookie, Value: expiredJWT(t)})
	req.AddCookie(&http.Cookie{Name: token.RefreshCookie, Value: pair.RefreshToken})
	w := httptest.NewRecorder()
	f.middleware.Handler(next.handler()).ServeHTTP(w, req)

	require.False(t, next.called)
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	require.Equal(t, "/en/login", w.Header().Get("Location"), "login redirect keeps the path's locale")
}

func TestPublicPageForwardsUnchanged(t *testing.T) {
	f := newSessionFixture(t)
	next := &nextRecorder{}

	req := httptest.NewRequest(http.MethodGet, "/zh/login", nil)
	w := httptest.NewRecorder()
	f.middleware.Handler(next.handler()).ServeHTTP(w, req)

	require.True(t, next.called)
	require.Equal(t, http.StatusOK, w.Code)
}
