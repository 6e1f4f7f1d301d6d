//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dsm-gateway/internal/config"
	"dsm-gateway/internal/gateway"
	"dsm-gateway/internal/identity"
	"dsm-gateway/internal/locale"
	"dsm-gateway/internal/middleware"
	"dsm-gateway/internal/proxy"
	"dsm-gateway/internal/router"
	"dsm-gateway/internal/token"
)

// pagesStub stands in for the front-end reverse proxy.
func pagesStub() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("page"))
	})
}

func newGatewayServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		ServerPort:           "3000",
		UpstreamBaseURL:      "http://identity.internal",
		UpstreamTimeout:      10 * time.Second,
		MockIdentity:         true,
		JWTSecret:            "test-secret",
		JWTRefreshSecret:     "test-refresh-secret",
		JWTAccessTTL:         15 * time.Minute,
		JWTRefreshTTL:        24 * time.Hour,
		AccessCookieMaxAge:   15 * time.Minute,
		RefreshCookieMaxAge:  24 * time.Hour,
		AccessCookieHTTPOnly: true,
		Locales:              []string{"en", "zh"},
		DefaultLocale:        "zh",
		ProtectedPaths:       []string{"/dashboard", "/profile", "/admin"},
		CORSOrigins:          []string{"*"},
		RateLimitRPM:         1000,
		AuthRateLimitRPM:     1000,
	}
	require.NoError(t, cfg.Validate())

	store, err := identity.NewMemoryStore()
	require.NoError(t, err)
	service := identity.NewService(store, cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	transport := identity.NewTransport(identity.NewHandler(service).Routes())

	client := gateway.New(cfg.UpstreamBaseURL, cfg.UpstreamTimeout, gateway.WithTransport(transport))
	tokens := token.NewStore(token.Policy{
		Secure:         cfg.SecureCookies,
		AccessHTTPOnly: cfg.AccessCookieHTTPOnly,
		AccessMaxAge:   cfg.AccessCookieMaxAge,
		RefreshMaxAge:  cfg.RefreshCookieMaxAge,
	})
	locales := locale.NewResolver(cfg.Locales, cfg.DefaultLocale)
	session := middleware.NewSessionMiddleware(tokens, locales, client, cfg.ProtectedPaths)

	handler := router.New(cfg, session, router.Handlers{
		Auth:  proxy.NewAuthHandler(client, tokens),
		User:  proxy.NewUserHandler(client),
		Pages: pagesStub(),
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return server
}

// newBrowser returns a client with a cookie jar that does not follow
// redirects, so tests can observe Location headers.
func newBrowser(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func login(t *testing.T, browser *http.Client, serverURL string, username string, password string) {
	t.Helper()

	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	require.NoError(t, err)

	resp, err := browser.Post(serverURL+"/api/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()

	u, err := url.Parse(raw)
	require.NoError(t, err)

	return u
}

func cookieValue(t *testing.T, browser *http.Client, serverURL string, name string) string {
	t.Helper()

	for _, c := range browser.Jar.Cookies(mustParse(t, serverURL)) {
		if c.Name == name {
			return c.Value
		}
	}

	return ""
}

func decodeEnvelope(t *testing.T, resp *http.Response) (bool, json.RawMessage) {
	t.Helper()

	var parsed struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))

	return parsed.Success, parsed.Data
}
