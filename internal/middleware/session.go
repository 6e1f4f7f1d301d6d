package middleware

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"dsm-gateway/internal/gateway"
	"dsm-gateway/internal/locale"
	"dsm-gateway/internal/model"
	"dsm-gateway/internal/proxy"
	"dsm-gateway/internal/token"
)

var staticPrefixes = []string{"/_next/", "/static/", "/assets/", "/favicon.ico", "/robots.txt"}

var publicAPIPaths = []string{"/api/auth/login", "/api/auth/refresh"}

// SessionMiddleware classifies every incoming request and enforces the
// session lifecycle: bearer attachment for API calls, silent token
// refresh, locale-prefix redirects, and login redirects for protected
// pages. It runs before any page or API handler.
type SessionMiddleware struct {
	tokens         *token.Store
	locales        *locale.Resolver
	client         *gateway.Client
	protectedPages []string
}

func NewSessionMiddleware(tokens *token.Store, locales *locale.Resolver, client *gateway.Client, protectedPages []string) *SessionMiddleware {
	return &SessionMiddleware{
		tokens:         tokens,
		locales:        locales,
		client:         client,
		protectedPages: protectedPages,
	}
}

func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if isStaticAsset(path) {
			next.ServeHTTP(w, r)
			return
		}

		if strings.HasPrefix(path, "/api/") {
			m.handleAPI(w, r, next)
			return
		}

		m.handlePage(w, r, next)
	})
}

func (m *SessionMiddleware) handleAPI(w http.ResponseWriter, r *http.Request, next http.Handler) {
	for _, public := range publicAPIPaths {
		if strings.HasPrefix(r.URL.Path, public) {
			next.ServeHTTP(w, r)
			return
		}
	}

	if access := m.tokens.Read(r, token.Access); tokenUsable(access) {
		r.Header.Set("Authorization", "Bearer "+access)
		next.ServeHTTP(w, r)
		return
	}

	// Malformed or expired access tokens fall through to the refresh
	// path exactly like absent ones.
	pair, ok := m.silentRefresh(r.Context(), r)
	if !ok {
		proxy.WriteEnvelope(w, model.Fail(http.StatusUnauthorized, "unauthorized"))
		return
	}

	m.tokens.WritePair(w, pair.AccessToken, pair.RefreshToken)
	r.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	next.ServeHTTP(w, r)
}

func (m *SessionMiddleware) handlePage(w http.ResponseWriter, r *http.Request, next http.Handler) {
	loc, rest := m.locales.SplitPath(r.URL.Path)

	// Locale prefixing happens before any auth decision.
	if loc == "" {
		preferred := m.locales.Resolve(m.tokens.ReadLocale(r), r.Header.Get("Accept-Language"))
		target := locale.WithLocale(preferred, r.URL.Path)
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusTemporaryRedirect)
		return
	}

	if !m.isProtectedPage(rest) {
		next.ServeHTTP(w, r)
		return
	}

	if access := m.tokens.Read(r, token.Access); tokenUsable(access) {
		next.ServeHTTP(w, r)
		return
	}

	pair, ok := m.silentRefresh(r.Context(), r)
	if !ok {
		http.Redirect(w, r, locale.LoginPath(loc), http.StatusTemporaryRedirect)
		return
	}

	m.tokens.WritePair(w, pair.AccessToken, pair.RefreshToken)
	next.ServeHTTP(w, r)
}

// silentRefresh exchanges the refresh-token cookie for a new pair.
// Attempted at most once per request; a failure here is terminal.
func (m *SessionMiddleware) silentRefresh(ctx context.Context, r *http.Request) (model.TokenPair, bool) {
	refresh := m.tokens.Read(r, token.Refresh)
	if refresh == "" {
		return model.TokenPair{}, false
	}

	envelope := m.client.Post(ctx, "/auth/refresh", "", model.RefreshRequest{RefreshToken: refresh})
	if !envelope.Success {
		return model.TokenPair{}, false
	}

	var pair model.TokenPair
	if err := envelope.Decode(&pair); err != nil || pair.AccessToken == "" || pair.RefreshToken == "" {
		return model.TokenPair{}, false
	}

	return pair, true
}

func (m *SessionMiddleware) isProtectedPage(path string) bool {
	for _, prefix := range m.protectedPages {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}

	return false
}

func isStaticAsset(path string) bool {
	for _, prefix := range staticPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}

// tokenUsable reports whether a cookie value looks like a live JWT:
// well formed and, when it carries an exp claim, not yet expired. This
// is a fail-closed screen, not verification; signatures are checked by
// whoever consumes the token.
func tokenUsable(raw string) bool {
	if raw == "" {
		return false
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return false
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	var claims struct {
		Exp int64 `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return false
	}

	return claims.Exp == 0 || time.Now().Unix() < claims.Exp
}
