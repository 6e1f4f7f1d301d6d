package token

import (
	"net/http"
	"time"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
	LocaleCookie  = "NEXT_LOCALE"

	localeCookieMaxAge = 365 * 24 * time.Hour
)

// Kind selects which token cookie an operation applies to.
type Kind int

const (
	Access Kind = iota
	Refresh
)

// Policy fixes the cookie attributes a Store writes. Refresh tokens are
// always HttpOnly; access-token script readability is a deployment
// choice carried in AccessHTTPOnly.
type Policy struct {
	Secure         bool
	AccessHTTPOnly bool
	AccessMaxAge   time.Duration
	RefreshMaxAge  time.Duration
}

// Store reads and writes the session token cookies on HTTP exchanges.
// It holds no state of its own; cookies are the single source of truth.
type Store struct {
	policy Policy
}

func NewStore(policy Policy) *Store {
	return &Store{policy: policy}
}

// Read returns the token of the given kind from the request cookies, or
// "" when absent.
func (s *Store) Read(r *http.Request, kind Kind) string {
	cookie, err := r.Cookie(cookieName(kind))
	if err != nil {
		return ""
	}

	return cookie.Value
}

// Write sets the token cookie of the given kind on the response.
func (s *Store) Write(w http.ResponseWriter, kind Kind, value string) {
	http.SetCookie(w, s.cookie(kind, value, s.maxAge(kind)))
}

// WritePair sets both cookies from a freshly issued token pair. Pairs
// are always replaced wholesale.
func (s *Store) WritePair(w http.ResponseWriter, accessToken string, refreshToken string) {
	s.Write(w, Access, accessToken)
	s.Write(w, Refresh, refreshToken)
}

// Clear removes both token cookies. Idempotent; clearing an absent
// cookie is a no-op.
func (s *Store) Clear(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie(Access, "", -time.Second))
	http.SetCookie(w, s.cookie(Refresh, "", -time.Second))
}

// IsAuthenticated reports whether an access token cookie is present.
// Presence only; expiry and signature belong to whoever decodes it.
func (s *Store) IsAuthenticated(r *http.Request) bool {
	return s.Read(r, Access) != ""
}

// ReadLocale returns the persisted locale preference, or "".
func (s *Store) ReadLocale(r *http.Request) string {
	cookie, err := r.Cookie(LocaleCookie)
	if err != nil {
		return ""
	}

	return cookie.Value
}

// WriteLocale persists the locale preference for roughly a year.
func (s *Store) WriteLocale(w http.ResponseWriter, locale string) {
	http.SetCookie(w, &http.Cookie{
		Name:     LocaleCookie,
		Value:    locale,
		Path:     "/",
		MaxAge:   int(localeCookieMaxAge.Seconds()),
		Secure:   s.policy.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Store) cookie(kind Kind, value string, maxAge time.Duration) *http.Cookie {
	httpOnly := true
	if kind == Access {
		httpOnly = s.policy.AccessHTTPOnly
	}

	return &http.Cookie{
		Name:     cookieName(kind),
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: httpOnly,
		Secure:   s.policy.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (s *Store) maxAge(kind Kind) time.Duration {
	if kind == Refresh {
		return s.policy.RefreshMaxAge
	}

	return s.policy.AccessMaxAge
}

func cookieName(kind Kind) string {
	if kind == Refresh {
		return RefreshCookie
	}

	return AccessCookie
}
