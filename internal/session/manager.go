// Package session holds the client-observed session state: the
// authenticated user record, loading and error flags, and the login,
// logout and refresh orchestration against the identity API. A Manager
// is injected, never a package singleton, so tests get isolated state.
package session

import (
	"context"
	"errors"
	"sync"

	"dsm-gateway/internal/authz"
	"dsm-gateway/internal/gateway"
	"dsm-gateway/internal/locale"
	"dsm-gateway/internal/model"
)

var (
	ErrLoginFailed  = errors.New("login failed")
	ErrNoUserRecord = errors.New("failed to load user record")
)

// RedirectFunc is invoked when the session must be abandoned in favor
// of the login page.
type RedirectFunc func(path string)

// State is a point-in-time snapshot of the session.
type State struct {
	User            *model.UserInfo
	IsAuthenticated bool
	IsLoading       bool
	Err             string
}

type Manager struct {
	client   *gateway.Client
	locales  *locale.Resolver
	redirect RedirectFunc

	mu          sync.Mutex
	tokens      model.TokenPair
	user        *model.UserInfo
	loading     bool
	lastErr     string
	currentPath string
}

// New builds a Manager talking to the identity API through client.
// The gateway client's unauthorized hook should be wired to
// HandleUnauthorized so a 401 anywhere tears the session down.
func New(client *gateway.Client, locales *locale.Resolver, redirect RedirectFunc) *Manager {
	if redirect == nil {
		redirect = func(string) {}
	}

	return &Manager{client: client, locales: locales, redirect: redirect}
}

// SetPath records the path the client currently sits on; its locale
// segment decides where a login redirect points.
func (m *Manager) SetPath(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentPath = path
}

// Restore seeds a persisted token pair, e.g. after process restart.
func (m *Manager) Restore(pair model.TokenPair) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = pair
}

// Snapshot returns the current session state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return State{
		User:            m.user,
		IsAuthenticated: m.user != nil && m.tokens.AccessToken != "",
		IsLoading:       m.loading,
		Err:             m.lastErr,
	}
}

// IsAuthenticated reports whether a token and a user record are loaded.
func (m *Manager) IsAuthenticated() bool {
	return m.Snapshot().IsAuthenticated
}

// Can evaluates an authorization guard against the loaded user.
func (m *Manager) Can(guard authz.Guard) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return guard.Allows(m.user)
}

// Login exchanges credentials for a session. On any failure the error
// is both recorded in the state and returned, so a calling form can
// react; the loading flag always clears. A call while another
// operation is in flight is a no-op.
func (m *Manager) Login(ctx context.Context, creds model.LoginRequest) error {
	if !m.begin() {
		return nil
	}
	defer m.end()

	envelope := m.client.Post(ctx, "/auth/login", "", creds)
	if !envelope.Success {
		return m.fail(envelope.Message, ErrLoginFailed)
	}

	var pair model.TokenPair
	if err := envelope.Decode(&pair); err != nil || pair.AccessToken == "" {
		return m.fail("malformed login response", ErrLoginFailed)
	}

	m.mu.Lock()
	m.tokens = pair
	m.mu.Unlock()

	user := m.fetchUser(ctx, pair.AccessToken)
	if user == nil {
		return m.fail(ErrNoUserRecord.Error(), ErrNoUserRecord)
	}

	m.mu.Lock()
	m.user = user
	m.lastErr = ""
	m.mu.Unlock()

	return nil
}

// Logout notifies the backend (best effort) and always clears local
// state; an upstream failure never leaves the session half-open.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	access := m.tokens.AccessToken
	m.mu.Unlock()

	if access != "" {
		m.client.Post(ctx, "/auth/logout", access, nil)
	}

	m.clearLocal()
}

// RefreshUserInfo re-fetches the user record with the current token.
// Used after profile edits and on startup when a token was restored but
// no record is cached yet. No-op while another operation is in flight.
func (m *Manager) RefreshUserInfo(ctx context.Context) error {
	if !m.begin() {
		return nil
	}
	defer m.end()

	m.mu.Lock()
	access := m.tokens.AccessToken
	m.mu.Unlock()

	if access == "" {
		return m.fail("not authenticated", model.ErrUnauthorized)
	}

	user := m.fetchUser(ctx, access)
	if user == nil {
		return m.fail(ErrNoUserRecord.Error(), ErrNoUserRecord)
	}

	m.mu.Lock()
	m.user = user
	m.lastErr = ""
	m.mu.Unlock()

	return nil
}

// Init loads the user record when a restored token exists without one.
func (m *Manager) Init(ctx context.Context) error {
	m.mu.Lock()
	needsFetch := m.tokens.AccessToken != "" && m.user == nil
	m.mu.Unlock()

	if !needsFetch {
		return nil
	}

	return m.RefreshUserInfo(ctx)
}

// Teardown drops all session state.
func (m *Manager) Teardown() {
	m.clearLocal()
}

// HandleUnauthorized is the gateway client's 401 hook: drop the session
// and send the client to the locale-aware login page.
func (m *Manager) HandleUnauthorized() {
	m.mu.Lock()
	path := m.currentPath
	m.mu.Unlock()

	m.clearLocal()

	loc := m.locales.Default()
	if path != "" {
		if fromPath, _ := m.locales.SplitPath(path); fromPath != "" {
			loc = fromPath
		}
	}

	m.redirect(locale.LoginPath(loc))
}

func (m *Manager) fetchUser(ctx context.Context, access string) *model.UserInfo {
	envelope := m.client.Get(ctx, "/users/me", access)
	if !envelope.Success {
		return nil
	}

	var user model.UserInfo
	if err := envelope.Decode(&user); err != nil || user.Username == "" {
		return nil
	}

	return &user
}

func (m *Manager) begin() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loading {
		return false
	}
	m.loading = true
	return true
}

func (m *Manager) end() {
	m.mu.Lock()
	m.loading = false
	m.mu.Unlock()
}

func (m *Manager) fail(message string, err error) error {
	m.mu.Lock()
	m.lastErr = message
	m.mu.Unlock()

	return err
}

func (m *Manager) clearLocal() {
	m.mu.Lock()
	m.user = nil
	m.tokens = model.TokenPair{}
	m.mu.Unlock()
}
