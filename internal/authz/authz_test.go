package authz

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dsm-gateway/internal/model"
)

func user(authorities []string, permissions []string) *model.UserInfo {
	return &model.UserInfo{Authorities: authorities, Permissions: permissions}
}

func TestAuthoritiesAreAnyOf(t *testing.T) {
	guard := Guard{Authorities: []string{"admin"}}

	require.False(t, guard.Allows(user([]string{"user"}, nil)))
	require.True(t, guard.Allows(user([]string{"admin", "user"}, nil)))

	multi := Guard{Authorities: []string{"admin", "manager"}}
	require.True(t, multi.Allows(user([]string{"manager"}, nil)), "one matching authority suffices")
}

func TestPermissionsAreAllOf(t *testing.T) {
	guard := Guard{Permissions: []string{"user:view", "dept:view"}}

	require.False(t, guard.Allows(user(nil, []string{"user:view"})), "every permission is required")
	require.True(t, guard.Allows(user(nil, []string{"user:view", "dept:view", "home:view"})))
}

func TestCombinedGuard(t *testing.T) {
	guard := Guard{Authorities: []string{"admin", "manager"}, Permissions: []string{"user:view"}}

	require.True(t, guard.Allows(user([]string{"manager"}, []string{"user:view"})))
	require.False(t, guard.Allows(user([]string{"manager"}, nil)))
	require.False(t, guard.Allows(user([]string{"user"}, []string{"user:view"})))
}

func TestEmptyGuardAllowsEveryone(t *testing.T) {
	require.True(t, Guard{}.Allows(user(nil, nil)))
	require.True(t, Guard{}.Allows(nil))
}

func TestNilUserDeniedByConstrainedGuard(t *testing.T) {
	require.False(t, Guard{Authorities: []string{"admin"}}.Allows(nil))
}

func TestAllowsClaims(t *testing.T) {
	guard := Guard{Authorities: []string{"admin"}, Permissions: []string{"menu:view"}}

	claims := &model.AuthClaims{
		Authorities: []string{"admin"},
		Permissions: []string{"menu:view", "user:view"},
	}
	require.True(t, guard.AllowsClaims(claims))
	require.False(t, guard.AllowsClaims(nil))
}
