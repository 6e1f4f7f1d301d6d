// Package authz gates access on a user's authorities and permissions.
// Authorities are coarse role tags checked any-of; permissions are
// fine-grained capability strings checked all-of.
package authz

import "dsm-gateway/internal/model"

// Guard describes an access requirement. An empty slice places no
// constraint of that kind.
type Guard struct {
	Authorities []string
	Permissions []string
}

// Allows reports whether the user satisfies the guard: at least one of
// Guard.Authorities and every one of Guard.Permissions.
func (g Guard) Allows(user *model.UserInfo) bool {
	if user == nil {
		return len(g.Authorities) == 0 && len(g.Permissions) == 0
	}

	if len(g.Authorities) > 0 && !anyOf(user.Authorities, g.Authorities) {
		return false
	}

	if len(g.Permissions) > 0 && !allOf(user.Permissions, g.Permissions) {
		return false
	}

	return true
}

// AllowsClaims applies the guard to decoded token claims.
func (g Guard) AllowsClaims(claims *model.AuthClaims) bool {
	if claims == nil {
		return len(g.Authorities) == 0 && len(g.Permissions) == 0
	}

	return g.Allows(&model.UserInfo{
		Authorities: claims.Authorities,
		Permissions: claims.Permissions,
	})
}

func anyOf(held []string, wanted []string) bool {
	set := toSet(held)
	for _, w := range wanted {
		if _, ok := set[w]; ok {
			return true
		}
	}

	return false
}

func allOf(held []string, wanted []string) bool {
	set := toSet(held)
	for _, w := range wanted {
		if _, ok := set[w]; !ok {
			return false
		}
	}

	return true
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}

	return set
}
