package model

// UserInfo is the closed user-record shape exchanged with the identity
// backend. Authorities and Permissions are sets; order carries no meaning.
type UserInfo struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Nickname    string     `json:"nickname"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	Sex         string     `json:"sex"`
	Avatar      string     `json:"avatar"`
	Authorities []string   `json:"authorities"`
	Permissions []string   `json:"permissions"`
	Menus       []MenuItem `json:"menus"`
}

// MenuItem is a navigation entry. Entries form a forest keyed by
// ParentID; a nil ParentID marks a root.
type MenuItem struct {
	ID       int64  `json:"id"`
	ParentID *int64 `json:"parentId"`
	MenuName string `json:"menuName"`
	OrderNum int    `json:"orderNum"`
	Path     string `json:"path"`
	Frame    bool   `json:"frame"`
	Cache    bool   `json:"cache"`
	Icon     string `json:"icon"`
}

// AuthClaims is the decoded access-token claim set.
type AuthClaims struct {
	UserID      string   `json:"sub"`
	Username    string   `json:"username"`
	Authorities []string `json:"authorities"`
	Permissions []string `json:"permissions"`
	Type        string   `json:"typ"`
	TokenID     string   `json:"jti"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// UpdateProfileRequest carries the profile fields a subject may change
// about themself. Identity and authorization fields are not updatable.
type UpdateProfileRequest struct {
	Nickname *string `json:"nickname,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Sex      *string `json:"sex,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}
