// Package identity implements the upstream identity backend: credential
// exchange, token rotation, and user-record management. In production
// deployments this service runs elsewhere and the gateway only proxies
// to it; the in-repo implementation backs local development and tests.
package identity

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"dsm-gateway/internal/authz"
	"dsm-gateway/internal/menu"
	"dsm-gateway/internal/model"
	"dsm-gateway/pkg/apierror"
)

var adminGuard = authz.Guard{Authorities: []string{"admin"}}

type Service struct {
	store         Store
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewService(store Store, accessSecret string, refreshSecret string, accessTTL time.Duration, refreshTTL time.Duration) *Service {
	return &Service{
		store:         store,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// Login exchanges credentials for a fresh token pair.
func (s *Service) Login(ctx context.Context, username string, password string) (model.TokenPair, error) {
	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return model.TokenPair{}, apierror.New(http.StatusUnauthorized, "invalid username or password", "")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return model.TokenPair{}, apierror.New(http.StatusUnauthorized, "invalid username or password", "")
	}

	return s.issueTokenPair(ctx, user)
}

// Refresh rotates the token pair. The presented token must be the most
// recently issued refresh token for its subject; anything older was
// superseded and is rejected.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	claims, err := s.validate(refreshToken, s.refreshSecret, "refresh")
	if err != nil {
		return model.TokenPair{}, apierror.New(http.StatusUnauthorized, "invalid refresh token", "")
	}

	subjectID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return model.TokenPair{}, apierror.New(http.StatusUnauthorized, "invalid refresh token", "")
	}

	active, err := s.store.ActiveRefreshToken(ctx, subjectID)
	if err != nil || active != refreshToken {
		return model.TokenPair{}, apierror.New(http.StatusUnauthorized, "invalid refresh token", "")
	}

	user, err := s.store.FindByID(ctx, subjectID)
	if err != nil {
		return model.TokenPair{}, apierror.New(http.StatusUnauthorized, "user not found", "")
	}

	return s.issueTokenPair(ctx, user)
}

// Logout revokes the subject's active refresh token. Best effort: an
// unparseable token still results in a successful logout.
func (s *Service) Logout(ctx context.Context, accessToken string) {
	claims, err := s.validate(accessToken, s.accessSecret, "access")
	if err != nil {
		return
	}

	if subjectID, err := strconv.ParseInt(claims.UserID, 10, 64); err == nil {
		_ = s.store.RevokeRefreshToken(ctx, subjectID)
	}
}

// CurrentUser resolves the access token to its user record, with menus
// normalized to display order.
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (*model.UserInfo, error) {
	user, err := s.subjectOf(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	user.Menus = orderedMenus(user.Menus)
	return &user.UserInfo, nil
}

// UpdateProfile applies a profile update for the token's subject. Only
// the mutable profile fields are honored.
func (s *Service) UpdateProfile(ctx context.Context, accessToken string, update model.UpdateProfileRequest) (*model.UserInfo, error) {
	user, err := s.subjectOf(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateProfile(ctx, user.ID, update)
	if err != nil {
		return nil, apierror.New(http.StatusNotFound, "user not found", "")
	}

	updated.Menus = orderedMenus(updated.Menus)
	return &updated.UserInfo, nil
}

// ListUsers returns every subject. Requires the admin authority.
func (s *Service) ListUsers(ctx context.Context, accessToken string) ([]model.UserInfo, error) {
	user, err := s.subjectOf(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	if !adminGuard.Allows(&user.UserInfo) {
		return nil, apierror.New(http.StatusForbidden, "insufficient authority", "")
	}

	return s.store.ListUsers(ctx)
}

// Menus returns the subject's navigation entries in display order.
func (s *Service) Menus(ctx context.Context, accessToken string) ([]model.MenuItem, error) {
	user, err := s.subjectOf(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	return orderedMenus(user.Menus), nil
}

// Permissions returns the subject's permission set.
func (s *Service) Permissions(ctx context.Context, accessToken string) ([]string, error) {
	user, err := s.subjectOf(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	return user.Permissions, nil
}

// ValidateAccessToken decodes and verifies an access token.
func (s *Service) ValidateAccessToken(tokenString string) (*model.AuthClaims, error) {
	return s.validate(tokenString, s.accessSecret, "access")
}

func (s *Service) subjectOf(ctx context.Context, accessToken string) (*UserRecord, error) {
	claims, err := s.validate(accessToken, s.accessSecret, "access")
	if err != nil {
		return nil, apierror.New(http.StatusUnauthorized, "invalid token", "")
	}

	subjectID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return nil, apierror.New(http.StatusUnauthorized, "invalid token subject", "")
	}

	user, err := s.store.FindByID(ctx, subjectID)
	if err != nil {
		return nil, apierror.New(http.StatusNotFound, "user not found", "")
	}

	return user, nil
}

func (s *Service) issueTokenPair(ctx context.Context, user *UserRecord) (model.TokenPair, error) {
	now := time.Now().UTC()
	subject := strconv.FormatInt(user.ID, 10)

	accessToken, err := signToken(s.accessSecret, jwt.MapClaims{
		"sub":         subject,
		"username":    user.Username,
		"authorities": user.Authorities,
		"permissions": user.Permissions,
		"typ":         "access",
		"jti":         uuid.NewString(),
		"iat":         now.Unix(),
		"exp":         now.Add(s.accessTTL).Unix(),
	})
	if err != nil {
		return model.TokenPair{}, err
	}

	// Refresh tokens carry the subject only.
	refreshToken, err := signToken(s.refreshSecret, jwt.MapClaims{
		"sub": subject,
		"typ": "refresh",
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(s.refreshTTL).Unix(),
	})
	if err != nil {
		return model.TokenPair{}, err
	}

	// Storing the new refresh token supersedes the previous one; a pair
	// is replaced wholesale, never partially.
	if err := s.store.SaveRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func signToken(secret []byte, claims jwt.MapClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (s *Service) validate(tokenString string, secret []byte, expectedType string) (*model.AuthClaims, error) {
	parsed, err := jwt.Parse(strings.TrimSpace(tokenString), func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, model.ErrTokenInvalid
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, model.ErrTokenInvalid
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, model.ErrTokenInvalid
	}

	typ, _ := claimsMap["typ"].(string)
	if expectedType != "" && typ != expectedType {
		return nil, model.ErrTokenInvalid
	}

	claims := &model.AuthClaims{Type: typ}
	claims.UserID, _ = claimsMap["sub"].(string)
	claims.Username, _ = claimsMap["username"].(string)
	claims.TokenID, _ = claimsMap["jti"].(string)
	claims.Authorities = stringSlice(claimsMap["authorities"])
	claims.Permissions = stringSlice(claimsMap["permissions"])

	if claims.UserID == "" {
		return nil, model.ErrTokenInvalid
	}

	return claims, nil
}

func stringSlice(raw any) []string {
	values, ok := raw.([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}

	return out
}

func orderedMenus(items []model.MenuItem) []model.MenuItem {
	forest := menu.Build(items)

	out := make([]model.MenuItem, 0, len(items))
	menu.Walk(forest, func(n *menu.Node) {
		out = append(out, n.Item)
	})

	return out
}
