package identity

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"dsm-gateway/internal/model"
)

// UserRecord is a stored subject: the public user info plus the
// credential hash.
type UserRecord struct {
	model.UserInfo
	PasswordHash string
}

// Store persists subjects and the single active refresh token per
// subject. Saving a refresh token replaces whatever was active before,
// which is what invalidates superseded tokens.
type Store interface {
	FindByUsername(ctx context.Context, username string) (*UserRecord, error)
	FindByID(ctx context.Context, id int64) (*UserRecord, error)
	ListUsers(ctx context.Context) ([]model.UserInfo, error)
	UpdateProfile(ctx context.Context, id int64, update model.UpdateProfileRequest) (*UserRecord, error)

	SaveRefreshToken(ctx context.Context, subjectID int64, token string) error
	ActiveRefreshToken(ctx context.Context, subjectID int64) (string, error)
	RevokeRefreshToken(ctx context.Context, subjectID int64) error
}

// MemoryStore is the development/test store, pre-seeded with the three
// stock accounts. All accounts use the password "password".
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[int64]*UserRecord
	refreshTokens map[int64]string
}

func NewMemoryStore() (*MemoryStore, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	store := &MemoryStore{
		users:         map[int64]*UserRecord{},
		refreshTokens: map[int64]string{},
	}
	for _, user := range seedUsers() {
		store.users[user.ID] = &UserRecord{UserInfo: user, PasswordHash: string(hash)}
	}

	return store, nil
}

func (s *MemoryStore) FindByUsername(_ context.Context, username string) (*UserRecord, error) {
	key := strings.ToLower(strings.TrimSpace(username))

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if strings.ToLower(user.Username) == key {
			return cloneRecord(user), nil
		}
	}

	return nil, model.ErrUserNotFound
}

func (s *MemoryStore) FindByID(_ context.Context, id int64) (*UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}

	return cloneRecord(user), nil
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]model.UserInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.UserInfo, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, cloneRecord(user).UserInfo)
	}

	return out, nil
}

func (s *MemoryStore) UpdateProfile(_ context.Context, id int64, update model.UpdateProfileRequest) (*UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}

	applyProfileUpdate(&user.UserInfo, update)
	return cloneRecord(user), nil
}

func (s *MemoryStore) SaveRefreshToken(_ context.Context, subjectID int64, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshTokens[subjectID] = token
	return nil
}

func (s *MemoryStore) ActiveRefreshToken(_ context.Context, subjectID int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.refreshTokens[subjectID]
	if !ok {
		return "", model.ErrTokenInvalid
	}

	return token, nil
}

func (s *MemoryStore) RevokeRefreshToken(_ context.Context, subjectID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.refreshTokens, subjectID)
	return nil
}

func applyProfileUpdate(user *model.UserInfo, update model.UpdateProfileRequest) {
	if update.Nickname != nil {
		user.Nickname = *update.Nickname
	}
	if update.Email != nil {
		user.Email = *update.Email
	}
	if update.Phone != nil {
		user.Phone = *update.Phone
	}
	if update.Sex != nil {
		user.Sex = *update.Sex
	}
	if update.Avatar != nil {
		user.Avatar = *update.Avatar
	}
}

func cloneRecord(in *UserRecord) *UserRecord {
	out := *in
	out.Authorities = append([]string(nil), in.Authorities...)
	out.Permissions = append([]string(nil), in.Permissions...)
	out.Menus = append([]model.MenuItem(nil), in.Menus...)

	return &out
}
