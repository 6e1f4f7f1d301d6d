package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dsm-gateway/internal/model"
)

// PGStore persists subjects and refresh tokens in Postgres. The
// refresh_tokens table keys on subject id, so an upsert naturally
// enforces the single-active-token invariant.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// EnsureSchema creates the identity tables when they are missing.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS identity_users (
			id            BIGINT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			nickname      TEXT NOT NULL DEFAULT '',
			email         TEXT NOT NULL DEFAULT '',
			phone         TEXT NOT NULL DEFAULT '',
			sex           TEXT NOT NULL DEFAULT '',
			avatar        TEXT NOT NULL DEFAULT '',
			authorities   JSONB NOT NULL DEFAULT '[]',
			permissions   JSONB NOT NULL DEFAULT '[]',
			menus         JSONB NOT NULL DEFAULT '[]'
		);

		CREATE TABLE IF NOT EXISTS identity_refresh_tokens (
			subject_id BIGINT PRIMARY KEY REFERENCES identity_users(id) ON DELETE CASCADE,
			token      TEXT NOT NULL,
			issued_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure identity schema: %w", err)
	}

	return nil
}

const userColumns = `id, username, password_hash, nickname, email, phone, sex, avatar, authorities, permissions, menus`

func (s *PGStore) FindByUsername(ctx context.Context, username string) (*UserRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM identity_users WHERE lower(username) = lower($1)`,
		strings.TrimSpace(username))

	return scanUser(row)
}

func (s *PGStore) FindByID(ctx context.Context, id int64) (*UserRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM identity_users WHERE id = $1`, id)

	return scanUser(row)
}

func (s *PGStore) ListUsers(ctx context.Context) ([]model.UserInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+userColumns+` FROM identity_users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.UserInfo
	for rows.Next() {
		record, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, record.UserInfo)
	}

	return users, rows.Err()
}

func (s *PGStore) UpdateProfile(ctx context.Context, id int64, update model.UpdateProfileRequest) (*UserRecord, error) {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	applyProfileUpdate(&user.UserInfo, update)

	_, err = s.pool.Exec(ctx,
		`UPDATE identity_users
		 SET nickname = $2, email = $3, phone = $4, sex = $5, avatar = $6
		 WHERE id = $1`,
		id, user.Nickname, user.Email, user.Phone, user.Sex, user.Avatar)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	return user, nil
}

func (s *PGStore) SaveRefreshToken(ctx context.Context, subjectID int64, token string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO identity_refresh_tokens (subject_id, token, issued_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (subject_id) DO UPDATE SET token = EXCLUDED.token, issued_at = now()`,
		subjectID, token)
	if err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}

	return nil
}

func (s *PGStore) ActiveRefreshToken(ctx context.Context, subjectID int64) (string, error) {
	var token string
	err := s.pool.QueryRow(ctx,
		`SELECT token FROM identity_refresh_tokens WHERE subject_id = $1`, subjectID).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", model.ErrTokenInvalid
	}
	if err != nil {
		return "", fmt.Errorf("load refresh token: %w", err)
	}

	return token, nil
}

func (s *PGStore) RevokeRefreshToken(ctx context.Context, subjectID int64) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM identity_refresh_tokens WHERE subject_id = $1`, subjectID)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*UserRecord, error) {
	var (
		record      UserRecord
		authorities []byte
		permissions []byte
		menus       []byte
	)

	err := row.Scan(
		&record.ID, &record.Username, &record.PasswordHash,
		&record.Nickname, &record.Email, &record.Phone, &record.Sex, &record.Avatar,
		&authorities, &permissions, &menus)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if err := json.Unmarshal(authorities, &record.Authorities); err != nil {
		return nil, fmt.Errorf("decode authorities: %w", err)
	}
	if err := json.Unmarshal(permissions, &record.Permissions); err != nil {
		return nil, fmt.Errorf("decode permissions: %w", err)
	}
	if err := json.Unmarshal(menus, &record.Menus); err != nil {
		return nil, fmt.Errorf("decode menus: %w", err)
	}

	return &record, nil
}
