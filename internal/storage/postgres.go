// Package storage is the pgx-backed relational store. It owns all SQL; the
// service layers never see a connection.
package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- users ---

// GetUserByEmail returns the non-deleted account for email, if any.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, nickname, password, avatar_url, bio, email,
		       points, level, level_exp,
		       favorites_count, follow_count, fans_count, prompt_count,
		       created_at, last_login_at, status, is_deleted
		FROM users
		WHERE email = $1 AND is_deleted = FALSE
	`, email)

	var u User
	if err := row.Scan(&u.ID, &u.Nickname, &u.PasswordHash, &u.AvatarURL, &u.Bio, &u.Email,
		&u.Points, &u.Level, &u.LevelExp,
		&u.FavoritesCount, &u.FollowCount, &u.FansCount, &u.PromptCount,
		&u.CreatedAt, &u.LastLoginAt, &u.Status, &u.IsDeleted); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, nickname, password, avatar_url, bio, email,
		       points, level, level_exp,
		       favorites_count, follow_count, fans_count, prompt_count,
		       created_at, last_login_at, status, is_deleted
		FROM users
		WHERE id = $1 AND is_deleted = FALSE
	`, id)

	var u User
	if err := row.Scan(&u.ID, &u.Nickname, &u.PasswordHash, &u.AvatarURL, &u.Bio, &u.Email,
		&u.Points, &u.Level, &u.LevelExp,
		&u.FavoritesCount, &u.FollowCount, &u.FansCount, &u.PromptCount,
		&u.CreatedAt, &u.LastLoginAt, &u.Status, &u.IsDeleted); err != nil {
		return nil, err
	}
	return &u, nil
}

// EmailExists checks for any account with this email, soft-deleted included.
// Registration refuses reuse either way.
func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)
	`, email).Scan(&exists)
	return exists, err
}

func (s *Store) CreateUser(ctx context.Context, nickname, passwordHash, avatarURL, email string) (*User, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (nickname, password, avatar_url, email, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, nickname, password, avatar_url, bio, email,
		          points, level, level_exp,
		          favorites_count, follow_count, fans_count, prompt_count,
		          created_at, last_login_at, status, is_deleted
	`, nickname, passwordHash, avatarURL, email, UserStatusActive)

	var u User
	if err := row.Scan(&u.ID, &u.Nickname, &u.PasswordHash, &u.AvatarURL, &u.Bio, &u.Email,
		&u.Points, &u.Level, &u.LevelExp,
		&u.FavoritesCount, &u.FollowCount, &u.FansCount, &u.PromptCount,
		&u.CreatedAt, &u.LastLoginAt, &u.Status, &u.IsDeleted); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE users SET last_login_at = $2 WHERE id = $1
	`, userID, at)
	return err
}

// --- verification codes ---

func (s *Store) InsertVerificationCode(ctx context.Context, target, purpose, code string, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO verification_codes (target, purpose, code, expires_at, used)
		VALUES ($1, $2, $3, $4, FALSE)
	`, target, purpose, code, expiresAt)
	return err
}

// ConsumeVerificationCode flips used on one matching live code. The flip is a
// single conditional UPDATE so two racing calls cannot both spend the same
// code; the loser sees zero rows affected.
func (s *Store) ConsumeVerificationCode(ctx context.Context, target, code string, now time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE verification_codes
		SET used = TRUE
		WHERE id = (
			SELECT id FROM verification_codes
			WHERE target = $1 AND code = $2 AND used = FALSE AND expires_at > $3
			ORDER BY id
			LIMIT 1
		) AND used = FALSE
	`, target, code, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SweepVerificationCodes removes everything expired or already spent.
func (s *Store) SweepVerificationCodes(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM verification_codes WHERE expires_at < $1 OR used = TRUE
	`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// --- session tokens ---

// UpsertSessionToken installs a fresh pair for the user, replacing any prior
// row in place. One statement, so concurrent logins cannot duplicate rows.
func (s *Store) UpsertSessionToken(ctx context.Context, t *SessionToken) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_tokens
			(user_id, device_info, ipv4, ipv6,
			 access_token_hash, refresh_token_hash,
			 access_expires_at, refresh_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			device_info        = EXCLUDED.device_info,
			ipv4               = EXCLUDED.ipv4,
			ipv6               = EXCLUDED.ipv6,
			access_token_hash  = EXCLUDED.access_token_hash,
			refresh_token_hash = EXCLUDED.refresh_token_hash,
			access_expires_at  = EXCLUDED.access_expires_at,
			refresh_expires_at = EXCLUDED.refresh_expires_at
	`, t.UserID, t.DeviceInfo, t.IPv4, t.IPv6,
		t.AccessHash, t.RefreshHash, t.AccessExpiresAt, t.RefreshExpiresAt)
	return err
}

func (s *Store) GetSessionByRefreshHash(ctx context.Context, refreshHash string) (*SessionToken, error) {
	return s.getSession(ctx, `refresh_token_hash`, refreshHash)
}

func (s *Store) GetSessionByAccessHash(ctx context.Context, accessHash string) (*SessionToken, error) {
	return s.getSession(ctx, `access_token_hash`, accessHash)
}

func (s *Store) getSession(ctx context.Context, column, hash string) (*SessionToken, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, device_info, ipv4, ipv6,
		       access_token_hash, refresh_token_hash,
		       access_expires_at, refresh_expires_at, created_at
		FROM user_tokens
		WHERE `+column+` = $1
	`, hash)

	var t SessionToken
	if err := row.Scan(&t.ID, &t.UserID, &t.DeviceInfo, &t.IPv4, &t.IPv6,
		&t.AccessHash, &t.RefreshHash,
		&t.AccessExpiresAt, &t.RefreshExpiresAt, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// ReplaceAccessToken swaps in a new access token on an existing session,
// leaving the refresh token untouched.
func (s *Store) ReplaceAccessToken(ctx context.Context, sessionID int64, accessHash string, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE user_tokens
		SET access_token_hash = $2, access_expires_at = $3
		WHERE id = $1
	`, sessionID, accessHash, expiresAt)
	return err
}

// DeleteSessionByAccessHash removes the whole pair. Returns false when no
// session matched.
func (s *Store) DeleteSessionByAccessHash(ctx context.Context, accessHash string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM user_tokens WHERE access_token_hash = $1
	`, accessHash)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// --- tags and prompts ---

func (s *Store) ListPublicTags(ctx context.Context) ([]PublicTag, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT real_tag_id, name, sort_order, click_count, created_at
		FROM prompt_tag_public
		WHERE status = 1
		ORDER BY sort_order DESC, click_count DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []PublicTag
	for rows.Next() {
		var t PublicTag
		if err := rows.Scan(&t.ID, &t.Name, &t.SortOrder, &t.ClickCount, &t.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (s *Store) ListTags(ctx context.Context, keyword string, offset, limit int) ([]Tag, int64, error) {
	where := `WHERE status = 1`
	args := []any{}
	if keyword != "" {
		where += ` AND name ILIKE '%' || $1 || '%'`
		args = append(args, keyword)
	}

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM prompt_tag `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, name, click_count, created_at
		FROM prompt_tag ` + where + `
		ORDER BY click_count DESC, created_at DESC
	`
	if keyword != "" {
		query += ` OFFSET $2 LIMIT $3`
	} else {
		query += ` OFFSET $1 LIMIT $2`
	}
	args = append(args, offset, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.ClickCount, &t.CreatedAt); err != nil {
			return nil, 0, err
		}
		tags = append(tags, t)
	}
	return tags, total, rows.Err()
}

// ListRecommendedPrompts returns published prompts ordered by views, newest
// first on ties, optionally filtered by tag.
func (s *Store) ListRecommendedPrompts(ctx context.Context, tagID int64, offset, limit int) ([]PromptSummary, error) {
	var (
		query string
		args  []any
	)
	if tagID != 0 {
		query = `
			SELECT p.id, p.user_id, p.type, p.cover_image, p.title, p.summary_content,
			       p.like_count, p.view_count
			FROM prompts p
			JOIN prompt_tag_relation r ON r.prompt_id = p.id AND r.tag_id = $1
			WHERE p.status = 1 AND p.is_deleted = FALSE
			ORDER BY p.view_count DESC, p.created_at DESC
			OFFSET $2 LIMIT $3
		`
		args = []any{tagID, offset, limit}
	} else {
		query = `
			SELECT id, user_id, type, cover_image, title, summary_content,
			       like_count, view_count
			FROM prompts
			WHERE status = 1 AND is_deleted = FALSE
			ORDER BY view_count DESC, created_at DESC
			OFFSET $1 LIMIT $2
		`
		args = []any{offset, limit}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prompts []PromptSummary
	for rows.Next() {
		var p PromptSummary
		if err := rows.Scan(&p.ID, &p.UserID, &p.Type, &p.CoverImage, &p.Title, &p.SummaryContent,
			&p.LikeCount, &p.ViewCount); err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}
	return prompts, rows.Err()
}

// GetUsersByIDs batches the author lookup for a prompt page.
func (s *Store) GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*User, error) {
	users := make(map[int64]*User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, nickname, avatar_url
		FROM users
		WHERE id = ANY($1) AND status = $2 AND is_deleted = FALSE
	`, ids, UserStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Nickname, &u.AvatarURL); err != nil {
			return nil, err
		}
		users[u.ID] = &u
	}
	return users, rows.Err()
}

func (s *Store) GetPrompt(ctx context.Context, promptID int64) (*Prompt, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, type, title, summary_content, content,
		       cover_image, images,
		       like_count, comment_count, favorite_count, view_count,
		       created_at, updated_at
		FROM prompts
		WHERE id = $1 AND status = 1 AND is_deleted = FALSE
	`, promptID)

	var p Prompt
	if err := row.Scan(&p.ID, &p.UserID, &p.Type, &p.Title, &p.SummaryContent, &p.Content,
		&p.CoverImage, &p.Images,
		&p.LikeCount, &p.CommentCount, &p.FavoriteCount, &p.ViewCount,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) IncrementPromptViews(ctx context.Context, promptID int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE prompts SET view_count = view_count + 1 WHERE id = $1
	`, promptID)
	return err
}
