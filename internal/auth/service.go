// Package auth ties the verification, credential and session pieces together
// into the login, registration and logout flows.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/xcenweb/lextrade/internal/apperr"
	"github.com/xcenweb/lextrade/internal/metrics"
	"github.com/xcenweb/lextrade/internal/security"
	"github.com/xcenweb/lextrade/internal/session"
	"github.com/xcenweb/lextrade/internal/storage"
	"github.com/xcenweb/lextrade/internal/verification"
)

const (
	nicknameMaxLen = 15
	passwordMinLen = 6
	passwordMaxLen = 20
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// UserStore is the account slice of the relational store.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*storage.User, error)
	GetUserByID(ctx context.Context, id int64) (*storage.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	CreateUser(ctx context.Context, nickname, passwordHash, avatarURL, email string) (*storage.User, error)
	UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error
}

// Codes is what this package needs from the verification service.
type Codes interface {
	Verify(ctx context.Context, target, code string) error
}

// Sessions is what this package needs from the token issuer.
type Sessions interface {
	Issue(ctx context.Context, userID int64, meta session.ClientMeta) (*session.Pair, error)
	Refresh(ctx context.Context, refreshToken string) (*session.Pair, int64, error)
	Revoke(ctx context.Context, accessToken string) error
}

type Service struct {
	Users    UserStore
	Codes    Codes
	Sessions Sessions
	Argon2   security.Argon2Params
	Logger   *slog.Logger
	Clock    Clock
}

func NewService(users UserStore, codes Codes, sessions Sessions, logger *slog.Logger) *Service {
	return &Service{
		Users:    users,
		Codes:    codes,
		Sessions: sessions,
		Argon2:   security.DefaultArgon2Params(),
		Logger:   logger,
		Clock:    systemClock{},
	}
}

// UserView is the account shape returned to clients after login, register
// and refresh. Timestamps are unix seconds; last_login_at is 0 until the
// first login completes.
type UserView struct {
	ID        int64      `json:"id"`
	Nickname  string     `json:"nickname"`
	AvatarURL string     `json:"avatar_url"`
	Email     string     `json:"email"`
	Bio       string     `json:"bio"`
	Points    int        `json:"points"`
	Level     int        `json:"level"`
	LevelExp  int        `json:"level_exp"`
	Count     CountsView `json:"count"`
	CreatedAt int64      `json:"created_at"`
	LastLogin int64      `json:"last_login_at"`
}

type CountsView struct {
	Favorites int `json:"favorites"`
	Follow    int `json:"follow"`
	Fans      int `json:"fans"`
	Prompt    int `json:"prompt"`
}

// TokenView is the pair as clients see it.
type TokenView struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// LoginResult bundles the account view with its freshly issued pair.
type LoginResult struct {
	User  UserView  `json:"user"`
	Token TokenView `json:"tokens"`
}

func viewOf(u *storage.User) UserView {
	v := UserView{
		ID:        u.ID,
		Nickname:  u.Nickname,
		AvatarURL: u.AvatarURL,
		Email:     u.Email,
		Bio:       u.Bio,
		Points:    u.Points,
		Level:     u.Level,
		LevelExp:  u.LevelExp,
		Count: CountsView{
			Favorites: u.FavoritesCount,
			Follow:    u.FollowCount,
			Fans:      u.FansCount,
			Prompt:    u.PromptCount,
		},
		CreatedAt: u.CreatedAt.Unix(),
	}
	if u.LastLoginAt != nil {
		v.LastLogin = u.LastLoginAt.Unix()
	}
	return v
}

func tokenView(p *session.Pair) TokenView {
	return TokenView{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		ExpiresAt:    p.AccessExpiresAt.Unix(),
	}
}

// LoginWithCode spends a verification code and logs the matching account in.
// The caller has proven mailbox control, so missing and banned accounts are
// reported as such rather than hidden behind a generic failure.
func (s *Service) LoginWithCode(ctx context.Context, target, code string, meta session.ClientMeta) (*LoginResult, error) {
	if err := s.Codes.Verify(ctx, target, code); err != nil {
		metrics.Logins.WithLabelValues("vcode", "denied").Inc()
		return nil, err
	}

	normalized, err := verification.NormalizeEmail(target)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, "invalid email address")
	}

	user, err := s.Users.GetUserByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			metrics.Logins.WithLabelValues("vcode", "denied").Inc()
			return nil, apperr.New(apperr.KindAccountNotFound, "account does not exist")
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	if user.Status == storage.UserStatusBanned {
		metrics.Logins.WithLabelValues("vcode", "denied").Inc()
		return nil, apperr.New(apperr.KindAccountBanned, "account is banned")
	}

	return s.finishLogin(ctx, "vcode", user, meta)
}

// LoginWithPassword authenticates by email and password. Every failure looks
// the same to the caller so account existence cannot be probed.
func (s *Service) LoginWithPassword(ctx context.Context, target, password string, meta session.ClientMeta) (*LoginResult, error) {
	invalid := apperr.New(apperr.KindInvalidCredentials, "email or password incorrect")

	normalized, err := verification.NormalizeEmail(target)
	if err != nil {
		metrics.Logins.WithLabelValues("password", "denied").Inc()
		return nil, invalid
	}

	user, err := s.Users.GetUserByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			metrics.Logins.WithLabelValues("password", "denied").Inc()
			return nil, invalid
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	if user.Status == storage.UserStatusBanned {
		metrics.Logins.WithLabelValues("password", "denied").Inc()
		return nil, invalid
	}
	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		metrics.Logins.WithLabelValues("password", "denied").Inc()
		return nil, invalid
	}

	return s.finishLogin(ctx, "password", user, meta)
}

func (s *Service) finishLogin(ctx context.Context, method string, user *storage.User, meta session.ClientMeta) (*LoginResult, error) {
	now := s.Clock.Now()
	if err := s.Users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("record login time: %w", err)
	}
	user.LastLoginAt = &now

	pair, err := s.Sessions.Issue(ctx, user.ID, meta)
	if err != nil {
		return nil, err
	}

	metrics.Logins.WithLabelValues(method, "ok").Inc()
	s.Logger.Info("login", "method", method, "user_id", user.ID)

	return &LoginResult{User: viewOf(user), Token: tokenView(pair)}, nil
}

// RegisterParams are the inputs to Register after transport decoding.
type RegisterParams struct {
	Nickname  string
	Password  string
	AvatarURL string
	Target    string
	Code      string
}

// Register spends a verification code and creates the account, then logs it
// straight in. A previously soft-deleted account still blocks its email.
func (s *Service) Register(ctx context.Context, p RegisterParams, meta session.ClientMeta) (*LoginResult, error) {
	if err := s.Codes.Verify(ctx, p.Target, p.Code); err != nil {
		return nil, err
	}

	if n := utf8.RuneCountInString(p.Nickname); n < 1 || n > nicknameMaxLen {
		return nil, apperr.New(apperr.KindValidation, "nickname must be 1 to 15 characters")
	}
	if n := utf8.RuneCountInString(p.Password); n < passwordMinLen || n > passwordMaxLen {
		return nil, apperr.New(apperr.KindValidation, "password must be 6 to 20 characters")
	}

	normalized, err := verification.NormalizeEmail(p.Target)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, "invalid email address")
	}

	taken, err := s.Users.EmailExists(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, apperr.New(apperr.KindEmailTaken, "email is already registered")
	}

	hash, err := security.HashPassword(p.Password, s.Argon2)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.Users.CreateUser(ctx, p.Nickname, hash, p.AvatarURL, normalized)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	s.Logger.Info("account registered", "user_id", user.ID)

	return s.finishLogin(ctx, "register", user, meta)
}

// Refresh swaps the access token and returns the current account view
// alongside the pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	pair, userID, err := s.Sessions.Refresh(ctx, refreshToken)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("denied").Inc()
		return nil, err
	}

	user, err := s.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	metrics.TokenRefreshes.WithLabelValues("ok").Inc()
	return &LoginResult{User: viewOf(user), Token: tokenView(pair)}, nil
}

// Logout revokes the session holding the bearer access token.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	return s.Sessions.Revoke(ctx, accessToken)
}
