// Package session mints and rotates the opaque token pairs. One live pair
// per account: a new login replaces the previous row instead of stacking
// sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xcenweb/lextrade/internal/apperr"
	"github.com/xcenweb/lextrade/internal/security"
	"github.com/xcenweb/lextrade/internal/storage"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type Store interface {
	UpsertSessionToken(ctx context.Context, t *storage.SessionToken) error
	GetSessionByRefreshHash(ctx context.Context, refreshHash string) (*storage.SessionToken, error)
	GetSessionByAccessHash(ctx context.Context, accessHash string) (*storage.SessionToken, error)
	ReplaceAccessToken(ctx context.Context, sessionID int64, accessHash string, expiresAt time.Time) error
	DeleteSessionByAccessHash(ctx context.Context, accessHash string) (bool, error)
}

// ClientMeta is what we remember about the device a pair was issued to.
type ClientMeta struct {
	DeviceInfo string
	IPv4       string
	IPv6       string
}

// Pair is a freshly minted or refreshed token pair. AccessExpiresAt is what
// clients get back as a unix timestamp.
type Pair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

type Issuer struct {
	Store      Store
	TokenGen   security.TokenGenerator
	Clock      Clock
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func NewIssuer(store Store, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		Store:      store,
		TokenGen:   security.DefaultTokenGenerator{},
		Clock:      systemClock{},
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
	}
}

// Issue mints a new pair for userID, overwriting any existing session row
// for that user including its client metadata.
func (i *Issuer) Issue(ctx context.Context, userID int64, meta ClientMeta) (*Pair, error) {
	access, accessHash, err := i.TokenGen.New()
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}
	refresh, refreshHash, err := i.TokenGen.New()
	if err != nil {
		return nil, fmt.Errorf("mint refresh token: %w", err)
	}

	now := i.Clock.Now()
	record := &storage.SessionToken{
		UserID:           userID,
		DeviceInfo:       meta.DeviceInfo,
		IPv4:             meta.IPv4,
		IPv6:             meta.IPv6,
		AccessHash:       accessHash,
		RefreshHash:      refreshHash,
		AccessExpiresAt:  now.Add(i.AccessTTL),
		RefreshExpiresAt: now.Add(i.RefreshTTL),
	}
	if err := i.Store.UpsertSessionToken(ctx, record); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return &Pair{
		AccessToken:     access,
		RefreshToken:    refresh,
		AccessExpiresAt: record.AccessExpiresAt,
	}, nil
}

// Refresh swaps the access token on an existing session. The refresh token
// itself is not rotated; it stays valid until its own expiry.
func (i *Issuer) Refresh(ctx context.Context, refreshToken string) (*Pair, int64, error) {
	record, err := i.Store.GetSessionByRefreshHash(ctx, security.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, apperr.New(apperr.KindRefreshInvalid, "refresh token invalid")
		}
		return nil, 0, fmt.Errorf("lookup refresh token: %w", err)
	}

	now := i.Clock.Now()
	if record.RefreshExpiresAt.Before(now) {
		return nil, 0, apperr.New(apperr.KindRefreshExpired, "refresh token expired, log in again")
	}

	access, accessHash, err := i.TokenGen.New()
	if err != nil {
		return nil, 0, fmt.Errorf("mint access token: %w", err)
	}

	expiresAt := now.Add(i.AccessTTL)
	if err := i.Store.ReplaceAccessToken(ctx, record.ID, accessHash, expiresAt); err != nil {
		return nil, 0, fmt.Errorf("replace access token: %w", err)
	}

	return &Pair{
		AccessToken:     access,
		RefreshToken:    refreshToken,
		AccessExpiresAt: expiresAt,
	}, record.UserID, nil
}

// Revoke deletes the session holding accessToken. Access and refresh share
// the row, so both die together.
func (i *Issuer) Revoke(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return apperr.New(apperr.KindTokenInvalid, "access token required")
	}

	deleted, err := i.Store.DeleteSessionByAccessHash(ctx, security.HashToken(accessToken))
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if !deleted {
		return apperr.New(apperr.KindTokenInvalid, "access token invalid")
	}
	return nil
}

// Authenticate resolves a bearer access token to its user. Unknown and
// expired tokens fail the same way.
func (i *Issuer) Authenticate(ctx context.Context, accessToken string) (int64, error) {
	if accessToken == "" {
		return 0, apperr.New(apperr.KindTokenInvalid, "access token required")
	}

	record, err := i.Store.GetSessionByAccessHash(ctx, security.HashToken(accessToken))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperr.New(apperr.KindTokenInvalid, "access token invalid")
		}
		return 0, fmt.Errorf("lookup access token: %w", err)
	}
	if record.AccessExpiresAt.Before(i.Clock.Now()) {
		return 0, apperr.New(apperr.KindTokenInvalid, "access token expired")
	}
	return record.UserID, nil
}
