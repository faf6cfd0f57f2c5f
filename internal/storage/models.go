package storage

import "time"

const (
	UserStatusBanned = 0
	UserStatusActive = 1
)

type User struct {
	ID             int64
	Nickname       string
	PasswordHash   string
	AvatarURL      string
	Bio            string
	Email          string
	Points         int
	Level          int
	LevelExp       int
	FavoritesCount int
	FollowCount    int
	FansCount      int
	PromptCount    int
	CreatedAt      time.Time
	LastLoginAt    *time.Time
	Status         int16
	IsDeleted      bool
}

type VerificationCode struct {
	ID        int64
	Target    string
	Purpose   string
	Code      string
	CreatedAt time.Time
	ExpiresAt time.Time
	Used      bool
}

// SessionToken is the single live token pair for a user. Token columns hold
// sha256 hex digests, never the plaintext.
type SessionToken struct {
	ID               int64
	UserID           int64
	DeviceInfo       string
	IPv4             string
	IPv6             string
	AccessHash       string
	RefreshHash      string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	CreatedAt        time.Time
}

type Tag struct {
	ID         int64
	Name       string
	ClickCount int64
	CreatedAt  time.Time
}

type PublicTag struct {
	ID         int64
	Name       string
	SortOrder  int16
	ClickCount int64
	CreatedAt  time.Time
}

type PromptSummary struct {
	ID             int64
	UserID         int64
	Type           string
	CoverImage     string
	Title          string
	SummaryContent string
	LikeCount      int
	ViewCount      int
}

type Prompt struct {
	ID             int64
	UserID         int64
	Type           string
	Title          string
	SummaryContent string
	Content        string
	CoverImage     string
	Images         string
	LikeCount      int
	CommentCount   int
	FavoriteCount  int
	ViewCount      int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
