// Package prompt serves the public content surface: tag lists, the
// recommendation feed and article bodies.
package prompt

import (
	"context"
	"errors"
	"fmt"

	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/xcenweb/lextrade/internal/apperr"
	"github.com/xcenweb/lextrade/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Store is the content slice of the relational store.
type Store interface {
	ListPublicTags(ctx context.Context) ([]storage.PublicTag, error)
	ListTags(ctx context.Context, keyword string, offset, limit int) ([]storage.Tag, int64, error)
	ListRecommendedPrompts(ctx context.Context, tagID int64, offset, limit int) ([]storage.PromptSummary, error)
	GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*storage.User, error)
	GetPrompt(ctx context.Context, promptID int64) (*storage.Prompt, error)
	IncrementPromptViews(ctx context.Context, promptID int64) error
}

type Service struct {
	Store  Store
	Logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{Store: store, Logger: logger}
}

type TagView struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ClickCount int64  `json:"click_count"`
}

// Page is the standard paginated list shape.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Pages    int   `json:"pages"`
}

func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func pageCount(total int64, pageSize int) int {
	if total == 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// PublicTags returns the curated tag strip shown on the landing page.
func (s *Service) PublicTags(ctx context.Context) ([]TagView, error) {
	tags, err := s.Store.ListPublicTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list public tags: %w", err)
	}
	views := make([]TagView, 0, len(tags))
	for _, t := range tags {
		views = append(views, TagView{ID: t.ID, Name: t.Name, ClickCount: t.ClickCount})
	}
	return views, nil
}

// Tags searches the full tag table, paginated.
func (s *Service) Tags(ctx context.Context, keyword string, page, pageSize int) (*Page[TagView], error) {
	page, pageSize = clampPage(page, pageSize)

	tags, total, err := s.Store.ListTags(ctx, keyword, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	items := make([]TagView, 0, len(tags))
	for _, t := range tags {
		items = append(items, TagView{ID: t.ID, Name: t.Name, ClickCount: t.ClickCount})
	}
	return &Page[TagView]{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Pages:    pageCount(total, pageSize),
	}, nil
}

// AuthorView is the slim account shape embedded in feed entries.
type AuthorView struct {
	ID        int64  `json:"id"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url"`
}

type FeedEntry struct {
	ID             int64      `json:"id"`
	Type           string     `json:"type"`
	CoverImage     string     `json:"cover_image"`
	Title          string     `json:"title"`
	SummaryContent string     `json:"summary_content"`
	LikeCount      int        `json:"like_count"`
	ViewCount      int        `json:"view_count"`
	Author         AuthorView `json:"author"`
}

// Recommend returns a page of published prompts ordered by views. Author
// info is resolved in one batched query; entries whose author has since been
// banned or deleted carry an empty author rather than being dropped.
func (s *Service) Recommend(ctx context.Context, tagID int64, page, pageSize int) ([]FeedEntry, error) {
	page, pageSize = clampPage(page, pageSize)

	prompts, err := s.Store.ListRecommendedPrompts(ctx, tagID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list recommended prompts: %w", err)
	}

	ids := make([]int64, 0, len(prompts))
	seen := make(map[int64]bool, len(prompts))
	for _, p := range prompts {
		if !seen[p.UserID] {
			seen[p.UserID] = true
			ids = append(ids, p.UserID)
		}
	}
	authors, err := s.Store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load authors: %w", err)
	}

	entries := make([]FeedEntry, 0, len(prompts))
	for _, p := range prompts {
		e := FeedEntry{
			ID:             p.ID,
			Type:           p.Type,
			CoverImage:     p.CoverImage,
			Title:          p.Title,
			SummaryContent: p.SummaryContent,
			LikeCount:      p.LikeCount,
			ViewCount:      p.ViewCount,
		}
		if a, ok := authors[p.UserID]; ok {
			e.Author = AuthorView{ID: a.ID, Nickname: a.Nickname, AvatarURL: a.AvatarURL}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

type ContentView struct {
	ID             int64  `json:"id"`
	UserID         int64  `json:"user_id"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	SummaryContent string `json:"summary_content"`
	Content        string `json:"content"`
	CoverImage     string `json:"cover_image"`
	Images         string `json:"images"`
	LikeCount      int    `json:"like_count"`
	CommentCount   int    `json:"comment_count"`
	FavoriteCount  int    `json:"favorite_count"`
	ViewCount      int    `json:"view_count"`
	CreatedAt      int64  `json:"created_at"`
	UpdatedAt      int64  `json:"updated_at"`
}

// Content returns an article body and bumps its view counter. The bump is
// best effort; a failed increment is logged, not surfaced.
func (s *Service) Content(ctx context.Context, promptID int64) (*ContentView, error) {
	p, err := s.Store.GetPrompt(ctx, promptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindValidation, "prompt does not exist")
		}
		return nil, fmt.Errorf("load prompt: %w", err)
	}

	if err := s.Store.IncrementPromptViews(ctx, promptID); err != nil {
		s.Logger.Warn("increment prompt views", "prompt_id", promptID, "error", err)
	} else {
		p.ViewCount++
	}

	return &ContentView{
		ID:             p.ID,
		UserID:         p.UserID,
		Type:           p.Type,
		Title:          p.Title,
		SummaryContent: p.SummaryContent,
		Content:        p.Content,
		CoverImage:     p.CoverImage,
		Images:         p.Images,
		LikeCount:      p.LikeCount,
		CommentCount:   p.CommentCount,
		FavoriteCount:  p.FavoriteCount,
		ViewCount:      p.ViewCount,
		CreatedAt:      p.CreatedAt.Unix(),
		UpdatedAt:      p.UpdatedAt.Unix(),
	}, nil
}
