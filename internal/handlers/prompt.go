package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jackc/pgx/v5"

	"github.com/xcenweb/lextrade/internal/apperr"
)

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func (s *Server) publicTags(c *gin.Context) {
	tags, err := s.Prompts.PublicTags(c.Request.Context())
	if err != nil {
		respondError(c, s.Logger, err)
		return
	}
	respondOK(c, tags)
}

func (s *Server) tagList(c *gin.Context) {
	page, err := s.Prompts.Tags(c.Request.Context(),
		c.Query("keyword"),
		queryInt(c, "page", 1),
		queryInt(c, "page_size", 0),
	)
	if err != nil {
		respondError(c, s.Logger, err)
		return
	}
	respondOK(c, page)
}

func (s *Server) recommend(c *gin.Context) {
	tagID, _ := strconv.ParseInt(c.Query("tag_id"), 10, 64)
	entries, err := s.Prompts.Recommend(c.Request.Context(),
		tagID,
		queryInt(c, "page", 1),
		queryInt(c, "page_size", 0),
	)
	if err != nil {
		respondError(c, s.Logger, err)
		return
	}
	respondOK(c, entries)
}

func (s *Server) content(c *gin.Context) {
	promptID, err := strconv.ParseInt(c.Query("prompt_id"), 10, 64)
	if err != nil || promptID <= 0 {
		respondBadRequest(c, "prompt_id is required")
		return
	}
	view, err := s.Prompts.Content(c.Request.Context(), promptID)
	if err != nil {
		respondError(c, s.Logger, err)
		return
	}
	respondOK(c, view)
}

// userInfo is the public profile view: the account shape minus email.
func (s *Server) userInfo(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userid"), 10, 64)
	if err != nil || userID <= 0 {
		respondBadRequest(c, "userid must be a positive integer")
		return
	}

	user, err := s.Auth.Users.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondError(c, s.Logger, apperr.New(apperr.KindAccountNotFound, "account does not exist"))
			return
		}
		respondError(c, s.Logger, err)
		return
	}

	respondOK(c, gin.H{
		"id":         user.ID,
		"nickname":   user.Nickname,
		"avatar_url": user.AvatarURL,
		"bio":        user.Bio,
		"points":     user.Points,
		"level":      user.Level,
		"level_exp":  user.LevelExp,
		"count": gin.H{
			"favorites": user.FavoritesCount,
			"follow":    user.FollowCount,
			"fans":      user.FansCount,
			"prompt":    user.PromptCount,
		},
		"created_at": user.CreatedAt.Unix(),
	})
}
