package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xcenweb/lextrade/internal/auth"
	"github.com/xcenweb/lextrade/internal/session"
)

func clientMeta(c *gin.Context) session.ClientMeta {
	meta := session.ClientMeta{DeviceInfo: c.Request.UserAgent()}
	if ip := c.ClientIP(); strings.Contains(ip, ":") {
		meta.IPv6 = ip
	} else {
		meta.IPv4 = ip
	}
	return meta
}

type sendCodeRequest struct {
	Target string `json:"target" binding:"required"`
}

func (s *Server) sendCode(c *gin.Context) {
	var req sendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "target is required")
		return
	}
	if err := s.Codes.Issue(c.Request.Context(), req.Target, "login_or_register"); err != nil {
		respondError(c, s.Logger, err)
		return
	}
	respondOK(c, nil)
}

type loginCodeRequest struct {
	Target string `json:"target" binding:"required"`
	VCode  string `json:"vcode" binding:"required"`
}

func (s *Server) loginWithCode(c *gin.Context) {
	var req loginCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "target and vcode are required")
		return
	}
	res, err := s.Auth.LoginWithCode(c.Request.Context(), req.Target, req.VCode, clientMeta(c))
	if err != nil {
		respondError(c, s.Logger, err)
		return
	}
	respondOK(c, res)
}

type loginPasswordRequest struct {
	Target   string `json:"target" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) loginWithPassword(c *gin.Context) {
	var req loginPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "target and password are required")
		return
	}
	res, err := s.Auth.LoginWithPassword(c.Request.Context(), req.Target, req.Password, clientMeta(c))
	if err != nil {
		respondError(c, s.Logger, err)
		return
	}
	respondOK(c, res)
}

type registerRequest struct {
	Nickname   string `json:"nickname" binding:"required"`
	Password   string `json:"password" binding:"required"`
	AvatarPath string `json:"avatar_path"`
	Target     string `json:"target" binding:"required"`
	VCode      string `json:"vcode" binding:"required"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "nickname, password, target and vcode are required")
		return
	}
	res, err := s.Auth.Register(c.Request.Context(), auth.RegisterParams{
		Nickname:  req.Nickname,
		Password:  req.Password,
		AvatarURL: req.AvatarPath,
		Target:    req.Target,
		Code:      req.VCode,
	}, clientMeta(c))
	if err != nil {
		respondError(c, s.Logger, err)
		return
	}
	respondOK(c, res)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (s *Server) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "refresh_token is required")
		return
	}
	res, err := s.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, s.Logger, err)
		return
	}
	respondOK(c, res)
}

func (s *Server) logout(c *gin.Context) {
	if err := s.Auth.Logout(c.Request.Context(), bearerToken(c)); err != nil {
		respondError(c, s.Logger, err)
		return
	}
	respondOK(c, nil)
}
