package handlers

import (
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/xcenweb/lextrade/internal/auth"
	"github.com/xcenweb/lextrade/internal/health"
	"github.com/xcenweb/lextrade/internal/httpmiddleware"
	"github.com/xcenweb/lextrade/internal/metrics"
	"github.com/xcenweb/lextrade/internal/prompt"
	"github.com/xcenweb/lextrade/internal/rate"
	"github.com/xcenweb/lextrade/internal/session"
	"github.com/xcenweb/lextrade/internal/trace"
	"github.com/xcenweb/lextrade/internal/verification"
)

// Server groups the services behind the HTTP surface.
type Server struct {
	Auth     *auth.Service
	Codes    *verification.Service
	Prompts  *prompt.Service
	Sessions *session.Issuer
	Limiter  rate.Limiter
	Health   *health.Manager
	Registry *prometheus.Registry
	Logger   *slog.Logger
}

// Router builds the gin engine with all middleware and routes attached.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(
		httpmiddleware.RequestID(),
		httpmiddleware.Logger(s.Logger),
		httpmiddleware.Recovery(s.Logger),
		trace.Middleware("lextrade-api"),
	)

	r.GET("/healthz", health.LivenessHandler)
	r.GET("/readyz", health.ReadinessHandler(s.Health))
	r.GET("/metrics", gin.WrapH(metrics.Handler(s.Registry)))

	r.POST("/verification/email/send", s.rateLimit("send"), s.sendCode)

	userAuth := r.Group("/user/auth")
	{
		userAuth.POST("/login/vcode", s.rateLimit("login"), s.loginWithCode)
		userAuth.POST("/login/psw", s.rateLimit("login"), s.loginWithPassword)
		userAuth.POST("/register/vcode", s.register)
		userAuth.POST("/refresh", s.refresh)
		userAuth.POST("/logout", s.logout)
	}

	r.GET("/user/info/:userid", s.userInfo)
	r.POST("/user/follow", s.notImplemented)

	promptGroup := r.Group("/prompt")
	{
		promptGroup.GET("/public/tag", s.publicTags)
		promptGroup.GET("/tag/list", s.tagList)
		promptGroup.GET("/recommend", s.recommend)
		promptGroup.GET("/content", s.content)
		promptGroup.POST("/article/add", s.requireAuth(), s.notImplemented)
		promptGroup.POST("/article/update", s.requireAuth(), s.notImplemented)
		promptGroup.POST("/search", s.notImplemented)
		promptGroup.GET("/search/hotkey", s.notImplemented)
	}

	return r
}

// notImplemented keeps scaffolded routes honest: registered, enveloped,
// not yet built.
func (s *Server) notImplemented(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, envelope{
		Code: http.StatusNotImplemented,
		Msg:  "not implemented",
		Data: nil,
	})
}
