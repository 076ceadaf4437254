package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/oumizumi/Kairo-sub002/config"
	"github.com/oumizumi/Kairo-sub002/internal/api/handler"
	"github.com/oumizumi/Kairo-sub002/internal/api/middleware"
	"github.com/oumizumi/Kairo-sub002/pkg/jwt"
	"github.com/oumizumi/Kairo-sub002/pkg/redis"
)

// Setup builds the gin engine. rdb may be nil: revocation checks and rate
// limiting are then skipped.
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	var (
		revoked middleware.RevocationChecker
		limiter middleware.Limiter
	)
	if rdb != nil {
		revoked = rdb
		limiter = rdb
	}
	window := config.DurationOr(cfg.Server.RateWindow, time.Minute)
	limited := middleware.RateLimit(limiter, cfg.Server.RateLimit, window)
	authed := middleware.JWTAuth(jwtMgr, revoked)

	r := gin.New()
	r.RedirectTrailingSlash = true

	// ── global middleware ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	if cfg.Server.BodyLimit > 0 {
		r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register/", h.Auth.Register)
			auth.POST("/login/", h.Auth.Login)
			auth.POST("/guest-login/", limited, h.Auth.GuestLogin)
			auth.POST("/token/refresh/", h.Auth.RefreshToken)
			auth.POST("/logout/", authed, h.Auth.Logout)
			auth.GET("/me/", authed, h.Auth.Me)
		}

		programs := api.Group("/programs")
		{
			programs.GET("/", h.Program.List)
			programs.GET("/match/", h.Program.Match)
			programs.GET("/:id/curriculum/", h.Program.Curriculum)
		}
		api.GET("/offerings/:term/:code/", h.Program.Offering)

		ai := api.Group("/ai")
		{
			ai.POST("/classify/", limited, h.AI.Classify)
			ai.POST("/reset/", authed, h.AI.Reset)
		}

		// public view of a shared schedule
		api.GET("/schedule/:id/", h.Share.Get)

		authorized := api.Group("")
		authorized.Use(authed)
		{
			authorized.POST("/schedule/generate/", limited, h.Schedule.Generate)

			calendar := authorized.Group("/user-calendar")
			{
				calendar.GET("/", h.Calendar.List)
				calendar.POST("/", h.Calendar.Create)
				calendar.POST("/bulk_create/", h.Calendar.BulkCreate)
				calendar.DELETE("/clear_calendar/", h.Calendar.Clear)
				calendar.GET("/export_calendar/", h.Calendar.Export)
				calendar.GET("/:id/", h.Calendar.Get)
				calendar.PUT("/:id/", h.Calendar.Update)
				calendar.PATCH("/:id/", h.Calendar.Update)
				calendar.DELETE("/:id/", h.Calendar.Delete)
			}

			files := authorized.Group("/calendar")
			{
				files.GET("/export_ics/", h.Export.ExportICS)
				files.POST("/import_ics/", h.Export.ImportICS)
				files.GET("/export_xlsx/", h.Export.ExportXLSX)
			}

			authorized.POST("/shared-schedules/", h.Share.Create)
		}
	}

	return r
}
