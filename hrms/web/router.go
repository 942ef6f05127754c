package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"tfshrms.cloud/hrms/hrms/core"
	common "tfshrms.cloud/hrms/hrms/web/common"
	"tfshrms.cloud/hrms/hrms/web/handlers/auth"
	"tfshrms.cloud/hrms/hrms/web/handlers/dashboard"
	"tfshrms.cloud/hrms/hrms/web/handlers/dropdowns"
	"tfshrms.cloud/hrms/hrms/web/handlers/projects"
	"tfshrms.cloud/hrms/hrms/web/handlers/targets"
	"tfshrms.cloud/hrms/hrms/web/handlers/tasks"
	"tfshrms.cloud/hrms/hrms/web/handlers/trackers"
	"tfshrms.cloud/hrms/hrms/web/handlers/users"
	"tfshrms.cloud/hrms/infrastructure/logging"
	"tfshrms.cloud/hrms/security"
	"tfshrms.cloud/hrms/web/middlewares"
)

// Deps are the collaborators the API is built from.
type Deps struct {
	DB          *gorm.DB
	Log         *logging.Logger
	Notifier    common.Notifier
	Files       core.FileStore
	Mail        *core.MailDispatcher
	Sealer      core.Sealer
	JWTSecret   []byte
	TokenTTL    time.Duration
	ResetTokens security.ResetTokens
	ResetURL    string
	CorsOrigins []string
	// Ready backs GET /ready when set.
	Ready func(ctx context.Context) error
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestID(), middlewares.RequestLogger(d.Log), middlewares.Metrics())
	if len(d.CorsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.CorsOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middlewares.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Disposition", middlewares.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if d.Ready != nil {
		r.GET("/ready", func(c *gin.Context) {
			if err := d.Ready(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}

	base := common.Handler{DB: d.DB, Log: d.Log, Notifier: d.Notifier}
	engine := core.NewEngine(d.DB, d.Files)

	public := r.Group("/api/v1")
	auth.Register(public, base,
		core.NewCredentials(d.DB, d.Sealer, d.JWTSecret, d.TokenTTL),
		core.NewPasswordReset(d.DB, d.ResetTokens, d.Sealer, d.Mail, d.ResetURL))

	protected := r.Group("/api/v1")
	protected.Use(middlewares.Authentication(d.JWTSecret))
	{
		dashboard.Register(protected, base, core.NewAssembler(d.DB, d.Files))
		trackers.Register(protected, base, core.NewTrackerService(d.DB, d.Files, d.Log), engine)
		targets.Register(protected, base, core.NewTargetService(d.DB), engine)
		projects.Register(protected, base, core.NewProjectService(d.DB, d.Files, d.Log))
		tasks.Register(protected, base, core.NewTaskService(d.DB))
		users.Register(protected, base, core.NewUserService(d.DB, d.Sealer))
		dropdowns.Register(protected, base, core.NewDropdowns(d.DB))
	}
	return r
}
