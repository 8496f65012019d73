package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alarmdecoder/webconsole/internal/api/handlers"
	"github.com/alarmdecoder/webconsole/internal/api/middleware"
	"github.com/alarmdecoder/webconsole/internal/auth"
	"github.com/alarmdecoder/webconsole/internal/config"
	"github.com/alarmdecoder/webconsole/internal/locale"
	"github.com/alarmdecoder/webconsole/internal/logstream"
	"github.com/alarmdecoder/webconsole/internal/rbac"
	"github.com/alarmdecoder/webconsole/internal/service"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// Deps are the collaborators the router wires into handlers
type Deps struct {
	DB       *gorm.DB
	Enforcer *rbac.Enforcer
	Updates  *service.UpdateService
	Keypad   *service.KeypadService
	Zones    *service.ZoneService
	Settings *service.SettingsService
	Setup    *service.SetupService
	Broker   *logstream.LogBroker
	Describe func(ctx context.Context) string // source checkout version, may be nil
	Logger   *slog.Logger
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))
	router.Use(corsMiddleware())
	router.Use(middleware.Locale(locale.Parse(cfg.Locale.Default)))

	authenticator := auth.NewBasicAuthenticator(deps.DB, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	versionHandler := handlers.NewVersionHandler(deps.Describe)
	infoHandler := handlers.NewInfoHandler(deps.DB, versionHandler)
	updaterHandler := handlers.NewUpdaterHandler(deps.DB, deps.Updates, deps.Broker)
	keypadHandler := handlers.NewKeypadHandler(deps.Keypad)
	adminHandler := handlers.NewAdminHandler(deps.DB, deps.Enforcer)
	zoneHandler := handlers.NewZoneHandler(deps.Zones)
	settingsHandler := handlers.NewSettingsHandler(deps.Settings)
	setupHandler := handlers.NewSetupHandler(deps.Setup, authenticator)

	public := router.Group("/api/v1")
	{
		public.GET("/health", handlers.HealthCheck)
		public.GET("/version", versionHandler.GetVersion)
		public.GET("/info", infoHandler.GetInfo)
		public.POST("/auth/login", handlers.Login(authenticator, deps.DB))

		// First-run setup
		public.GET("/setup", setupHandler.GetStatus)
		public.POST("/setup/device", setupHandler.ConfigureDevice)
		public.POST("/setup/account", setupHandler.CreateAccount)
	}

	protected := router.Group("/api/v1")
	protected.Use(authenticator.Middleware())
	{
		protected.GET("/auth/me", handlers.GetCurrentUser(authenticator))

		// Updater endpoints
		protected.GET("/updater/status", updaterHandler.GetStatus)
		protected.POST("/updater/check", middleware.RequireUpdater(deps.Enforcer), updaterHandler.CheckUpdates)
		protected.POST("/updater/update", middleware.RequireUpdater(deps.Enforcer), updaterHandler.Update)

		// Job endpoints
		protected.GET("/updater/jobs", updaterHandler.ListJobs)
		protected.GET("/updater/jobs/:id", updaterHandler.GetJob)
		protected.GET("/updater/jobs/:id/logs/stream", updaterHandler.StreamJobLogs)

		// Keypad endpoints
		protected.GET("/keypad/buttons", keypadHandler.ListButtons)
		protected.POST("/keypad/buttons", keypadHandler.CreateButton)
		protected.GET("/keypad/buttons/:id", keypadHandler.GetButton)
		protected.PUT("/keypad/buttons/:id", keypadHandler.UpdateButton)
		protected.DELETE("/keypad/buttons/:id", keypadHandler.DeleteButton)

		// Zone endpoints
		requireAdmin := middleware.RequireAdmin(deps.Enforcer)
		protected.GET("/zones", zoneHandler.ListZones)
		protected.GET("/zones/:id", zoneHandler.GetZone)
		protected.POST("/zones", requireAdmin, zoneHandler.CreateZone)
		protected.PUT("/zones/:id", requireAdmin, zoneHandler.UpdateZone)
		protected.DELETE("/zones/:id", requireAdmin, zoneHandler.DeleteZone)

		admin := protected.Group("/admin")
		admin.Use(requireAdmin)
		{
			admin.GET("/users", adminHandler.ListUsers)
			admin.POST("/users", adminHandler.CreateUser)
			admin.POST("/users/:id/toggle-admin", adminHandler.ToggleAdmin)
			admin.DELETE("/users/:id", adminHandler.DeleteUser)
			admin.GET("/audit-logs", adminHandler.ListAuditLogs)
			admin.GET("/settings", settingsHandler.GetSettings)
			admin.PUT("/settings", settingsHandler.UpdateSettings)
		}
	}

	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	logger.Info("API router initialized", "mode", cfg.Server.Mode)
	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"ip", c.ClientIP(),
		)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept-Language")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
