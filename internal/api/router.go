// Package api assembles the MailGuard HTTP API.
package api

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/api/handlers"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/api/middleware"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/logger"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/services"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/websocket"
	"gorm.io/gorm"
)

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	DB    *gorm.DB
	Redis *redis.Client

	Directory services.DirectoryService
	Sessions  services.SessionService
	Mail      services.MailService
	Audit     services.AuditTrail
	Hub       *websocket.Hub

	Logger   *slog.Logger
	Security *logger.SecurityLogger

	// Security configuration
	AllowedOrigins []string
	Production     bool
	// Rate limiter; nil uses RateLimit/RateBurst
	Limiter   *middleware.IPRateLimiter
	RateLimit float64
	RateBurst int
	BodyLimit string
}

// NewRouter creates and configures the Echo router with all routes
func NewRouter(cfg *RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Order matters: recover first, then tagging, headers, CORS, limits, logging
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.SecureHeaders())
	e.Use(middleware.SecureCORS(cfg.AllowedOrigins, cfg.Production))

	if cfg.Limiter != nil {
		e.Use(middleware.RateLimiter(cfg.Limiter, cfg.Security))
	} else {
		e.Use(middleware.RateLimiterWithConfig(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit,
			Burst:             cfg.RateBurst,
			Security:          cfg.Security,
		}))
	}

	bodyLimit := cfg.BodyLimit
	if bodyLimit == "" {
		bodyLimit = "1M"
	}
	e.Use(middleware.BodyLimit(bodyLimit))

	if cfg.Logger != nil {
		e.Use(middleware.RequestLogger(cfg.Logger))
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.Sessions)
	emailHandler := handlers.NewEmailHandler(cfg.Mail)
	userHandler := handlers.NewUserHandler(cfg.Directory)
	logHandler := handlers.NewLogHandler(cfg.Audit)

	// Health routes (no auth required)
	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)

	if cfg.Hub != nil {
		upgrader := websocket.NewSecureUpgrader(middleware.FilterOrigins(cfg.AllowedOrigins, cfg.Production), cfg.Security)
		e.GET("/ws", handlers.NewWSHandler(cfg.Hub, cfg.Sessions, upgrader, cfg.Security).Connect)
	}

	e.POST("/api/auth/login", authHandler.Login)

	// Everything else under /api requires a session
	api := e.Group("/api", middleware.SessionAuth(cfg.Sessions, cfg.Security))
	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/auth/me", authHandler.Me)

	// Mail routes
	emails := api.Group("/emails")
	emails.GET("", emailHandler.List)
	emails.POST("", emailHandler.Compose)
	emails.POST("/simulate-attack", emailHandler.SimulateAttack)
	emails.GET("/:id", emailHandler.Get)
	emails.POST("/:id/status", emailHandler.UpdateStatus)

	api.GET("/stats", emailHandler.Stats)

	// Admin routes; the role is the one resolved for this request
	requireAdmin := middleware.RequireRole(models.RoleAdmin, cfg.Security)
	api.GET("/users", userHandler.List, requireAdmin)
	api.POST("/users", userHandler.Create, requireAdmin)
	api.PUT("/users/:id/role", userHandler.SetRole, requireAdmin)
	api.POST("/users/:id/toggle-role", userHandler.ToggleRole, requireAdmin)
	api.GET("/logs", logHandler.List, requireAdmin)

	return e
}
