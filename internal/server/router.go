// Package server assembles the HTTP surface and background jobs.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"loginpanel/internal/handlers"
	"loginpanel/internal/logger"
	"loginpanel/internal/middleware"
	"loginpanel/internal/services"
)

// Options carries the router's dependencies and HTTP-level settings.
type Options struct {
	Auth        services.AuthServicer
	Credentials services.CredentialServicer
	Audit       services.AuditServicer

	// Ping reports storage health for GET /health. Nil skips the check.
	Ping func(ctx context.Context) error

	CORSOrigin       string
	AdminAPIKey      string
	ResponseDelayMin time.Duration
	ResponseDelayMax time.Duration
}

// NewRouter builds the Gin engine with all routes mounted.
func NewRouter(opts Options) *gin.Engine {
	authHandler := handlers.NewAuthHandler(opts.Auth, opts.Audit)
	adminHandler := handlers.NewAdminHandler(opts.Credentials)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(cors(opts.CORSOrigin))

	router.GET("/health", health(opts.Ping))

	auth := router.Group("/auth")
	{
		delayed := auth.Group("", middleware.ResponseDelay(opts.ResponseDelayMin, opts.ResponseDelayMax))
		delayed.POST("/register", authHandler.Register)
		delayed.POST("/login", authHandler.Login)
		delayed.POST("/totp", authHandler.Totp)
		delayed.POST("/logout", authHandler.Logout)

		auth.GET("/me", middleware.SessionAuth(opts.Auth), authHandler.Me)
	}

	admin := router.Group("/admin", middleware.APIKey(opts.AdminAPIKey))
	admin.DELETE("/users/:login", adminHandler.DeleteUser)

	return router
}

func cors(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func health(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				logger.Get().Warnw("health check failed", "error", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
