package router

import (
	"time"

	"realtime-chat-demo/backend/internal/api"
	"realtime-chat-demo/backend/internal/ws"
	"realtime-chat-demo/backend/pkg/config"
	"realtime-chat-demo/backend/pkg/di"
	"realtime-chat-demo/backend/pkg/errors"
	"realtime-chat-demo/backend/pkg/logger"
	"realtime-chat-demo/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// Track server start time for uptime calculations
var startTime = time.Now()

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Hub       *ws.Hub
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	// Use the container's logger
	logger.SetGlobal(container.Logger)

	// Load configuration
	cfg := config.New()

	// Configure Gin mode based on environment
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	engine := gin.New()

	// Tag every request with a request ID before anything logs it
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(middleware.ContextPropagationMiddleware())

	// Use the logger middleware to capture all requests
	engine.Use(logger.Middleware(container.Logger))

	// Add custom error handler middleware
	engine.Use(errors.ErrorHandler())

	// Add custom recovery middleware with structured logging instead of default
	engine.Use(errors.RecoveryWithLogger())

	// Create rate limiter with default options
	rateLimiter := middleware.NewRateLimiter(container.Logger)

	// Apply rate limiting to all routes
	engine.Use(rateLimiter.Middleware())

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Hub:       container.Hub,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	// Add CORS middleware
	r.Engine.Use(corsMiddleware())

	// Create JWT auth middleware
	jwtAuth := middleware.JWTAuthMiddleware(r.Container.JWTService, r.Logger)

	// Health endpoints (no auth required)
	r.setupHealthRoutes()

	// API version 1 routes
	v1 := r.Engine.Group("/api/v1")

	// Versioned health endpoint
	healthHandler := &api.Handler{}
	healthHandler.RegisterHealthRoutes(v1)

	// Auth routes (signup and login are public)
	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/signup", r.Container.AuthHandler.Signup)
		authRoutes.POST("/login", r.Container.AuthHandler.Login)
		authRoutes.GET("/me", jwtAuth, r.Container.AuthHandler.Me)
		authRoutes.POST("/callback", jwtAuth, r.Container.AuthHandler.Callback)
	}

	// Protected routes (require authentication)
	protectedRoutes := v1.Group("/")
	protectedRoutes.Use(jwtAuth)
	{
		r.Container.ChatController.RegisterRoutesV1(protectedRoutes)
		r.Container.UsersController.RegisterRoutesV1(protectedRoutes)
	}

	// Legacy API routes for backward compatibility
	// These will eventually be phased out
	legacyAuth := r.Engine.Group("/api/auth")
	{
		legacyAuth.POST("/signup", r.Container.AuthHandler.Signup)
		legacyAuth.POST("/login", r.Container.AuthHandler.Login)
		legacyAuth.GET("/me", jwtAuth, r.Container.AuthHandler.Me)
		legacyAuth.POST("/callback", jwtAuth, r.Container.AuthHandler.Callback)
	}

	legacyAPI := r.Engine.Group("/api")
	legacyAPI.Use(jwtAuth)
	{
		r.Container.ChatController.RegisterRoutesV1(legacyAPI)
		r.Container.UsersController.RegisterRoutesV1(legacyAPI)
	}

	// WebSocket route
	r.Engine.GET("/ws", jwtAuth, func(c *gin.Context) {
		ws.ServeWS(r.Hub, c)
	})
}

// Enhance CORS middleware to explicitly allow WebSocket-specific headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		if origin != "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, X-CSRF-Token, Authorization, Origin, Upgrade, Connection, Cache-Control")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Upgrade, Connection")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
