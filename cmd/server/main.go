package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"realtime-chat-demo/backend/internal/models"
	"realtime-chat-demo/backend/pkg/config"
	"realtime-chat-demo/backend/pkg/di"
	"realtime-chat-demo/backend/pkg/health"
	"realtime-chat-demo/backend/pkg/logger"
	"realtime-chat-demo/backend/pkg/router"
	"realtime-chat-demo/backend/pkg/secrets"
	"realtime-chat-demo/backend/shared/observability"
	sharedredis "realtime-chat-demo/backend/shared/redis"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize structured logger
	logConfig := logger.DefaultConfig()
	// Set log level from environment if available
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		logConfig.Level = level
	}
	// Set log format from environment if available
	logConfig.JSON = os.Getenv("LOG_FORMAT") != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting application", "version", os.Getenv("APP_VERSION"))

	cfg := config.New()

	// Initialize account database
	db, err := config.NewDB()
	if err != nil {
		log.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}

	// Auto-migrate the schema
	if err := db.AutoMigrate(&models.Account{}); err != nil {
		log.LogError(err, "Failed to migrate database")
		os.Exit(1)
	}

	// Initialize the Redis store
	rdb, err := sharedredis.NewClient(context.Background(), sharedredis.Config{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		log.LogError(err, "Failed to connect to Redis")
		os.Exit(1)
	}
	defer rdb.Close()

	// Initialize secrets manager; JWT secret falls back to the environment
	// when Vault is not configured
	jwtSecret := os.Getenv("JWT_SECRET")
	if err := secrets.Init(log); err != nil {
		log.Warn("Secrets manager unavailable, using environment secrets", "error", err)
	} else {
		jwtSecret = secrets.GetSecretWithDefault(context.Background(), "jwt_secret", jwtSecret)
	}

	// Initialize observability
	shutdownTracing := observability.SetupTracing("chat-backend")
	defer shutdownTracing()
	observability.SetupPrometheusMetrics()

	// Initialize dependency injection container
	diConfig := di.DefaultConfig()
	diConfig.LoggerConfig = logConfig
	diConfig.JWTSecret = jwtSecret
	if expiry := os.Getenv("JWT_EXPIRY_HOURS"); expiry != "" {
		if val, err := time.ParseDuration(expiry + "h"); err == nil {
			diConfig.JWTExpiryHours = int(val.Hours())
		}
	}

	container, err := di.New(db, rdb, diConfig)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}

	// Initialize and setup router
	r := router.New(container)
	r.SetupRoutes()

	// Background health checks for the readiness probe
	checker := health.NewChecker(log, 30*time.Second)
	checker.RegisterDatabaseCheck(func() error {
		return config.TestConnection(db)
	})
	checker.RegisterRedisCheck(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return rdb.Ping(ctx).Err()
	})
	checker.Start()
	r.AddReadiness(checker)

	// Add OpenAPI validation if schema file is available
	schemaPath := os.Getenv("OPENAPI_SCHEMA_PATH")
	if schemaPath != "" {
		r.AddOpenAPIValidation(schemaPath)
	}

	// Get port from environment
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r.Engine,
	}

	// Start the server in a goroutine
	go func() {
		log.Info("Server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogError(err, "Server failed to start")
			os.Exit(1)
		}
	}()

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Block until we receive a signal
	<-quit
	log.Info("Shutting down server...")

	// Create a deadline to wait for
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown the server
	if err := srv.Shutdown(ctx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}

	log.Info("Server exited gracefully")
}
