package di

import (
	"time"

	"realtime-chat-demo/backend/internal/api"
	"realtime-chat-demo/backend/internal/realtime"
	"realtime-chat-demo/backend/internal/repository"
	"realtime-chat-demo/backend/internal/service"
	"realtime-chat-demo/backend/internal/ws"
	"realtime-chat-demo/backend/pkg/jwt"
	"realtime-chat-demo/backend/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	DB              *gorm.DB
	Redis           *goredis.Client
	Logger          *logger.Logger
	JWTService      *jwt.Service
	ChatService     *service.ChatService
	AuthService     *service.AuthService
	Hub             *ws.Hub
	AuthHandler     *api.AuthHandler
	ChatController  *api.ChatController
	UsersController *api.UsersController
}

// Config holds the configuration for the container
type Config struct {
	LoggerConfig   logger.Config
	JWTSecret      string
	JWTExpiryHours int
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		LoggerConfig:   logger.DefaultConfig(),
		JWTSecret:      "",
		JWTExpiryHours: 0, // Use default
	}
}

// New creates a new dependency injection container
func New(db *gorm.DB, rdb *goredis.Client, config *Config) (*Container, error) {
	if config == nil {
		config = DefaultConfig()
	}

	// Initialize the logger
	log := logger.New(config.LoggerConfig)

	// Initialize JWT service
	jwtService := jwt.NewService(config.JWTSecret, time.Duration(config.JWTExpiryHours)*time.Hour)

	// Initialize the Redis-backed persistence layer
	store := repository.NewRedisConversationStore(rdb)
	directory := repository.NewRedisUserDirectory(rdb)
	publisher := realtime.NewRedisPublisher(rdb, log)

	// Initialize core services
	chatService := service.NewChatService(store, directory, publisher, log)
	authService := service.NewAuthService(db, jwtService, chatService)

	// Initialize the websocket hub and HTTP controllers
	hub := ws.NewHub(rdb, log)
	authHandler := api.NewAuthHandler(authService, chatService, log)
	chatController := api.NewChatController(chatService, log)
	usersController := api.NewUsersController(chatService, log)

	return &Container{
		DB:              db,
		Redis:           rdb,
		Logger:          log,
		JWTService:      jwtService,
		ChatService:     chatService,
		AuthService:     authService,
		Hub:             hub,
		AuthHandler:     authHandler,
		ChatController:  chatController,
		UsersController: usersController,
	}, nil
}
