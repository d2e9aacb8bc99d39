package api

import (
	"net/http"

	"realtime-chat-demo/backend/internal/models"
	"realtime-chat-demo/backend/internal/service"
	"realtime-chat-demo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	auth   *service.AuthService
	chat   *service.ChatService
	logger *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth *service.AuthService, chat *service.ChatService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		chat:   chat,
		logger: logger,
	}
}

// Signup handles account registration
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Error binding JSON for signup", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	account, token, err := h.auth.Signup(c.Request.Context(), &req)
	if err != nil {
		switch err {
		case service.ErrAccountAlreadyExists:
			c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
		default:
			h.logger.Error("Error creating account", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":  account.ToResponse(),
		"token": token,
	})
}

// Login handles authentication
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Error binding JSON for login", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	account, token, err := h.auth.Login(c.Request.Context(), &req)
	if err != nil {
		switch err {
		case service.ErrInvalidCredentials:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		default:
			h.logger.Error("Error during login", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred during login"})
		}
		return
	}

	h.logger.Info("User logged in",
		"userID", account.ID,
		"email", account.Email,
	)

	c.JSON(http.StatusOK, gin.H{
		"user":  account.ToResponse(),
		"token": token,
	})
}

// Me returns the current authenticated account
func (h *AuthHandler) Me(c *gin.Context) {
	userID, exists := c.Get("userId")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	account, err := h.auth.GetAccountByID(c.Request.Context(), userID.(string))
	if err != nil {
		switch err {
		case service.ErrAccountNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		default:
			h.logger.Error("Error getting account", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve account"})
		}
		return
	}

	c.JSON(http.StatusOK, account.ToResponse())
}

// Callback runs the directory upsert for the authenticated caller. The
// result is always the soft success/failure shape: a missing identity is
// {success:false}, never a hard fault.
func (h *AuthHandler) Callback(c *gin.Context) {
	userID, exists := c.Get("userId")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false})
		return
	}

	account, err := h.auth.GetAccountByID(c.Request.Context(), userID.(string))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false})
		return
	}

	if err := h.chat.EnsureUser(c.Request.Context(), account.Identity()); err != nil {
		h.logger.Error("Error ensuring user profile", "error", err.Error())
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
