package api

import (
	"context"
	"net/http"
	"time"

	"realtime-chat-demo/backend/internal/service"
	"realtime-chat-demo/backend/pkg/config"
	"realtime-chat-demo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// UsersController serves the sidebar contact list from the directory.
type UsersController struct {
	chat         *service.ChatService
	logger       *logger.Logger
	storeTimeout time.Duration
}

func NewUsersController(chat *service.ChatService, logger *logger.Logger) *UsersController {
	return &UsersController{
		chat:         chat,
		logger:       logger,
		storeTimeout: config.Get().Chat.StoreTimeout,
	}
}

// RegisterRoutesV1 registers user listing routes under the versioned group.
func (ctl *UsersController) RegisterRoutesV1(group *gin.RouterGroup) {
	group.GET("/users", ctl.ListContacts)
}

// ListContacts returns every directory profile except the caller's.
func (ctl *UsersController) ListContacts(c *gin.Context) {
	currentUserID, exists := c.Get("userId")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.storeTimeout)
	defer cancel()

	contacts, err := ctl.chat.ListContacts(ctx, currentUserID.(string))
	if err != nil {
		ctl.logger.Error("Error listing contacts", "error", err.Error())
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "User directory is unavailable"})
		return
	}

	c.JSON(http.StatusOK, contacts)
}
