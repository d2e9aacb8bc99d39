package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"realtime-chat-demo/backend/internal/models"
	"realtime-chat-demo/backend/internal/repository"
	"realtime-chat-demo/backend/internal/service"
	"realtime-chat-demo/backend/pkg/config"
	"realtime-chat-demo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ChatController handles message-related API endpoints
type ChatController struct {
	chat   *service.ChatService
	logger *logger.Logger

	// storeTimeout bounds every store round trip issued on behalf of
	// one request; an exhausted budget surfaces as a 503, never a
	// silent hang.
	storeTimeout time.Duration
}

// NewChatController creates a new chat controller
func NewChatController(chat *service.ChatService, logger *logger.Logger) *ChatController {
	return &ChatController{
		chat:         chat,
		logger:       logger,
		storeTimeout: config.Get().Chat.StoreTimeout,
	}
}

// RegisterRoutesV1 registers chat routes under the versioned API group.
// The auth middleware is applied by the router before these run.
func (ctl *ChatController) RegisterRoutesV1(group *gin.RouterGroup) {
	group.POST("/messages/send", ctl.SendMessage)
	group.GET("/messages", ctl.GetMessages)
}

// SendMessage persists a message to the receiver and fans it out. The
// response is the soft success/failure shape on every path.
func (ctl *ChatController) SendMessage(c *gin.Context) {
	senderID, exists := c.Get("userId")
	if !exists {
		c.JSON(http.StatusUnauthorized, models.SendMessageResponse{
			Success: false,
			Message: "User not authenticated",
		})
		return
	}

	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.SendMessageResponse{
			Success: false,
			Message: "Invalid request format",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.storeTimeout)
	defer cancel()

	result, err := ctl.chat.SendMessage(ctx, senderID.(string), req)
	if err != nil {
		status, msg := sendFailure(err)
		if status >= http.StatusInternalServerError {
			ctl.logger.Error("Error sending message", "error", err.Error())
		}
		c.JSON(status, models.SendMessageResponse{Success: false, Message: msg})
		return
	}

	c.JSON(http.StatusOK, models.SendMessageResponse{
		Success:        true,
		ConversationID: result.ConversationID,
		MessageID:      result.MessageID,
	})
}

// GetMessages returns the full chronological history between the caller
// and the selected user.
func (ctl *ChatController) GetMessages(c *gin.Context) {
	currentUserID, exists := c.Get("userId")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	selectedUserID := c.Query("selectedUserId")
	if selectedUserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "selectedUserId query parameter is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.storeTimeout)
	defer cancel()

	messages, err := ctl.chat.GetMessages(ctx, currentUserID.(string), selectedUserID)
	if err != nil {
		ctl.logger.Error("Error retrieving messages", "error", err.Error())
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Message store is unavailable"})
		return
	}

	c.JSON(http.StatusOK, messages)
}

// sendFailure maps a send error to its HTTP status and user-facing text.
func sendFailure(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrEmptyContent):
		return http.StatusBadRequest, "Message content must not be empty"
	case errors.Is(err, service.ErrContentTooLong):
		return http.StatusBadRequest, "Message content is too long"
	case errors.Is(err, service.ErrInvalidMessageType):
		return http.StatusBadRequest, "Message type must be text or image"
	case errors.Is(err, service.ErrMissingReceiver):
		return http.StatusBadRequest, "Receiver is required"
	case errors.Is(err, repository.ErrNotParticipant):
		return http.StatusForbidden, "Sender is not part of this conversation"
	default:
		return http.StatusServiceUnavailable, "Message store is unavailable"
	}
}
