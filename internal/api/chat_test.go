package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"realtime-chat-demo/backend/internal/models"
	"realtime-chat-demo/backend/internal/realtime"
	"realtime-chat-demo/backend/internal/repository"
	"realtime-chat-demo/backend/internal/service"
	"realtime-chat-demo/backend/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRouter builds a gin engine with chat and user routes backed by an
// in-process Redis. The fakeAuth middleware stands in for the JWT layer.
func newTestRouter(t *testing.T, userID string) (*gin.Engine, *service.ChatService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	log := logger.New(logger.Config{Level: "error", JSON: false})

	chat := service.NewChatService(
		repository.NewRedisConversationStore(client),
		repository.NewRedisUserDirectory(client),
		realtime.NewRedisPublisher(client, log),
		log,
	)

	fakeAuth := func(c *gin.Context) {
		if userID != "" {
			c.Set("userId", userID)
		}
		c.Next()
	}

	engine := gin.New()
	group := engine.Group("/api/v1", fakeAuth)
	NewChatController(chat, log).RegisterRoutesV1(group)
	NewUsersController(chat, log).RegisterRoutesV1(group)
	return engine, chat
}

func TestSendMessageEndpoint(t *testing.T) {
	engine, _ := newTestRouter(t, "u1")

	body := `{"content":"hello","receiverId":"u2","messageType":"text"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/send", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.SendMessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "conversation:u1:u2", resp.ConversationID)
	assert.NotEmpty(t, resp.MessageID)
}

func TestSendMessageEndpointRejectsMalformedBody(t *testing.T) {
	engine, _ := newTestRouter(t, "u1")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/send", strings.NewReader(`{"content":`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp models.SendMessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Message)
}

func TestSendMessageEndpointRequiresAuth(t *testing.T) {
	engine, _ := newTestRouter(t, "")

	body := `{"content":"hello","receiverId":"u2","messageType":"text"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/send", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetMessagesEndpoint(t *testing.T) {
	engine, chat := newTestRouter(t, "u1")

	_, err := chat.SendMessage(context.Background(), "u1", models.SendMessageRequest{
		Content:     "first",
		ReceiverID:  "u2",
		MessageType: models.MessageTypeText,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/messages?selectedUserId=u2", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var messages []models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "u1", messages[0].SenderID)
}

func TestGetMessagesEndpointRequiresPeer(t *testing.T) {
	engine, _ := newTestRouter(t, "u1")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/messages", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMessagesEndpointEmptyHistoryIsArray(t *testing.T) {
	engine, _ := newTestRouter(t, "u1")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/messages?selectedUserId=u2", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}

func TestListUsersEndpointExcludesCaller(t *testing.T) {
	engine, chat := newTestRouter(t, "u2")

	for _, id := range []string{"u1", "u2", "u3"} {
		require.NoError(t, chat.EnsureUser(context.Background(), models.Identity{
			ID:        id,
			Email:     id + "@example.com",
			GivenName: id,
		}))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var contacts []models.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &contacts))
	require.Len(t, contacts, 2)
	for _, contact := range contacts {
		assert.NotEqual(t, "u2", contact.ID)
	}
}
