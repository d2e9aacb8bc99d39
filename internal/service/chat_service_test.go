package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"realtime-chat-demo/backend/internal/models"
	"realtime-chat-demo/backend/internal/repository"
	"realtime-chat-demo/backend/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingPublisher struct {
	published []models.Message
	err       error
}

func (p *capturingPublisher) PublishNewMessage(ctx context.Context, a, b string, message models.Message) error {
	p.published = append(p.published, message)
	return p.err
}

func newChatService(t *testing.T) (*ChatService, *capturingPublisher) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	pub := &capturingPublisher{}
	log := logger.New(logger.Config{Level: "error", JSON: false})
	svc := NewChatService(
		repository.NewRedisConversationStore(client),
		repository.NewRedisUserDirectory(client),
		pub,
		log,
	)
	return svc, pub
}

func TestSendMessageFirstContact(t *testing.T) {
	svc, pub := newChatService(t)
	ctx := context.Background()

	before := time.Now().UnixMilli()
	result, err := svc.SendMessage(ctx, "u1", models.SendMessageRequest{
		Content:     "👍",
		ReceiverID:  "u2",
		MessageType: models.MessageTypeText,
	})
	require.NoError(t, err)
	assert.Equal(t, "conversation:u1:u2", result.ConversationID)
	assert.NotEmpty(t, result.MessageID)
	assert.GreaterOrEqual(t, result.Timestamp, before)

	messages, err := svc.GetMessages(ctx, "u1", "u2")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "👍", messages[0].Content)
	assert.Equal(t, "u1", messages[0].SenderID)
	assert.Equal(t, models.MessageTypeText, messages[0].MessageType)

	require.Len(t, pub.published, 1)
	assert.Equal(t, messages[0], pub.published[0])
}

func TestSendMessageValidation(t *testing.T) {
	svc, pub := newChatService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  models.SendMessageRequest
		want error
	}{
		{"empty content", models.SendMessageRequest{Content: "   ", ReceiverID: "u2", MessageType: models.MessageTypeText}, ErrEmptyContent},
		{"oversized content", models.SendMessageRequest{Content: strings.Repeat("a", 4097), ReceiverID: "u2", MessageType: models.MessageTypeText}, ErrContentTooLong},
		{"bad type", models.SendMessageRequest{Content: "hi", ReceiverID: "u2", MessageType: "audio"}, ErrInvalidMessageType},
		{"no receiver", models.SendMessageRequest{Content: "hi", MessageType: models.MessageTypeText}, ErrMissingReceiver},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SendMessage(ctx, "u1", tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	assert.Empty(t, pub.published, "failed sends must not be published")
}

func TestSendSucceedsWhenPublishFails(t *testing.T) {
	svc, pub := newChatService(t)
	pub.err = errors.New("broker down")

	result, err := svc.SendMessage(context.Background(), "u1", models.SendMessageRequest{
		Content:     "hi",
		ReceiverID:  "u2",
		MessageType: models.MessageTypeText,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.MessageID)

	// the message is still discoverable through the store
	messages, err := svc.GetMessages(context.Background(), "u2", "u1")
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestGetMessagesDoesNotCreateConversation(t *testing.T) {
	svc, _ := newChatService(t)

	messages, err := svc.GetMessages(context.Background(), "u1", "u2")
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestEnsureUserIdempotent(t *testing.T) {
	svc, _ := newChatService(t)
	ctx := context.Background()

	id := models.Identity{ID: "u1", Email: "u1@example.com", GivenName: "Ada", FamilyName: "Lovelace"}
	require.NoError(t, svc.EnsureUser(ctx, id))

	id.GivenName = "Changed"
	require.NoError(t, svc.EnsureUser(ctx, id))

	contacts, err := svc.ListContacts(ctx, "someone-else")
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Ada Lovelace", contacts[0].Name)
}

func TestListContactsExcludesCaller(t *testing.T) {
	svc, _ := newChatService(t)
	ctx := context.Background()

	for _, id := range []string{"u1", "u2", "u3"} {
		require.NoError(t, svc.EnsureUser(ctx, models.Identity{ID: id, Email: id + "@example.com", GivenName: id}))
	}

	contacts, err := svc.ListContacts(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	for _, c := range contacts {
		assert.NotEqual(t, "u2", c.ID)
	}
}
