package realtime

import (
	"context"
	"testing"
	"time"

	"realtime-chat-demo/backend/internal/keys"
	"realtime-chat-demo/backend/internal/models"
	"realtime-chat-demo/backend/pkg/logger"
	pkgws "realtime-chat-demo/backend/pkg/ws"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPublisher(t *testing.T) (*RedisPublisher, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	log := logger.New(logger.Config{Level: "error", JSON: false})
	return NewRedisPublisher(client, log), client
}

func TestPublishWithoutSubscribersIsNotAnError(t *testing.T) {
	pub, _ := newTestPublisher(t)

	err := pub.PublishNewMessage(context.Background(), "u1", "u2", models.Message{
		SenderID:    "u1",
		Content:     "hi",
		Timestamp:   time.Now().UnixMilli(),
		MessageType: models.MessageTypeText,
	})
	assert.NoError(t, err)
}

func TestPublishReachesPairChannel(t *testing.T) {
	pub, client := newTestPublisher(t)
	ctx := context.Background()

	// subscribe with the ids in the opposite order; the channel must match
	sub := client.Subscribe(ctx, keys.ChannelName("u2", "u1"))
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	sent := models.Message{
		SenderID:    "u1",
		Content:     "👍",
		Timestamp:   time.Now().UnixMilli(),
		MessageType: models.MessageTypeText,
	}
	require.NoError(t, pub.PublishNewMessage(ctx, "u1", "u2", sent))

	select {
	case msg := <-sub.Channel():
		event, err := pkgws.DecodeEvent([]byte(msg.Payload))
		require.NoError(t, err)
		assert.Equal(t, pkgws.EventNewMessage, event.Event)
		assert.Equal(t, sent, event.Payload.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received on pair channel")
	}
}
