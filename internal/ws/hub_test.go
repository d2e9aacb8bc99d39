package ws

import (
	"context"
	"testing"
	"time"

	"realtime-chat-demo/backend/internal/keys"
	"realtime-chat-demo/backend/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*Hub, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	log := logger.New(logger.Config{Level: "error", JSON: false})
	return NewHub(client, log), client
}

func newTestClient(userID string) *Client {
	return &Client{send: make(chan []byte, sendBufferSize), userID: userID}
}

func TestSubscribeRelaysPublishedPayload(t *testing.T) {
	hub, redisClient := newTestHub(t)
	channel := keys.ChannelName("u1", "u2")

	client := newTestClient("u1")
	hub.Subscribe(client, channel)

	// give the relay goroutine time to establish the subscription
	require.Eventually(t, func() bool {
		return redisClient.PubSubNumSub(context.Background(), channel).Val()[channel] > 0
	}, 2*time.Second, 10*time.Millisecond)

	payload := `{"event":"newMessage","payload":{"message":{"senderId":"u2","content":"hi","timestamp":1,"messageType":"text"}}}`
	require.NoError(t, redisClient.Publish(context.Background(), channel, payload).Err())

	select {
	case got := <-client.send:
		assert.JSONEq(t, payload, string(got))
	case <-time.After(2 * time.Second):
		t.Fatal("payload never relayed to client")
	}
}

func TestSwitchingPeerReplacesSubscription(t *testing.T) {
	hub, _ := newTestHub(t)

	first := keys.ChannelName("u1", "u2")
	second := keys.ChannelName("u1", "u3")

	client := newTestClient("u1")
	hub.Subscribe(client, first)
	assert.Equal(t, 1, hub.SubscriberCount(first))

	hub.Subscribe(client, second)
	assert.Equal(t, 0, hub.SubscriberCount(first), "old subscription must be released")
	assert.Equal(t, 1, hub.SubscriberCount(second))
}

func TestResubscribingToSameChannelIsANoOp(t *testing.T) {
	hub, _ := newTestHub(t)
	channel := keys.ChannelName("u1", "u2")

	client := newTestClient("u1")
	hub.Subscribe(client, channel)
	hub.Subscribe(client, channel)
	assert.Equal(t, 1, hub.SubscriberCount(channel))
}

func TestDroppedClientCannotReattach(t *testing.T) {
	hub, redisClient := newTestHub(t)
	first := keys.ChannelName("u1", "u2")
	second := keys.ChannelName("u1", "u3")

	slow := newTestClient("u1")
	for i := 0; i < sendBufferSize; i++ {
		slow.send <- []byte("backlog")
	}
	hub.Subscribe(slow, first)
	require.Eventually(t, func() bool {
		return redisClient.PubSubNumSub(context.Background(), first).Val()[first] > 0
	}, 2*time.Second, 10*time.Millisecond)

	// the full buffer forces the relay to drop the client and close send
	require.NoError(t, redisClient.Publish(context.Background(), first, "overflow").Err())
	require.Eventually(t, func() bool {
		return hub.SubscriberCount(first) == 0
	}, 2*time.Second, 10*time.Millisecond)

	// a peer switch racing the drop must not re-attach the closed client
	hub.Subscribe(slow, second)
	assert.Equal(t, 0, hub.SubscriberCount(second))

	// the channel keeps working for healthy clients
	healthy := newTestClient("u3")
	hub.Subscribe(healthy, second)
	require.Eventually(t, func() bool {
		return redisClient.PubSubNumSub(context.Background(), second).Val()[second] > 0
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, redisClient.Publish(context.Background(), second, "hello").Err())
	select {
	case got := <-healthy.send:
		assert.Equal(t, "hello", string(got))
	case <-time.After(2 * time.Second):
		t.Fatal("payload never relayed after a client was dropped")
	}
}

func TestUnsubscribeReleasesChannel(t *testing.T) {
	hub, _ := newTestHub(t)
	channel := keys.ChannelName("u1", "u2")

	a := newTestClient("u1")
	b := newTestClient("u2")
	hub.Subscribe(a, channel)
	hub.Subscribe(b, channel)
	assert.Equal(t, 2, hub.SubscriberCount(channel))

	hub.Unsubscribe(a)
	assert.Equal(t, 1, hub.SubscriberCount(channel))

	hub.Unsubscribe(b)
	assert.Equal(t, 0, hub.SubscriberCount(channel))
}
