package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"realtime-chat-demo/backend/internal/keys"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newWSServer serves /ws the way the router does, with a stub auth
// middleware standing in for the JWT layer.
func newWSServer(t *testing.T, userID string) (*httptest.Server, *Hub, *redis.Client) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub, redisClient := newTestHub(t)
	engine := gin.New()
	engine.GET("/ws", func(c *gin.Context) {
		c.Set("userId", userID)
		ServeWS(hub, c)
	})

	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)
	return server, hub, redisClient
}

func dialWS(t *testing.T, server *httptest.Server, peerID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?peerId=" + peerID
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, redisClient *redis.Client, channel string, want int64) {
	t.Helper()
	require.Eventually(t, func() bool {
		return redisClient.PubSubNumSub(context.Background(), channel).Val()[channel] == want
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServeWSDeliversPublishedEvents(t *testing.T) {
	server, hub, redisClient := newWSServer(t, "u1")
	channel := keys.ChannelName("u1", "u2")

	conn := dialWS(t, server, "u2")
	waitForSubscribers(t, redisClient, channel, 1)
	assert.Equal(t, 1, hub.SubscriberCount(channel))

	payload := `{"event":"newMessage","payload":{"message":{"senderId":"u2","content":"hi","timestamp":1,"messageType":"text"}}}`
	require.NoError(t, redisClient.Publish(context.Background(), channel, payload).Err())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(data))
}

func TestServeWSPeerSwitchMovesSubscription(t *testing.T) {
	server, hub, redisClient := newWSServer(t, "u1")
	first := keys.ChannelName("u1", "u2")
	second := keys.ChannelName("u1", "u3")

	conn := dialWS(t, server, "u2")
	waitForSubscribers(t, redisClient, first, 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"peerId":"u3"}`)))
	waitForSubscribers(t, redisClient, first, 0)
	waitForSubscribers(t, redisClient, second, 1)
	assert.Equal(t, 0, hub.SubscriberCount(first))
	assert.Equal(t, 1, hub.SubscriberCount(second))

	// events on the new channel reach the socket
	payload := `{"event":"newMessage","payload":{"message":{"senderId":"u3","content":"yo","timestamp":2,"messageType":"text"}}}`
	require.NoError(t, redisClient.Publish(context.Background(), second, payload).Err())
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(data))
}

func TestServeWSDisconnectReleasesSubscription(t *testing.T) {
	server, hub, redisClient := newWSServer(t, "u1")
	channel := keys.ChannelName("u1", "u2")

	conn := dialWS(t, server, "u2")
	waitForSubscribers(t, redisClient, channel, 1)

	require.NoError(t, conn.Close())
	waitForSubscribers(t, redisClient, channel, 0)
	assert.Equal(t, 0, hub.SubscriberCount(channel))
}

func TestServeWSRequiresPeerID(t *testing.T) {
	server, _, _ := newWSServer(t, "u1")

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, 400, resp.StatusCode)
}
