package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"realtime-chat-demo/backend/internal/keys"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Clients only send tiny
	// peer-switch frames; messages themselves go over HTTP.
	maxMessageSize = 4 * 1024

	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
}

// Client is one websocket connection, pinned to the authenticated user
// and subscribed to the pair channel for the currently selected peer.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string

	// channel and dropped are guarded by hub.mu. Once dropped is set the
	// send channel is closed and the client can never be re-attached.
	channel string
	dropped bool
}

// switchFrame is the only inbound frame a client sends: point my
// subscription at the conversation with this peer.
type switchFrame struct {
	PeerID string `json:"peerId"`
}

// ServeWS upgrades the connection and subscribes it to the channel for
// the peer named in the query. Auth middleware has already run; the user
// id comes from the validated claims, never from the client.
func ServeWS(hub *Hub, c *gin.Context) {
	userID := c.GetString("userId")
	peerID := c.Query("peerId")
	if peerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "peerId query parameter is required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.Warn("websocket upgrade failed", "error", err.Error())
		return
	}

	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	client.userID = userID

	hub.Subscribe(client, keys.ChannelName(userID, peerID))

	go client.writePump()
	go client.readPump()
}

// readPump consumes peer-switch frames until the connection dies, then
// releases the subscription.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unsubscribe(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame switchFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.PeerID == "" {
			continue
		}
		c.hub.Subscribe(c, keys.ChannelName(c.userID, frame.PeerID))
	}
}

// writePump forwards hub events to the socket and keeps the connection
// alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
