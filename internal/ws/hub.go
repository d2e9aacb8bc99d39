// Package ws delivers realtime events to browsers. Each connected client
// subscribes to exactly one pair channel at a time; the hub multiplexes
// all local subscribers for a channel onto a single Redis Pub/Sub
// subscription and tears it down when the last one leaves.
package ws

import (
	"context"
	"sync"

	"realtime-chat-demo/backend/pkg/logger"

	"github.com/redis/go-redis/v9"
)

type Hub struct {
	client *redis.Client
	log    *logger.Logger

	mu       sync.Mutex
	channels map[string]*channelSub
}

// channelSub is one Redis subscription fanned out to local clients.
type channelSub struct {
	pubsub  *redis.PubSub
	clients map[*Client]bool
	cancel  context.CancelFunc
}

func NewHub(client *redis.Client, log *logger.Logger) *Hub {
	return &Hub{
		client:   client,
		log:      log,
		channels: make(map[string]*channelSub),
	}
}

// Subscribe attaches a client to a channel, detaching it from its current
// one first. A client switching selected peers therefore never holds two
// subscriptions, which is what keeps duplicate handlers from accumulating.
func (h *Hub) Subscribe(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// A client dropped by the relay has a closed send channel; it must
	// never be re-attached, or the next delivery would send on it.
	if client.dropped {
		return
	}
	if client.channel == channel {
		return
	}
	h.detachLocked(client)

	sub, ok := h.channels[channel]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		sub = &channelSub{
			pubsub:  h.client.Subscribe(ctx, channel),
			clients: make(map[*Client]bool),
			cancel:  cancel,
		}
		h.channels[channel] = sub
		go h.relay(ctx, channel, sub)
	}

	sub.clients[client] = true
	client.channel = channel
	h.log.Debug("client subscribed", "user_id", client.userID, "channel", channel)
}

// Unsubscribe detaches a client from whatever channel it is on.
func (h *Hub) Unsubscribe(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(client)
}

func (h *Hub) detachLocked(client *Client) {
	if client.channel == "" {
		return
	}
	sub, ok := h.channels[client.channel]
	if ok {
		delete(sub.clients, client)
		if len(sub.clients) == 0 {
			sub.cancel()
			_ = sub.pubsub.Close()
			delete(h.channels, client.channel)
		}
	}
	client.channel = ""
}

// dropLocked permanently evicts a client. Closing the send channel makes
// writePump finish the connection; the dropped flag keeps a concurrent
// peer-switch in readPump from re-attaching the client afterwards.
// Callers must hold h.mu.
func (h *Hub) dropLocked(client *Client, sub *channelSub) {
	delete(sub.clients, client)
	channel := client.channel
	client.channel = ""
	client.dropped = true
	close(client.send)
	if len(sub.clients) == 0 {
		sub.cancel()
		_ = sub.pubsub.Close()
		delete(h.channels, channel)
	}
}

// relay forwards every payload from the Redis subscription to the local
// clients, verbatim. A client whose send buffer is full is dropped rather
// than allowed to stall the channel for everyone else.
func (h *Hub) relay(ctx context.Context, channel string, sub *channelSub) {
	ch := sub.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.mu.Lock()
			for client := range sub.clients {
				select {
				case client.send <- []byte(msg.Payload):
				default:
					h.log.Warn("client send buffer full, dropping connection",
						"user_id", client.userID,
						"channel", channel,
					)
					h.dropLocked(client, sub)
				}
			}
			h.mu.Unlock()
		}
	}
}

// SubscriberCount reports how many local clients are on a channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.channels[channel]; ok {
		return len(sub.clients)
	}
	return 0
}

// ConnectionCount reports the total number of connected clients across
// all channels.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	total := 0
	for _, sub := range h.channels {
		total += len(sub.clients)
	}
	return total
}
