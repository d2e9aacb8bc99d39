// Package realtime fans persisted messages out to live subscribers over
// Redis Pub/Sub. Delivery is at-most-once and best-effort: a channel with
// no subscribers swallows the event, and clients rebuild history from the
// message store on load, so the channel only ever carries the delta.
package realtime

import (
	"context"

	"realtime-chat-demo/backend/internal/keys"
	"realtime-chat-demo/backend/internal/models"
	"realtime-chat-demo/backend/pkg/logger"
	"realtime-chat-demo/backend/pkg/resilience"
	pkgws "realtime-chat-demo/backend/pkg/ws"

	"github.com/redis/go-redis/v9"
)

// Publisher pushes newMessage events onto the pair channel for two users.
type Publisher interface {
	PublishNewMessage(ctx context.Context, participantA, participantB string, message models.Message) error
}

// RedisPublisher publishes through the shared Redis client, guarded by a
// circuit breaker so a dead broker fails fast instead of stalling every
// send request on the broker timeout.
type RedisPublisher struct {
	client  *redis.Client
	breaker *resilience.CircuitBreaker
	log     *logger.Logger
}

func NewRedisPublisher(client *redis.Client, log *logger.Logger) *RedisPublisher {
	breaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("realtime-publish"), log)
	return &RedisPublisher{client: client, breaker: breaker, log: log}
}

// PublishNewMessage broadcasts the event to ChannelName(a, b). A publish
// that reaches nobody is a success; a publish that fails is reported to
// the caller, which logs it without failing the send (the message is
// already persisted).
func (p *RedisPublisher) PublishNewMessage(ctx context.Context, participantA, participantB string, message models.Message) error {
	channel := keys.ChannelName(participantA, participantB)

	payload, err := pkgws.NewMessageEvent(message).Encode()
	if err != nil {
		return err
	}

	return p.breaker.Execute(func() error {
		receivers, err := p.client.Publish(ctx, channel, payload).Result()
		if err != nil {
			return err
		}
		p.log.Debug("published message event",
			"channel", channel,
			"receivers", receivers,
		)
		return nil
	})
}
