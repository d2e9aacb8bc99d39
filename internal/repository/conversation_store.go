package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"realtime-chat-demo/backend/internal/keys"
	"realtime-chat-demo/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("sender is not a participant of the conversation")
)

// ConversationStore persists conversations and their message timelines in
// Redis: a hash per conversation, a set of conversation ids per user, a
// hash per message and a sorted set per conversation ordering message ids
// by creation timestamp.
type ConversationStore interface {
	EnsureConversation(ctx context.Context, senderID, receiverID string) (string, error)
	GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error)
	AppendMessage(ctx context.Context, conversationID, senderID, content string, msgType models.MessageType) (string, int64, error)
	ListMessages(ctx context.Context, userA, userB string) ([]models.Message, error)
	ListMemberships(ctx context.Context, userID string) ([]string, error)
}

type RedisConversationStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisConversationStore(client *redis.Client) *RedisConversationStore {
	return &RedisConversationStore{client: client, now: time.Now}
}

// EnsureConversation resolves the canonical conversation id for the pair
// and creates the record on first contact. The stored fields keep the pass
// order (who initiated), the key hides it. Two clients racing through the
// EXISTS check both issue the same field values and idempotent set
// additions, so overlapping creations converge without coordination.
func (s *RedisConversationStore) EnsureConversation(ctx context.Context, senderID, receiverID string) (string, error) {
	conversationID := keys.ConversationKey(senderID, receiverID)

	exists, err := s.client.Exists(ctx, conversationID).Result()
	if err != nil {
		return "", fmt.Errorf("check conversation %s: %w", conversationID, err)
	}
	if exists > 0 {
		return conversationID, nil
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, conversationID, map[string]interface{}{
		"participant1": senderID,
		"participant2": receiverID,
	})
	pipe.SAdd(ctx, keys.MembershipKey(senderID), conversationID)
	pipe.SAdd(ctx, keys.MembershipKey(receiverID), conversationID)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("create conversation %s: %w", conversationID, err)
	}
	return conversationID, nil
}

func (s *RedisConversationStore) GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	fields, err := s.client.HGetAll(ctx, conversationID).Result()
	if err != nil {
		return nil, fmt.Errorf("read conversation %s: %w", conversationID, err)
	}
	if len(fields) == 0 {
		return nil, ErrConversationNotFound
	}
	return &models.Conversation{
		Participant1: fields["participant1"],
		Participant2: fields["participant2"],
	}, nil
}

// AppendMessage writes the message hash and its timeline entry in one
// MULTI/EXEC batch, so a persisted message is always discoverable: there
// is no window in which the record exists without its index entry.
func (s *RedisConversationStore) AppendMessage(ctx context.Context, conversationID, senderID, content string, msgType models.MessageType) (string, int64, error) {
	conversation, err := s.GetConversation(ctx, conversationID)
	if err != nil {
		return "", 0, err
	}
	if !conversation.Includes(senderID) {
		return "", 0, ErrNotParticipant
	}

	now := s.now()
	messageID := keys.MessageKeyAt(now)
	timestamp := now.UnixMilli()

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, messageID, map[string]interface{}{
		"senderId":    senderID,
		"content":     content,
		"timestamp":   timestamp,
		"messageType": string(msgType),
	})
	pipe.ZAdd(ctx, keys.TimelineKey(conversationID), redis.Z{
		Score:  float64(timestamp),
		Member: messageID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", 0, fmt.Errorf("append message to %s: %w", conversationID, err)
	}
	return messageID, timestamp, nil
}

// ListMessages returns the full history between two users in chronological
// order. The conversation is resolved from the unordered pair and never
// created here; an unknown pair simply has an empty timeline.
func (s *RedisConversationStore) ListMessages(ctx context.Context, userA, userB string) ([]models.Message, error) {
	conversationID := keys.ConversationKey(userA, userB)

	messageIDs, err := s.client.ZRange(ctx, keys.TimelineKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read timeline %s: %w", conversationID, err)
	}
	if len(messageIDs) == 0 {
		return []models.Message{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(messageIDs))
	for i, id := range messageIDs {
		cmds[i] = pipe.HGetAll(ctx, id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("fetch messages for %s: %w", conversationID, err)
	}

	messages := make([]models.Message, 0, len(cmds))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// timeline entry whose record is gone; skip rather than fail the read
			continue
		}
		timestamp, _ := strconv.ParseInt(fields["timestamp"], 10, 64)
		messages = append(messages, models.Message{
			SenderID:    fields["senderId"],
			Content:     fields["content"],
			Timestamp:   timestamp,
			MessageType: models.MessageType(fields["messageType"]),
		})
	}
	return messages, nil
}

// ListMemberships returns the conversation ids a user participates in.
func (s *RedisConversationStore) ListMemberships(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.client.SMembers(ctx, keys.MembershipKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read memberships for %s: %w", userID, err)
	}
	return ids, nil
}
