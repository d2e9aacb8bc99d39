package repository

import (
	"context"
	"testing"
	"time"

	"realtime-chat-demo/backend/internal/keys"
	"realtime-chat-demo/backend/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func identity(id string) models.Identity {
	return models.Identity{
		ID:         id,
		Email:      id + "@example.com",
		GivenName:  "Test",
		FamilyName: "User",
		Picture:    "https://cdn.example/" + id + ".png",
	}
}

func TestEnsureUserCreatesOnce(t *testing.T) {
	client := newTestClient(t)
	dir := NewRedisUserDirectory(client)
	ctx := context.Background()

	created, err := dir.EnsureUser(ctx, identity("u1"))
	require.NoError(t, err)
	assert.True(t, created)

	// second call with a changed identity must not touch stored fields
	changed := identity("u1")
	changed.GivenName = "Renamed"
	changed.Picture = "https://cdn.example/new.png"
	created, err = dir.EnsureUser(ctx, changed)
	require.NoError(t, err)
	assert.False(t, created)

	profile, err := dir.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", profile.ID)
	assert.Equal(t, "Test User", profile.Name)
	assert.Equal(t, "https://cdn.example/u1.png", profile.Image)
}

func TestEnsureUserRejectsPlaceholderAvatar(t *testing.T) {
	client := newTestClient(t)
	dir := NewRedisUserDirectory(client)
	ctx := context.Background()

	id := identity("u2")
	id.Picture = "https://www.gravatar.com/avatar/abc123"
	_, err := dir.EnsureUser(ctx, id)
	require.NoError(t, err)

	profile, err := dir.GetUser(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, profile.Image)
}

func TestGetUserNotFound(t *testing.T) {
	client := newTestClient(t)
	dir := NewRedisUserDirectory(client)

	_, err := dir.GetUser(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestListUsersSkipsMembershipKeys(t *testing.T) {
	client := newTestClient(t)
	dir := NewRedisUserDirectory(client)
	store := NewRedisConversationStore(client)
	ctx := context.Background()

	_, err := dir.EnsureUser(ctx, identity("u1"))
	require.NoError(t, err)
	_, err = dir.EnsureUser(ctx, identity("u2"))
	require.NoError(t, err)
	_, err = store.EnsureConversation(ctx, "u1", "u2")
	require.NoError(t, err)

	profiles, err := dir.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	ids := []string{profiles[0].ID, profiles[1].ID}
	assert.ElementsMatch(t, []string{"u1", "u2"}, ids)
}

func TestEnsureConversationIdempotent(t *testing.T) {
	client := newTestClient(t)
	store := NewRedisConversationStore(client)
	ctx := context.Background()

	first, err := store.EnsureConversation(ctx, "u1", "u2")
	require.NoError(t, err)

	// opposite pass order resolves to the same conversation
	second, err := store.EnsureConversation(ctx, "u2", "u1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, keys.ConversationKey("u1", "u2"), first)

	for _, user := range []string{"u1", "u2"} {
		memberships, err := store.ListMemberships(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, []string{first}, memberships)
	}
}

func TestEnsureConversationRecordsPassOrder(t *testing.T) {
	client := newTestClient(t)
	store := NewRedisConversationStore(client)
	ctx := context.Background()

	// "zed" initiates: the key sorts the pair, the fields do not
	id, err := store.EnsureConversation(ctx, "zed", "amy")
	require.NoError(t, err)

	conversation, err := store.GetConversation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "zed", conversation.Participant1)
	assert.Equal(t, "amy", conversation.Participant2)
}

func TestAppendAndListMessages(t *testing.T) {
	client := newTestClient(t)
	store := NewRedisConversationStore(client)
	ctx := context.Background()

	conversationID, err := store.EnsureConversation(ctx, "u1", "u2")
	require.NoError(t, err)

	before := time.Now().UnixMilli()
	contents := []string{"hi", "hello", "how are you"}
	for _, content := range contents {
		_, _, err := store.AppendMessage(ctx, conversationID, "u1", content, models.MessageTypeText)
		require.NoError(t, err)
	}

	messages, err := store.ListMessages(ctx, "u2", "u1")
	require.NoError(t, err)
	require.Len(t, messages, len(contents))

	prev := int64(0)
	for i, msg := range messages {
		assert.Equal(t, contents[i], msg.Content)
		assert.Equal(t, "u1", msg.SenderID)
		assert.Equal(t, models.MessageTypeText, msg.MessageType)
		assert.GreaterOrEqual(t, msg.Timestamp, before)
		assert.GreaterOrEqual(t, msg.Timestamp, prev)
		prev = msg.Timestamp
	}
}

func TestAppendMessageRejectsNonParticipant(t *testing.T) {
	client := newTestClient(t)
	store := NewRedisConversationStore(client)
	ctx := context.Background()

	conversationID, err := store.EnsureConversation(ctx, "u1", "u2")
	require.NoError(t, err)

	_, _, err = store.AppendMessage(ctx, conversationID, "intruder", "hi", models.MessageTypeText)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestAppendMessageUnknownConversation(t *testing.T) {
	client := newTestClient(t)
	store := NewRedisConversationStore(client)

	_, _, err := store.AppendMessage(context.Background(), keys.ConversationKey("a", "b"), "a", "hi", models.MessageTypeText)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestListMessagesEmptyConversation(t *testing.T) {
	client := newTestClient(t)
	store := NewRedisConversationStore(client)

	messages, err := store.ListMessages(context.Background(), "u1", "u2")
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestImageMessageRoundTrip(t *testing.T) {
	client := newTestClient(t)
	store := NewRedisConversationStore(client)
	ctx := context.Background()

	conversationID, err := store.EnsureConversation(ctx, "u1", "u2")
	require.NoError(t, err)

	url := "https://cdn.example/img.png"
	_, _, err = store.AppendMessage(ctx, conversationID, "u1", url, models.MessageTypeImage)
	require.NoError(t, err)

	messages, err := store.ListMessages(ctx, "u1", "u2")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, models.MessageTypeImage, messages[0].MessageType)
	assert.Equal(t, url, messages[0].Content)
}

func TestSameMillisecondMessagesAllRetained(t *testing.T) {
	client := newTestClient(t)
	store := NewRedisConversationStore(client)
	ctx := context.Background()

	// pin the clock so every append lands on the same millisecond score
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	conversationID, err := store.EnsureConversation(ctx, "u1", "u2")
	require.NoError(t, err)

	var ids []string
	for i := 0; i < 5; i++ {
		id, _, err := store.AppendMessage(ctx, conversationID, "u1", "m", models.MessageTypeText)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	messages, err := store.ListMessages(ctx, "u1", "u2")
	require.NoError(t, err)
	require.Len(t, messages, len(ids))
	for _, msg := range messages {
		assert.Equal(t, fixed.UnixMilli(), msg.Timestamp)
	}
}
