package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"realtime-chat-demo/backend/internal/keys"
	"realtime-chat-demo/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

var ErrProfileNotFound = errors.New("profile not found")

// placeholder avatar hosts whose URLs are dropped rather than stored
var placeholderImageHosts = []string{"gravatar"}

// UserDirectory is the chat-facing user registry backed by Redis hashes.
type UserDirectory interface {
	EnsureUser(ctx context.Context, identity models.Identity) (created bool, err error)
	GetUser(ctx context.Context, id string) (*models.Profile, error)
	ListUsers(ctx context.Context) ([]models.Profile, error)
}

type RedisUserDirectory struct {
	client *redis.Client
}

func NewRedisUserDirectory(client *redis.Client) *RedisUserDirectory {
	return &RedisUserDirectory{client: client}
}

// EnsureUser writes the profile hash on first sight of an identity and is
// a strict no-op afterwards. Existing fields are never overwritten, even
// when the upstream identity's name or picture has changed since signup.
func (d *RedisUserDirectory) EnsureUser(ctx context.Context, identity models.Identity) (bool, error) {
	key := keys.UserKey(identity.ID)

	existing, err := d.client.HGetAll(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("read user %s: %w", key, err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	image := identity.Picture
	if isPlaceholderImage(image) {
		image = ""
	}

	err = d.client.HSet(ctx, key, map[string]interface{}{
		"id":    identity.ID,
		"email": identity.Email,
		"name":  identity.DisplayName(),
		"image": image,
	}).Err()
	if err != nil {
		return false, fmt.Errorf("create user %s: %w", key, err)
	}
	return true, nil
}

func (d *RedisUserDirectory) GetUser(ctx context.Context, id string) (*models.Profile, error) {
	fields, err := d.client.HGetAll(ctx, keys.UserKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("read user %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, ErrProfileNotFound
	}
	return profileFromFields(fields), nil
}

// ListUsers scans the user namespace and returns every stored profile.
// Membership sets share the "user:" prefix, so keys carrying the
// ":conversation" suffix are skipped rather than fetched.
func (d *RedisUserDirectory) ListUsers(ctx context.Context) ([]models.Profile, error) {
	var userKeys []string
	iter := d.client.Scan(ctx, 0, keys.UserKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if strings.HasSuffix(key, ":conversation") {
			continue
		}
		userKeys = append(userKeys, key)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	if len(userKeys) == 0 {
		return []models.Profile{}, nil
	}

	pipe := d.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(userKeys))
	for i, key := range userKeys {
		cmds[i] = pipe.HGetAll(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}

	profiles := make([]models.Profile, 0, len(cmds))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		profiles = append(profiles, *profileFromFields(fields))
	}
	return profiles, nil
}

func profileFromFields(fields map[string]string) *models.Profile {
	return &models.Profile{
		ID:    fields["id"],
		Email: fields["email"],
		Name:  fields["name"],
		Image: fields["image"],
	}
}

func isPlaceholderImage(url string) bool {
	for _, host := range placeholderImageHosts {
		if strings.Contains(url, host) {
			return true
		}
	}
	return false
}
