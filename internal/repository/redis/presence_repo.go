package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/FathanAkram-app/VCOMM-web-sub005/internal/database"
	"github.com/FathanAkram-app/VCOMM-web-sub005/pkg/constants"
)

// PresenceRepository tracks user online/offline status in Redis
type PresenceRepository struct {
	client *database.RedisClient
}

// NewPresenceRepository creates a new PresenceRepository
func NewPresenceRepository(client *database.RedisClient) *PresenceRepository {
	return &PresenceRepository{client: client}
}

func presenceKey(userID int64) string {
	return fmt.Sprintf("presence:%d", userID)
}

// SetUserOnline marks a user as online
func (r *PresenceRepository) SetUserOnline(ctx context.Context, userID int64) error {
	// Status key expires unless refreshed by heartbeat
	err := r.client.Client.Set(ctx, presenceKey(userID), "online", constants.PresenceTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set user online: %w", err)
	}

	// Add to online users set for quick listing
	err = r.client.Client.SAdd(ctx, "presence:online", strconv.FormatInt(userID, 10)).Err()
	if err != nil {
		return fmt.Errorf("failed to add to online set: %w", err)
	}

	return nil
}

// SetUserOffline marks a user as offline
func (r *PresenceRepository) SetUserOffline(ctx context.Context, userID int64) error {
	err := r.client.Client.Del(ctx, presenceKey(userID)).Err()
	if err != nil {
		return fmt.Errorf("failed to delete presence: %w", err)
	}

	err = r.client.Client.SRem(ctx, "presence:online", strconv.FormatInt(userID, 10)).Err()
	if err != nil {
		return fmt.Errorf("failed to remove from online set: %w", err)
	}

	return nil
}

// IsUserOnline checks if a user is currently online
func (r *PresenceRepository) IsUserOnline(ctx context.Context, userID int64) (bool, error) {
	exists, err := r.client.Client.Exists(ctx, presenceKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check presence: %w", err)
	}

	return exists > 0, nil
}

// RefreshPresence keeps a user online (heartbeat)
func (r *PresenceRepository) RefreshPresence(ctx context.Context, userID int64) error {
	err := r.client.Client.Expire(ctx, presenceKey(userID), constants.PresenceTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to refresh presence: %w", err)
	}

	return nil
}
