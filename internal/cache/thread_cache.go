package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"mealtrack-bff/internal/model"
)

// ThreadCache is a read-through copy of each user's insights thread. Writers
// mark the entry dirty before changing the database so a concurrent reader
// does not put back a stale copy.
type ThreadCache struct {
	client         *redisv9.Client
	threadTTL      time.Duration
	dirtyMarkerTTL time.Duration
}

func NewThreadCache(client *redisv9.Client, threadTTL, dirtyMarkerTTL time.Duration) *ThreadCache {
	if threadTTL <= 0 {
		threadTTL = 60 * time.Second
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	return &ThreadCache{
		client:         client,
		threadTTL:      threadTTL,
		dirtyMarkerTTL: dirtyMarkerTTL,
	}
}

func (c *ThreadCache) GetThread(ctx context.Context, userID string) (*model.MessageThread, bool, error) {
	raw, err := c.client.Get(ctx, c.threadKey(userID)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get thread failed: %w", err)
	}

	var thread model.MessageThread
	if err := json.Unmarshal([]byte(raw), &thread); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached thread failed: %w", err)
	}
	return &thread, true, nil
}

func (c *ThreadCache) SetThread(ctx context.Context, thread *model.MessageThread) error {
	payload, err := json.Marshal(thread)
	if err != nil {
		return fmt.Errorf("marshal thread cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.threadKey(thread.UserID), payload, c.threadTTL).Err(); err != nil {
		return fmt.Errorf("redis set thread failed: %w", err)
	}
	return nil
}

func (c *ThreadCache) DeleteThread(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, c.threadKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete thread failed: %w", err)
	}
	return nil
}

func (c *ThreadCache) MarkDirty(ctx context.Context, userID string) error {
	if err := c.client.Set(ctx, c.dirtyKey(userID), "1", c.dirtyMarkerTTL).Err(); err != nil {
		return fmt.Errorf("redis set dirty marker failed: %w", err)
	}
	return nil
}

func (c *ThreadCache) IsDirty(ctx context.Context, userID string) (bool, error) {
	exists, err := c.client.Exists(ctx, c.dirtyKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return exists > 0, nil
}

func (c *ThreadCache) threadKey(userID string) string {
	return "insights:thread:" + userID
}

func (c *ThreadCache) dirtyKey(userID string) string {
	return "insights:thread:dirty:" + userID
}
