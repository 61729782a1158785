package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"medassist/internal/model"
)

// HistoryCache fronts the session store with a short-TTL redis cache of user
// inputs. A dirty marker set on every write keeps readers off stale entries
// until the write settles.
type HistoryCache struct {
	client         *redisv9.Client
	historyTTL     time.Duration
	dirtyMarkerTTL time.Duration
}

func NewHistoryCache(client *redisv9.Client, historyTTL, dirtyMarkerTTL time.Duration) *HistoryCache {
	if historyTTL <= 0 {
		historyTTL = 60 * time.Second
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	return &HistoryCache{
		client:         client,
		historyTTL:     historyTTL,
		dirtyMarkerTTL: dirtyMarkerTTL,
	}
}

func (c *HistoryCache) GetHistory(ctx context.Context, sessionID string, limit int) ([]model.UserInput, bool, error) {
	raw, err := c.client.Get(ctx, c.historyKey(sessionID, limit)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get history failed: %w", err)
	}

	var inputs []model.UserInput
	if err := json.Unmarshal([]byte(raw), &inputs); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	return inputs, true, nil
}

func (c *HistoryCache) SetHistory(ctx context.Context, sessionID string, limit int, inputs []model.UserInput) error {
	payload, err := json.Marshal(inputs)
	if err != nil {
		return fmt.Errorf("marshal history cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.historyKey(sessionID, limit), payload, c.historyTTL).Err(); err != nil {
		return fmt.Errorf("redis set history failed: %w", err)
	}
	return nil
}

// DeleteHistory drops every cached window for the session. Entries are keyed
// per read limit, so this scans rather than deleting a single key.
func (c *HistoryCache) DeleteHistory(ctx context.Context, sessionID string) error {
	iter := c.client.Scan(ctx, 0, "session:history:"+sessionID+":*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis delete history failed: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan history keys failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) MarkDirty(ctx context.Context, sessionID string) error {
	if err := c.client.Set(ctx, c.dirtyKey(sessionID), "1", c.dirtyMarkerTTL).Err(); err != nil {
		return fmt.Errorf("redis set dirty marker failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) IsDirty(ctx context.Context, sessionID string) (bool, error) {
	exists, err := c.client.Exists(ctx, c.dirtyKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return exists > 0, nil
}

func (c *HistoryCache) historyKey(sessionID string, limit int) string {
	return fmt.Sprintf("session:history:%s:%d", sessionID, limit)
}

func (c *HistoryCache) dirtyKey(sessionID string) string {
	return "session:history:dirty:" + sessionID
}
