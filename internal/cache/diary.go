// Package cache keeps rendered diary views in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 10 * time.Minute

// DiaryCache stores JSON diary views per user. Entries are keyed by a per-user
// version so that Invalidate drops all of them with one INCR.
type DiaryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDiaryCache(rdb *redis.Client, ttl time.Duration) *DiaryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &DiaryCache{rdb: rdb, ttl: ttl}
}

func versionKey(userID int64) string {
	return fmt.Sprintf("diary:ver:%d", userID)
}

func (c *DiaryCache) key(ctx context.Context, userID int64, view string) (string, error) {
	ver, err := c.rdb.Get(ctx, versionKey(userID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("diary:%d:%d:%s", userID, ver, view), nil
}

// Get decodes a cached view into dest, reporting whether it was present. The
// returned key is bound to the version read here; pass it to Set so a view
// built before a concurrent Invalidate lands under the old version.
func (c *DiaryCache) Get(ctx context.Context, userID int64, view string, dest any) (string, bool, error) {
	key, err := c.key(ctx, userID, view)
	if err != nil {
		return "", false, err
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return key, false, nil
	}
	if err != nil {
		return key, false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return key, false, err
	}
	return key, true, nil
}

// Set stores v under a key returned by Get.
func (c *DiaryCache) Set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate bumps the user's version; stale entries expire on their own.
func (c *DiaryCache) Invalidate(ctx context.Context, userID int64) error {
	return c.rdb.Incr(ctx, versionKey(userID)).Err()
}
