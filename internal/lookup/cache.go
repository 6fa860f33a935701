package lookup

import (
	"context"
	"encoding/json"
	"time"

	"github.com/angelmondragon/disputedesk-backend/pkg/logger"
	"github.com/angelmondragon/disputedesk-backend/pkg/redis"
)

const (
	userCacheScope      = "user"
	defaultUserCacheTTL = 5 * time.Minute
)

// CachedUserLookup serves user profiles from redis before asking the wrapped lookup.
// Cache errors fall through to the wrapped lookup.
type CachedUserLookup struct {
	next  UserLookup
	cache redis.Cache
	ttl   time.Duration
	logg  *logger.Logger
}

// NewCachedUserLookup wraps next. A nil cache disables caching.
func NewCachedUserLookup(next UserLookup, cache redis.Cache, ttl time.Duration, logg *logger.Logger) *CachedUserLookup {
	if ttl <= 0 {
		ttl = defaultUserCacheTTL
	}
	return &CachedUserLookup{next: next, cache: cache, ttl: ttl, logg: logg}
}

func (c *CachedUserLookup) GetBasicInfo(ctx context.Context, userID, authToken string) (*UserInfo, error) {
	if c.cache == nil {
		return c.next.GetBasicInfo(ctx, userID, authToken)
	}

	key := c.cache.CacheKey(userCacheScope, userID)
	raw, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		var info UserInfo
		if jsonErr := json.Unmarshal([]byte(raw), &info); jsonErr == nil {
			return &info, nil
		}
		c.warn(ctx, key, "user cache entry undecodable")
	case !redis.IsMiss(err):
		c.warn(ctx, key, "user cache read failed")
	}

	info, err := c.next.GetBasicInfo(ctx, userID, authToken)
	if err != nil || info == nil {
		return info, err
	}

	payload, err := json.Marshal(info)
	if err == nil {
		if err = c.cache.Set(ctx, key, string(payload), c.ttl); err != nil {
			c.warn(ctx, key, "user cache write failed")
		}
	}
	return info, nil
}

func (c *CachedUserLookup) warn(ctx context.Context, key, msg string) {
	if c.logg == nil {
		return
	}
	c.logg.Warn(c.logg.WithField(ctx, "cache_key", key), msg)
}
