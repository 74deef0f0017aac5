package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/nandanugg/mallfence/module/core/domain"
	"github.com/nandanugg/mallfence/module/core/internal/metrics"
	"github.com/nandanugg/mallfence/module/core/internal/repository/database"
)

var _ database.MallRepository = (*MallCache)(nil)

const (
	mallsKey        = "mallfence:malls"
	defaultMallsTTL = 10 * time.Minute
)

type redisClient interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// MallCache keeps the mall list in redis in front of another repository.
// Redis failures fall through to the wrapped repository.
type MallCache struct {
	rc   redisClient
	next database.MallRepository
	ttl  time.Duration
	log  *slog.Logger
}

func NewMallCache(rc redisClient, next database.MallRepository, ttl time.Duration, log *slog.Logger) *MallCache {
	if ttl <= 0 {
		ttl = defaultMallsTTL
	}
	return &MallCache{rc: rc, next: next, ttl: ttl, log: log}
}

func (c *MallCache) ListMalls(ctx context.Context) ([]domain.Mall, error) {
	s, err := c.rc.Get(ctx, mallsKey).Result()
	switch {
	case err == nil:
		var malls []domain.Mall
		decodeErr := json.Unmarshal([]byte(s), &malls)
		if decodeErr == nil {
			metrics.MallCacheHitsTotal.Inc()
			return malls, nil
		}
		c.log.Warn("mall_cache_decode_error", "err", decodeErr)
	case !errors.Is(err, goredis.Nil):
		c.log.Warn("mall_cache_get_error", "err", err)
	}
	metrics.MallCacheMissesTotal.Inc()

	malls, err := c.next.ListMalls(ctx)
	if err != nil {
		return nil, err
	}

	b, err := json.Marshal(malls)
	if err != nil {
		return nil, fmt.Errorf("marshal malls: %w", err)
	}
	if err := c.rc.Set(ctx, mallsKey, string(b), c.ttl).Err(); err != nil {
		c.log.Warn("mall_cache_set_error", "err", err)
	}
	return malls, nil
}

func (c *MallCache) Invalidate(ctx context.Context) error {
	return c.rc.Del(ctx, mallsKey).Err()
}
