package stats

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/davidmz/freefeed-server-1/internal/config"
	"github.com/davidmz/freefeed-server-1/internal/dbmysql"
)

const (
	statKeyPrefix = "stats:user:"
	statTTL       = 10 * time.Minute
)

// StatsCache is a read-through cache for user counters. Misses fall
// back to MySQL; writers invalidate after commit. Cache failures are
// never surfaced — the relational row is the source of truth.
type StatsCache struct {
	client *redis.Client
}

func NewStatsCache(cfg *config.Config) *StatsCache {
	if !cfg.Redis.Enabled {
		return &StatsCache{}
	}
	return &StatsCache{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}),
	}
}

func statKey(userID int64) string {
	return statKeyPrefix + strconv.FormatInt(userID, 10)
}

// GetCached returns (stat, hit).
func (c *StatsCache) GetCached(ctx context.Context, userID int64) (*dbmysql.UserStat, bool) {
	if c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, statKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) || err != nil {
		return nil, false
	}
	var stat dbmysql.UserStat
	if json.Unmarshal(raw, &stat) != nil {
		return nil, false
	}
	return &stat, true
}

func (c *StatsCache) Set(ctx context.Context, stat *dbmysql.UserStat) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(stat)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, statKey(stat.UserID), raw, statTTL).Err()
}

// Invalidate deletes the cached counters after a committed fan-out so
// the next read rebuilds them from MySQL.
func (c *StatsCache) Invalidate(ctx context.Context, userIDs ...int64) {
	if c.client == nil || len(userIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, statKey(id))
	}
	_ = c.client.Del(ctx, keys...).Err()
}
