package stats

import (
	"context"

	"github.com/davidmz/freefeed-server-1/internal/dbmysql"
)

// StatsService serves counter reads through the cache and offers the
// invalidation hook writers call after commit.
type StatsService struct {
	repo  Repository
	cache *StatsCache
}

func NewStatsService(repo Repository, cache *StatsCache) *StatsService {
	return &StatsService{repo: repo, cache: cache}
}

func (s *StatsService) Get(ctx context.Context, userID int64) (*dbmysql.UserStat, error) {
	if s.cache != nil {
		if stat, ok := s.cache.GetCached(ctx, userID); ok {
			return stat, nil
		}
	}
	stat, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, stat)
	}
	return stat, nil
}

// Invalidated is called by the fan-out writer after a committed
// mutation touching the users' counters.
func (s *StatsService) Invalidated(ctx context.Context, userIDs ...int64) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, userIDs...)
	}
}
