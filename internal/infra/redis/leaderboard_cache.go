// Package redis caches leaderboard reads in Redis in front of any
// app.ScoreStore.
package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
)

const leaderboardKey = "quizdesk:leaderboard"

// LeaderboardCache is a read-through cache for the global leaderboard, the
// one query whose cost grows with every recorded score. All other ScoreStore
// calls pass straight through; RecordScore invalidates the cached board.
type LeaderboardCache struct {
	app.ScoreStore

	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewLeaderboardCache(client *redis.Client, store app.ScoreStore, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{
		ScoreStore: store,
		client:     client,
		ttl:        ttl,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *LeaderboardCache) RecordScore(ctx context.Context, rec domain.ScoreRecord) error {
	if err := c.ScoreStore.RecordScore(ctx, rec); err != nil {
		return err
	}
	// Best-effort invalidation; a stale board expires with the TTL anyway.
	_ = c.client.Del(ctx, leaderboardKey).Err()
	return nil
}

func (c *LeaderboardCache) Leaderboard(ctx context.Context) ([]domain.ScoreRecord, error) {
	if records, ok := c.cached(ctx); ok {
		return records, nil
	}

	result, err, _ := c.sf.Do(leaderboardKey, func() (interface{}, error) {
		// Re-check in case another caller filled the cache.
		if records, ok := c.cached(ctx); ok {
			return records, nil
		}

		records, err := c.ScoreStore.Leaderboard(ctx)
		if err != nil {
			return nil, err
		}

		if raw, err := json.Marshal(records); err == nil {
			_ = c.client.Set(ctx, leaderboardKey, raw, c.ttlWithJitter()).Err()
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.ScoreRecord), nil
}

func (c *LeaderboardCache) cached(ctx context.Context) ([]domain.ScoreRecord, bool) {
	raw, err := c.client.Get(ctx, leaderboardKey).Bytes()
	if err != nil {
		return nil, false
	}
	var records []domain.ScoreRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, false
	}
	return records, true
}

func (c *LeaderboardCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
