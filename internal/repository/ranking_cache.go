package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// RankingCache keeps computed top-K name lists in Redis, keyed by promotion.
type RankingCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRankingCache(client *redis.Client, ttl time.Duration) *RankingCache {
	return &RankingCache{client: client, ttl: ttl}
}

func rankingKey(promotionID, scope string) string {
	return "ranking:" + promotionID + ":" + scope
}

// Get reports ok=false on a miss.
func (c *RankingCache) Get(ctx context.Context, promotionID, scope string) ([]string, bool, error) {
	raw, err := c.client.Get(ctx, rankingKey(promotionID, scope)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, false, err
	}
	return names, true, nil
}

func (c *RankingCache) Set(ctx context.Context, promotionID, scope string, names []string) error {
	raw, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, rankingKey(promotionID, scope), raw, c.ttl).Err()
}

// Invalidate drops every cached ranking of the promotion.
func (c *RankingCache) Invalidate(ctx context.Context, promotionID string) error {
	iter := c.client.Scan(ctx, 0, rankingKey(promotionID, "*"), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
