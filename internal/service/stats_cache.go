package service

import (
	"context"
	"encoding/json"
	"quest_resume_backend/internal/model"
	"quest_resume_backend/pkg/logger"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const statsCacheKey = "quest:stats"

// StatsCache 基于 Redis 的统计结果缓存，Redis 为 nil 时所有操作都是空操作
type StatsCache struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewStatsCache(rdb *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{Redis: rdb, TTL: ttl}
}

// cachedStats 统计结果连同计算时存储的代数一起缓存
type cachedStats struct {
	Generation uint64              `json:"generation"`
	Stats      model.TrainingStats `json:"stats"`
}

// Get 缓存的代数与 gen 不一致时视为未命中
func (c *StatsCache) Get(ctx context.Context, gen uint64) (*model.TrainingStats, bool) {
	if c == nil || c.Redis == nil {
		return nil, false
	}

	val, err := c.Redis.Get(ctx, statsCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Warn("Stats cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var cached cachedStats
	if err := json.Unmarshal(val, &cached); err != nil || cached.Generation != gen {
		return nil, false
	}
	return &cached.Stats, true
}

func (c *StatsCache) Set(ctx context.Context, gen uint64, stats model.TrainingStats) {
	if c == nil || c.Redis == nil {
		return
	}

	payload, err := json.Marshal(cachedStats{Generation: gen, Stats: stats})
	if err != nil {
		return
	}
	if err := c.Redis.Set(ctx, statsCacheKey, payload, c.TTL).Err(); err != nil {
		logger.Log.Warn("Stats cache write failed", zap.Error(err))
	}
}

func (c *StatsCache) Invalidate(ctx context.Context) {
	if c == nil || c.Redis == nil {
		return
	}
	if err := c.Redis.Del(ctx, statsCacheKey).Err(); err != nil {
		logger.Log.Warn("Stats cache invalidate failed", zap.Error(err))
	}
}
