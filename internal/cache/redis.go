package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/hotelops/config"
	"github.com/Domenick1991/hotelops/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client   *redis.Client
	unitsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, unitsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:   redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		unitsTTL: unitsTTL,
	}
}

func (c *RedisCache) GetUnits(ctx context.Context) ([]domain.Unit, error) {
	data, err := c.client.Get(ctx, unitsKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var units []domain.Unit
	if err := json.Unmarshal(data, &units); err != nil {
		return nil, err
	}
	return units, nil
}

func (c *RedisCache) SetUnits(ctx context.Context, units []domain.Unit) error {
	payload, err := json.Marshal(units)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, unitsKey(), payload, c.unitsTTL).Err()
}

func (c *RedisCache) InvalidateUnits(ctx context.Context) error {
	return c.client.Del(ctx, unitsKey()).Err()
}

// AcquireUnitLock takes the per-unit mutex guarding the availability
// check-then-claim sequence. Locks for different units never contend.
func (c *RedisCache) AcquireUnitLock(ctx context.Context, unitID int64, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, unitLockKey(unitID), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseUnitLock(ctx context.Context, unitID int64) error {
	return c.client.Del(ctx, unitLockKey(unitID)).Err()
}

func unitsKey() string {
	return "cache:units"
}

func unitLockKey(unitID int64) string {
	return fmt.Sprintf("lock:unit:%d", unitID)
}
