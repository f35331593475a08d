// Package cache はライダー現在地のRedisキャッシュ。
// 正は tracking テーブルで、ここは読み取りの近道だけ
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Smart3990/Kiyumart-sub000/internal/config"
	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"

	"github.com/go-redis/redis/v8"
)

const (
	defaultTTL = 6 * time.Hour
	maxRetries = 3
)

type LocationCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLocationCache(cfg config.RedisConfig) *LocationCache {
	return &LocationCache{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		ttl: defaultTTL,
	}
}

func (c *LocationCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *LocationCache) Close() error {
	return c.client.Close()
}

func locationKey(orderID int64) string {
	return fmt.Sprintf("order:%d:location", orderID)
}

// キャッシュに無ければ ok=false
func (c *LocationCache) Latest(ctx context.Context, orderID int64) (model.DeliveryTrackingSample, bool, error) {
	data, err := c.client.Get(ctx, locationKey(orderID)).Result()
	if errors.Is(err, redis.Nil) {
		return model.DeliveryTrackingSample{}, false, nil
	}
	if err != nil {
		return model.DeliveryTrackingSample{}, false, err
	}

	var s model.DeliveryTrackingSample
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return model.DeliveryTrackingSample{}, false, err
	}
	return s, true, nil
}

// RecordedAtが新しいときだけ上書き（WATCHで楽観ロック）
func (c *LocationCache) Offer(ctx context.Context, s model.DeliveryTrackingSample) error {
	key := locationKey(s.OrderID)
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}

	txf := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			var existing model.DeliveryTrackingSample
			if jerr := json.Unmarshal([]byte(cur), &existing); jerr == nil && !newer(s, existing) {
				return nil
			}
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, payload, c.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxRetries; i++ {
		err = c.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

// 同時刻なら後から来た方
func newer(candidate, current model.DeliveryTrackingSample) bool {
	return !candidate.RecordedAt.Before(current.RecordedAt)
}
