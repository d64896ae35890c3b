package location

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pkgredis "github.com/angelmondragon/packfinderz-driver/pkg/redis"
)

// SampleCache keeps the last pushed sample across restarts.
type SampleCache interface {
	Save(ctx context.Context, sample Sample) error
	Load(ctx context.Context) (Sample, bool, error)
}

type sampleStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	LastLocationKey() string
}

// RedisSampleCache stores the sample as JSON under the namespaced location key.
type RedisSampleCache struct {
	store sampleStore
	ttl   time.Duration
}

func NewRedisSampleCache(client *pkgredis.Client, ttl time.Duration) *RedisSampleCache {
	return &RedisSampleCache{store: client, ttl: ttl}
}

func (c *RedisSampleCache) Save(ctx context.Context, sample Sample) error {
	payload, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("encode sample: %w", err)
	}
	return c.store.Set(ctx, c.store.LastLocationKey(), payload, c.ttl)
}

func (c *RedisSampleCache) Load(ctx context.Context) (Sample, bool, error) {
	raw, err := c.store.Get(ctx, c.store.LastLocationKey())
	if err != nil {
		if pkgredis.IsNil(err) {
			return Sample{}, false, nil
		}
		return Sample{}, false, err
	}
	var sample Sample
	if err := json.Unmarshal([]byte(raw), &sample); err != nil {
		return Sample{}, false, fmt.Errorf("decode cached sample: %w", err)
	}
	return sample, true, nil
}
