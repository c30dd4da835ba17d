package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/JMS-tesoy/EASync/internal/domain"
)

// SnapshotCache holds a read-mostly copy of subscription rows in Redis,
// one key per subscription ID with a fixed TTL. It is standalone: Store
// neither reads nor writes it, and Get reports a miss as ErrNotFound.
type SnapshotCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewSnapshotCache(client *redis.Client, prefix string, ttl time.Duration) *SnapshotCache {
	if prefix == "" {
		prefix = "easync:registry:snapshot"
	}
	if ttl == 0 {
		ttl = 30 * time.Second
	}
	return &SnapshotCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *SnapshotCache) key(id string) string {
	return fmt.Sprintf("%s:%s", c.prefix, id)
}

func (c *SnapshotCache) Get(ctx context.Context, id string) (*domain.Subscription, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("registry: cache get %s: %w", id, err)
	}
	var sub domain.Subscription
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("registry: cache decode %s: %w", id, err)
	}
	return &sub, nil
}

func (c *SnapshotCache) Put(ctx context.Context, sub *domain.Subscription) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("registry: cache encode %s: %w", sub.ID, err)
	}
	if err := c.client.Set(ctx, c.key(sub.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("registry: cache put %s: %w", sub.ID, err)
	}
	return nil
}

func (c *SnapshotCache) Invalidate(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		return fmt.Errorf("registry: cache invalidate %s: %w", id, err)
	}
	return nil
}
