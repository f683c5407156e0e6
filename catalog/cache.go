package catalog

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/nejcselan19/rezervacije/models"
)

const itemKeyPrefix = "catalog:item:"

// RedisCache keeps items in Redis for a fixed TTL. Cache failures are logged
// and treated as misses; the database stays the source of truth.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to addr ("host:port").
func NewRedisCache(addr string, ttl time.Duration) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
	log.Println("catalog: redis item cache at", addr)
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, id string) (*models.Item, bool) {
	raw, err := c.client.Get(ctx, itemKeyPrefix+id).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("catalog: cache get %s: %v", id, err)
		}
		return nil, false
	}

	var item models.Item
	if err := json.Unmarshal(raw, &item); err != nil {
		log.Printf("catalog: cache decode %s: %v", id, err)
		return nil, false
	}
	return &item, true
}

func (c *RedisCache) Set(ctx context.Context, item *models.Item) {
	raw, err := json.Marshal(item)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, itemKeyPrefix+item.ID, raw, c.ttl).Err(); err != nil {
		log.Printf("catalog: cache set %s: %v", item.ID, err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, id string) {
	if err := c.client.Del(ctx, itemKeyPrefix+id).Err(); err != nil {
		log.Printf("catalog: cache delete %s: %v", id, err)
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
