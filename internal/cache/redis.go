package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Redis is the shared-cache variant of Store, used when several instances
// should serve the same list payloads.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(cfg RedisConfig, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Redis{client: client, ttl: ttl}
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

func (c *Redis) Set(ctx context.Context, key string, val []byte) {
	_ = c.client.Set(ctx, key, val, c.ttl).Err()
}

// Clear flushes the cache's redis database. The list cache gets its own
// database index (REDIS_DB), nothing else lives there.
func (c *Redis) Clear(ctx context.Context) {
	_ = c.client.FlushDB(ctx).Err()
}

func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Redis) Close() error {
	return c.client.Close()
}
