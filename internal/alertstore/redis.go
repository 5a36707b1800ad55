package alertstore

import (
	"context"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// DefaultRedisKey is the hash holding symbol -> last alerted bar time.
const DefaultRedisKey = "crossover:last_alert"

type hashClient interface {
	HGet(ctx context.Context, key, field string) *goredis.StringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *goredis.IntCmd
	HGetAll(ctx context.Context, key string) *goredis.StringStringMapCmd
}

// RedisConfig holds connection settings for the Redis store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// Redis keeps alert records in a Redis hash so several processes can share them.
type Redis struct {
	client hashClient
	key    string
}

// NewRedis connects to Redis and pings the server.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[INFO] redis alert store connected to %s", cfg.Addr)
	return newRedis(client, cfg.Key), nil
}

func newRedis(client hashClient, key string) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{client: client, key: key}
}

func (r *Redis) ShouldAlert(ctx context.Context, symbol string, barTime time.Time) (bool, error) {
	v, err := r.client.HGet(ctx, r.key, symbol).Result()
	if err == goredis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis hget %s: %w", symbol, err)
	}
	prev, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return false, fmt.Errorf("decode stored time for %s: %w", symbol, err)
	}
	return !prev.Equal(barTime), nil
}

func (r *Redis) Record(ctx context.Context, symbol string, barTime time.Time) error {
	if err := r.client.HSet(ctx, r.key, symbol, barTime.UTC().Format(time.RFC3339Nano)).Err(); err != nil {
		return fmt.Errorf("redis hset %s: %w", symbol, err)
	}
	return nil
}

func (r *Redis) Snapshot(ctx context.Context) (map[string]time.Time, error) {
	all, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	out := make(map[string]time.Time, len(all))
	for sym, v := range all {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			log.Printf("[WARN] skipping undecodable alert record for %s: %v", sym, err)
			continue
		}
		out[sym] = t
	}
	return out, nil
}
