package conditions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces condition snapshots in Redis.
const DefaultKeyPrefix = "itinera:conditions:"

// RedisStore is a Store shared between processes. Redis expires entries on
// its own, so lookups never see stale snapshots.
type RedisStore struct {
	client *redis.Client
	prefix string
	clock  func() time.Time
}

// RedisStoreConfig holds configuration for the Redis store.
type RedisStoreConfig struct {
	Client *redis.Client
	Prefix string // default: DefaultKeyPrefix
	Clock  func() time.Time
}

// NewRedisStore creates a store backed by an existing client.
func NewRedisStore(cfg RedisStoreConfig) *RedisStore {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultKeyPrefix
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &RedisStore{client: cfg.Client, prefix: cfg.Prefix, clock: cfg.Clock}
}

// DialRedis connects to Redis and verifies the connection.
func DialRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return client, nil
}

func (r *RedisStore) key(key string) string {
	return r.prefix + key
}

// Get returns the cached snapshot, or nil on a miss.
func (r *RedisStore) Get(ctx context.Context, key string) (*Snapshot, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal cached snapshot failed: %w", err)
	}

	if snap.Expired(r.clock()) {
		return nil, nil
	}

	return &snap, nil
}

// Set stores a snapshot with a TTL matching its ExpiresAt. Snapshots that
// are already expired are not stored.
func (r *RedisStore) Set(ctx context.Context, key string, snap Snapshot) error {
	ttl := snap.ExpiresAt.Sub(r.clock())
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot failed: %w", err)
	}

	if err := r.client.Set(ctx, r.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

// Clear removes every snapshot under the store's prefix.
func (r *RedisStore) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis delete failed: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}
	return nil
}

// Len counts the snapshots under the store's prefix.
func (r *RedisStore) Len(ctx context.Context) (int, error) {
	n := 0
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan failed: %w", err)
	}
	return n, nil
}
