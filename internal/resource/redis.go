package resource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/mirage/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisNamespace reads resources stored as plain string values in Redis.
// Lets several processes share one set of SQL resources.
type RedisNamespace struct {
	client redis.UniversalClient
}

// NewRedisNamespace connects to Redis and verifies the connection.
func NewRedisNamespace(addr, password string, db int) (*RedisNamespace, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisNamespace{client: client}, nil
}

// NewRedisNamespaceFromClient wraps an existing client.
func NewRedisNamespaceFromClient(client redis.UniversalClient) *RedisNamespace {
	return &RedisNamespace{client: client}
}

// Load reads the value stored under the resource key.
func (n *RedisNamespace) Load(ctx context.Context, namespace, name string) (*domain.Resource, error) {
	key := redisKey(namespace, name)

	raw, err := n.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", domain.ErrResourceNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("load sql resource %s: %w", key, err)
	}

	return Parse(namespace, name, raw)
}

// Store publishes a resource, replacing any previous value.
func (n *RedisNamespace) Store(ctx context.Context, namespace, name, sql string) error {
	return n.client.Set(ctx, redisKey(namespace, name), sql, 0).Err()
}

// Ping checks Redis connectivity.
func (n *RedisNamespace) Ping(ctx context.Context) error {
	return n.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (n *RedisNamespace) Close() error {
	return n.client.Close()
}

func redisKey(namespace, name string) string {
	return "mirage:sql:" + namespace + ":" + name
}

var _ domain.Namespace = (*RedisNamespace)(nil)
