package resource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opensource-finance/mirage/internal/domain"
	"github.com/redis/go-redis/v9"
)

// stubRedis keeps values in memory. Commands it does not override panic
// through the nil embedded client.
type stubRedis struct {
	redis.UniversalClient
	values map[string]string
	err    error
	closed bool
}

func newStubRedis() *stubRedis {
	return &stubRedis{values: make(map[string]string)}
}

func (s *stubRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if s.err != nil {
		return redis.NewStringResult("", s.err)
	}
	v, ok := s.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (s *stubRedis) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	if s.err != nil {
		return redis.NewStatusResult("", s.err)
	}
	s.values[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (s *stubRedis) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", s.err)
}

func (s *stubRedis) Close() error {
	s.closed = true
	return nil
}

func TestRedisNamespace(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		client := newStubRedis()
		client.values[redisKey("app/store", "PlainRepo.sql")] = "SELECT id FROM plains;"
		ns := NewRedisNamespaceFromClient(client)

		res, err := ns.Load(ctx, "app/store", "PlainRepo.sql")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if res.SQL != "SELECT id FROM plains" || res.Location() != "app/store/PlainRepo.sql" {
			t.Errorf("unexpected resource %+v", res)
		}
	})

	t.Run("MissingKeyIsNotFound", func(t *testing.T) {
		ns := NewRedisNamespaceFromClient(newStubRedis())

		_, err := ns.Load(ctx, "app/store", "Missing.sql")
		if !domain.IsResourceNotFound(err) {
			t.Errorf("expected ErrResourceNotFound, got %v", err)
		}
	})

	t.Run("BackendErrorIsNotAMiss", func(t *testing.T) {
		client := newStubRedis()
		client.err = errors.New("connection refused")
		ns := NewRedisNamespaceFromClient(client)

		_, err := ns.Load(ctx, "app/store", "PlainRepo.sql")
		if err == nil || domain.IsResourceNotFound(err) {
			t.Errorf("expected a non-miss error, got %v", err)
		}
		if err := ns.Ping(ctx); err == nil {
			t.Error("expected Ping to fail")
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		client := newStubRedis()
		client.values[redisKey("app/store", "Broken.sql")] = "-- nothing"
		ns := NewRedisNamespaceFromClient(client)

		_, err := ns.Load(ctx, "app/store", "Broken.sql")
		if !errors.Is(err, domain.ErrMalformedResource) {
			t.Errorf("expected ErrMalformedResource, got %v", err)
		}
	})

	t.Run("StoreThenLoad", func(t *testing.T) {
		client := newStubRedis()
		ns := NewRedisNamespaceFromClient(client)

		if err := ns.Store(ctx, "app/store", "OrderRepo.sql", "SELECT * FROM orders"); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
		res, err := ns.Load(ctx, "app/store", "OrderRepo.sql")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if res.SQL != "SELECT * FROM orders" {
			t.Errorf("unexpected SQL %q", res.SQL)
		}

		if err := ns.Close(); err != nil || !client.closed {
			t.Errorf("expected client to be closed, got %v", err)
		}
	})
}
