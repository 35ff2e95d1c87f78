package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/patrickmn/go-cache"

	"appointment-scheduler/internal/store"
)

// ErrNoSession is returned by a Backend for unknown or expired ids.
var ErrNoSession = errors.New("session not found")

// Backend holds encoded session payloads keyed by session id.
type Backend interface {
	Load(ctx context.Context, id string) ([]byte, error)
	Save(ctx context.Context, id string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// PostgresBackend keeps sessions in the sessions table.
type PostgresBackend struct {
	rows *store.SessionStore
}

func NewPostgresBackend(rows *store.SessionStore) *PostgresBackend {
	return &PostgresBackend{rows: rows}
}

func (b *PostgresBackend) Load(ctx context.Context, id string) ([]byte, error) {
	data, err := b.rows.Load(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoSession
	}
	return data, err
}

func (b *PostgresBackend) Save(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	return b.rows.Save(ctx, id, data, ttl)
}

func (b *PostgresBackend) Delete(ctx context.Context, id string) error {
	return b.rows.Delete(ctx, id)
}

// Purge drops expired rows. Redis and memory backends expire on their own.
func (b *PostgresBackend) Purge(ctx context.Context) (int64, error) {
	return b.rows.DeleteExpired(ctx)
}

const redisPrefix = "session:"

type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend connects to addr and pings it.
func NewRedisBackend(ctx context.Context, addr, password string, db int) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisBackend{client: client}, nil
}

func (b *RedisBackend) Load(ctx context.Context, id string) ([]byte, error) {
	data, err := b.client.Get(ctx, redisPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	return data, err
}

func (b *RedisBackend) Save(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	return b.client.Set(ctx, redisPrefix+id, data, ttl).Err()
}

func (b *RedisBackend) Delete(ctx context.Context, id string) error {
	return b.client.Del(ctx, redisPrefix+id).Err()
}

func (b *RedisBackend) Close() error { return b.client.Close() }

// MemoryBackend is process-local; sessions die with the process.
type MemoryBackend struct {
	c *cache.Cache
}

func NewMemoryBackend(ttl time.Duration) *MemoryBackend {
	return &MemoryBackend{c: cache.New(ttl, 10*time.Minute)}
}

func (b *MemoryBackend) Load(_ context.Context, id string) ([]byte, error) {
	v, ok := b.c.Get(id)
	if !ok {
		return nil, ErrNoSession
	}
	return v.([]byte), nil
}

func (b *MemoryBackend) Save(_ context.Context, id string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		b.c.Delete(id)
		return nil
	}
	b.c.Set(id, append([]byte(nil), data...), ttl)
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, id string) error {
	b.c.Delete(id)
	return nil
}
