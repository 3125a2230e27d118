package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"inkd/internal/cache"

	"github.com/redis/go-redis/v9"
)

// Client-local preference keys.
const (
	RememberMeKey      = "inkd-remember-me"
	RememberedEmailKey = "inkd-user-email"
)

// Preferences is per-device key/value storage, the server-side stand-in for
// browser local storage.
type Preferences interface {
	Get(ctx context.Context, deviceID, key string) (string, bool, error)
	Set(ctx context.Context, deviceID string, values map[string]string) error
	Delete(ctx context.Context, deviceID string, keys ...string) error
}

// RedisPreferences keeps each device's preferences in a Redis hash.
type RedisPreferences struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisPreferences stores preferences in rdb, refreshing the TTL on every write.
func NewRedisPreferences(rdb *redis.Client) *RedisPreferences {
	return &RedisPreferences{rdb: rdb, ttl: cache.PrefsTTL}
}

func (p *RedisPreferences) Get(ctx context.Context, deviceID, key string) (string, bool, error) {
	v, err := p.rdb.HGet(ctx, cache.PrefsKey(deviceID), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (p *RedisPreferences) Set(ctx context.Context, deviceID string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	key := cache.PrefsKey(deviceID)
	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, values)
		pipe.Expire(ctx, key, p.ttl)
		return nil
	})
	return err
}

func (p *RedisPreferences) Delete(ctx context.Context, deviceID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return p.rdb.HDel(ctx, cache.PrefsKey(deviceID), keys...).Err()
}

// MemoryPreferences is an in-process Preferences for tests and Redis-less runs.
type MemoryPreferences struct {
	mu     sync.RWMutex
	values map[string]map[string]string
}

func NewMemoryPreferences() *MemoryPreferences {
	return &MemoryPreferences{values: make(map[string]map[string]string)}
}

func (p *MemoryPreferences) Get(_ context.Context, deviceID, key string) (string, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[deviceID][key]
	return v, ok, nil
}

func (p *MemoryPreferences) Set(_ context.Context, deviceID string, values map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.values[deviceID]
	if !ok {
		m = make(map[string]string, len(values))
		p.values[deviceID] = m
	}
	for k, v := range values {
		m[k] = v
	}
	return nil
}

func (p *MemoryPreferences) Delete(_ context.Context, deviceID string, keys ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, k := range keys {
		delete(p.values[deviceID], k)
	}
	if len(p.values[deviceID]) == 0 {
		delete(p.values, deviceID)
	}
	return nil
}
