package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"jars/config"
)

// Store 字节级缓存，内存与 Redis 两种实现
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Incr 计数器加一并返回新值，计数器不过期
	Incr(ctx context.Context, key string) (int64, error)
	// Counter 计数器当前值，不存在时为 0
	Counter(ctx context.Context, key string) (int64, error)
}

// Purger 可主动清理过期条目的缓存
type Purger interface {
	CleanExpired() int
}

// New 按配置创建缓存
func New(cfg config.CacheConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(cfg.MaxEntries, cfg.TTL()), nil
	case "redis":
		return NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.TTL())
	default:
		return nil, fmt.Errorf("不支持的缓存驱动: %s", cfg.Driver)
	}
}

// DashboardKey 用户看板缓存键，gen 为该用户看板的代数
func DashboardKey(userID uint, gen int64) string {
	return fmt.Sprintf("jars:dashboard:%d:%d", userID, gen)
}

// DashboardGenKey 用户看板代数计数器，每次写入后加一
func DashboardGenKey(userID uint) string {
	return fmt.Sprintf("jars:dashboard-gen:%d", userID)
}

// MemoryStore 进程内 LRU 缓存
type MemoryStore struct {
	lru *LRUCache[[]byte]

	mu       sync.Mutex
	counters map[string]int64
}

func NewMemoryStore(maxEntries int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		lru:      NewLRUCache[[]byte](maxEntries, ttl),
		counters: make(map[string]int64),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.lru.Get(key)
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.lru.Set(key, value)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.lru.Delete(key)
	return nil
}

func (m *MemoryStore) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key]++
	return m.counters[key], nil
}

func (m *MemoryStore) Counter(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key], nil
}

func (m *MemoryStore) CleanExpired() int {
	return m.lru.CleanExpired()
}
