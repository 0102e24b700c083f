package cache

import (
	"context"
	"sync"
	"time"
)

type localEntry struct {
	value     interface{}
	expiresAt time.Time
}

// LocalCache is a mutex-guarded in-process cache with a background
// janitor for expired entries.
type LocalCache struct {
	mu                sync.RWMutex
	items             map[string]localEntry
	defaultExpiration time.Duration
	stop              chan struct{}
	stopOnce          sync.Once
}

func NewLocalCache(cfg LocalConfig) *LocalCache {
	if cfg.DefaultExpiration <= 0 {
		cfg.DefaultExpiration = 5 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 10 * time.Minute
	}

	c := &LocalCache{
		items:             make(map[string]localEntry),
		defaultExpiration: cfg.DefaultExpiration,
		stop:              make(chan struct{}),
	}
	go c.janitor(cfg.CleanupInterval)
	return c
}

func (c *LocalCache) janitor(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-t.C:
			now := time.Now()
			c.mu.Lock()
			for k, e := range c.items {
				if now.After(e.expiresAt) {
					delete(c.items, k)
				}
			}
			c.mu.Unlock()
		}
	}
}

func (c *LocalCache) Get(_ context.Context, key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

func (c *LocalCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	if expiration <= 0 {
		expiration = c.defaultExpiration
	}
	c.mu.Lock()
	c.items[key] = localEntry{value: value, expiresAt: time.Now().Add(expiration)}
	c.mu.Unlock()
	return nil
}

func (c *LocalCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

func (c *LocalCache) Exists(ctx context.Context, key string) bool {
	_, ok := c.Get(ctx, key)
	return ok
}

func (c *LocalCache) Clear(_ context.Context) error {
	c.mu.Lock()
	c.items = make(map[string]localEntry)
	c.mu.Unlock()
	return nil
}

func (c *LocalCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}
