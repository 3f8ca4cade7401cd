package util

import (
	"context"
	"sync"
	"time"
)

// Cache is an in-memory key/value cache where every entry carries its own expiry.
type Cache[V any] struct {
	ctx         context.Context
	cancel      context.CancelFunc
	cache       map[string]*entry[V]
	mutex       sync.RWMutex
	waitGroup   sync.WaitGroup
	once        sync.Once
	expiryCheck time.Duration
	now         func() time.Time
}

type entry[V any] struct {
	object  V
	expires time.Time
}

// Get returns the value and true if found and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	c.mutex.RLock()
	val, ok := c.cache[key]
	c.mutex.RUnlock()
	if !ok {
		return zero, false
	}
	if val.expires.Before(c.now()) {
		c.mutex.Lock()
		delete(c.cache, key)
		c.mutex.Unlock()
		return zero, false
	}
	return val.object, true
}

// Set stores val for the duration of expires.
func (c *Cache[V]) Set(key string, val V, expires time.Duration) {
	c.mutex.Lock()
	c.cache[key] = &entry[V]{val, c.now().Add(expires)}
	c.mutex.Unlock()
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	c.mutex.Lock()
	delete(c.cache, key)
	c.mutex.Unlock()
}

// Purge removes every entry.
func (c *Cache[V]) Purge() {
	c.mutex.Lock()
	c.cache = make(map[string]*entry[V])
	c.mutex.Unlock()
}

// Len returns the number of entries including ones which expired but were not yet evicted.
func (c *Cache[V]) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.cache)
}

// GetOrLoad returns the cached value or calls load and caches its result when it succeeds.
func (c *Cache[V]) GetOrLoad(key string, expires time.Duration, load func() (V, error)) (V, error) {
	if val, ok := c.Get(key); ok {
		return val, nil
	}
	val, err := load()
	if err != nil {
		return val, err
	}
	c.Set(key, val, expires)
	return val, nil
}

// Close will stop the background eviction.
func (c *Cache[V]) Close() error {
	c.once.Do(func() {
		c.cancel()
		c.waitGroup.Wait()
	})
	return nil
}

func (c *Cache[V]) evict() {
	now := c.now()
	c.mutex.Lock()
	for key, val := range c.cache {
		if val.expires.Before(now) {
			delete(c.cache, key)
		}
	}
	c.mutex.Unlock()
}

func (c *Cache[V]) run() {
	defer c.waitGroup.Done()
	timer := time.NewTicker(c.expiryCheck)
	defer timer.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-timer.C:
			c.evict()
		}
	}
}

// NewCache returns a new cache which evicts expired entries every expiryCheck until parent is done or Close is called.
func NewCache[V any](parent context.Context, expiryCheck time.Duration) *Cache[V] {
	ctx, cancel := context.WithCancel(parent)
	c := &Cache[V]{
		ctx:         ctx,
		cancel:      cancel,
		cache:       make(map[string]*entry[V]),
		expiryCheck: expiryCheck,
		now:         time.Now,
	}
	c.waitGroup.Add(1)
	go c.run()
	return c
}
