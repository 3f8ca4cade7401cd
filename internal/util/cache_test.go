package util

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleCache(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cache := NewCache[string](ctx, time.Second)
	assert.NoError(t, cache.Close())
	assert.NoError(t, cache.Close())
}

func TestSetGetCache(t *testing.T) {
	cache := NewCache[string](context.Background(), time.Minute)
	defer cache.Close()
	now := time.Now()
	cache.now = func() time.Time { return now }
	val, found := cache.Get("test")
	assert.False(t, found)
	assert.Empty(t, val)
	cache.Set("test", "value", time.Second)
	val, found = cache.Get("test")
	assert.True(t, found)
	assert.Equal(t, "value", val)
	now = now.Add(2 * time.Second)
	val, found = cache.Get("test")
	assert.False(t, found)
	assert.Empty(t, val)
	assert.Equal(t, 0, cache.Len())
}

func TestCacheDeleteAndPurge(t *testing.T) {
	cache := NewCache[int](context.Background(), time.Minute)
	defer cache.Close()
	cache.Set("a", 1, time.Minute)
	cache.Set("b", 2, time.Minute)
	cache.Delete("a")
	_, found := cache.Get("a")
	assert.False(t, found)
	assert.Equal(t, 1, cache.Len())
	cache.Purge()
	assert.Equal(t, 0, cache.Len())
}

func TestCacheGetOrLoad(t *testing.T) {
	cache := NewCache[[]string](context.Background(), time.Minute)
	defer cache.Close()
	var calls int
	load := func() ([]string, error) {
		calls++
		return []string{"x"}, nil
	}
	val, err := cache.GetOrLoad("k", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, val)
	val, err = cache.GetOrLoad("k", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, val)
	assert.Equal(t, 1, calls)

	_, err = cache.GetOrLoad("bad", time.Minute, func() ([]string, error) { return nil, errors.New("boom") })
	assert.EqualError(t, err, "boom")
	_, found := cache.Get("bad")
	assert.False(t, found)
}

func TestCacheBackgroundExpire(t *testing.T) {
	cache := NewCache[string](context.Background(), time.Millisecond*20)
	defer cache.Close()
	cache.Set("test", "value", 10*time.Millisecond)
	_, found := cache.Get("test")
	assert.True(t, found)
	assert.Eventually(t, func() bool { return cache.Len() == 0 }, time.Second, 10*time.Millisecond)
}
