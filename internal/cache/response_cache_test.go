package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResponseCache(t *testing.T) {
	cache := NewResponseCache(1000)

	assert.NotNil(t, cache)
}

func TestResponseCache_SetAndGet(t *testing.T) {
	cache := NewResponseCache(1000)

	entry := &CacheEntry{
		Payload:  []byte(`{"results": []}`),
		CachedAt: time.Now(),
		TTL:      30 * time.Second,
	}

	key := BuildCacheKey("removal order appeal", "federal", "fca")
	cache.Set(key, entry)

	retrieved, found := cache.Get(key)

	assert.True(t, found)
	assert.Equal(t, entry.Payload, retrieved.Payload)
}

func TestResponseCache_Get_NotFound(t *testing.T) {
	cache := NewResponseCache(1000)

	_, found := cache.Get("nonexistent-key")

	assert.False(t, found)
}

func TestResponseCache_Get_Expired(t *testing.T) {
	cache := NewResponseCache(1000)

	entry := &CacheEntry{
		Payload:  []byte(`{"results": []}`),
		CachedAt: time.Now().Add(-60 * time.Second),
		TTL:      30 * time.Second,
	}

	key := BuildCacheKey("removal order appeal", "federal", "fca")
	cache.Set(key, entry)

	_, found := cache.Get(key)

	assert.False(t, found, "Expired entries should not be returned")
}

func TestResponseCache_Delete(t *testing.T) {
	cache := NewResponseCache(1000)

	entry := &CacheEntry{
		Payload:  []byte(`{"results": []}`),
		CachedAt: time.Now(),
		TTL:      30 * time.Second,
	}

	key := BuildCacheKey("removal order appeal", "federal", "fca")
	cache.Set(key, entry)
	cache.Delete(key)

	_, found := cache.Get(key)

	assert.False(t, found)
}

func TestResponseCache_Clear(t *testing.T) {
	cache := NewResponseCache(1000)

	keys := []string{
		BuildCacheKey("query one", "federal", "fca"),
		BuildCacheKey("query two", "federal", "fc"),
		BuildCacheKey("query three", "federal", "scc"),
	}

	for _, key := range keys {
		cache.Set(key, &CacheEntry{Payload: []byte("[]"), CachedAt: time.Now(), TTL: 30 * time.Second})
	}

	cache.Clear()

	for _, key := range keys {
		_, found := cache.Get(key)
		assert.False(t, found)
	}
}

func TestResponseCache_Size(t *testing.T) {
	cache := NewResponseCache(1000)

	assert.Equal(t, 0, cache.Size())

	cache.Set("key1", &CacheEntry{CachedAt: time.Now(), TTL: 30 * time.Second})
	assert.Equal(t, 1, cache.Size())

	cache.Set("key2", &CacheEntry{CachedAt: time.Now(), TTL: 30 * time.Second})
	assert.Equal(t, 2, cache.Size())

	cache.Delete("key1")
	assert.Equal(t, 1, cache.Size())
}

func TestResponseCache_MaxSize_Eviction(t *testing.T) {
	cache := NewResponseCache(2) // Max 2 entries

	cache.Set("key1", &CacheEntry{Payload: []byte("1"), CachedAt: time.Now(), TTL: 30 * time.Second})
	cache.Set("key2", &CacheEntry{Payload: []byte("2"), CachedAt: time.Now(), TTL: 30 * time.Second})
	cache.Set("key3", &CacheEntry{Payload: []byte("3"), CachedAt: time.Now(), TTL: 30 * time.Second})

	// Cache should maintain size limit
	assert.LessOrEqual(t, cache.Size(), 2)

	// Latest entry should be present
	_, found := cache.Get("key3")
	assert.True(t, found)
}

func TestBuildCacheKey(t *testing.T) {
	key := BuildCacheKey("judicial review", "federal", "fca")

	assert.Contains(t, key, "federal")
	assert.Contains(t, key, "fca")
}

func TestBuildCacheKey_SameInputsSameOutput(t *testing.T) {
	key1 := BuildCacheKey("removal order", "federal", "fca")
	key2 := BuildCacheKey("removal order", "federal", "fca")

	assert.Equal(t, key1, key2)
}

func TestBuildCacheKey_DifferentInputsDifferentOutput(t *testing.T) {
	key1 := BuildCacheKey("removal order", "federal", "fca")
	key2 := BuildCacheKey("credibility finding", "federal", "fca")

	assert.NotEqual(t, key1, key2)
}

func TestBuildCacheKey_NormalizesCaseAndWhitespace(t *testing.T) {
	key1 := BuildCacheKey("  Removal Order  ", "Federal", "FCA")
	key2 := BuildCacheKey("removal order", "federal", "fca")

	assert.Equal(t, key1, key2)
}

func TestSearchCacheConfig_DefaultTTL(t *testing.T) {
	config := NewSearchCacheConfig()

	assert.Equal(t, 30*time.Minute, config.GetTTL("scc"))
	assert.Equal(t, 10*time.Minute, config.GetTTL("fca"))
	assert.Equal(t, 10*time.Minute, config.GetTTL("fc"))
	assert.Equal(t, defaultSearchTTL, config.GetTTL("unknown-court"))
}

func TestSearchCacheConfig_IsCacheable(t *testing.T) {
	config := NewSearchCacheConfig()

	assert.True(t, config.IsCacheable("official"))
	assert.False(t, config.IsCacheable("canlii"))
}

func TestSearchCacheConfig_CustomTTL(t *testing.T) {
	config := NewSearchCacheConfig()
	config.SetTTL("fc", 60*time.Second)

	assert.Equal(t, 60*time.Second, config.GetTTL("fc"))
}

func TestSearchCacheConfig_Disabled(t *testing.T) {
	config := NewSearchCacheConfig()
	config.SetDisabled(true)

	assert.False(t, config.IsCacheable("official"))
}

func TestCacheEntry_IsExpired(t *testing.T) {
	t.Run("not expired", func(t *testing.T) {
		entry := &CacheEntry{
			CachedAt: time.Now(),
			TTL:      30 * time.Second,
		}
		assert.False(t, entry.IsExpired())
	})

	t.Run("expired", func(t *testing.T) {
		entry := &CacheEntry{
			CachedAt: time.Now().Add(-60 * time.Second),
			TTL:      30 * time.Second,
		}
		assert.True(t, entry.IsExpired())
	})
}

func TestResponseCache_ConcurrentAccess(t *testing.T) {
	cache := NewResponseCache(1000)
	done := make(chan bool)

	go func() {
		for i := 0; i < 100; i++ {
			cache.Set("key", &CacheEntry{
				Payload:  []byte("test"),
				CachedAt: time.Now(),
				TTL:      30 * time.Second,
			})
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 100; i++ {
			cache.Get("key")
		}
		done <- true
	}()

	<-done
	<-done

	require.True(t, true)
}

func TestCacheStats(t *testing.T) {
	cache := NewResponseCache(1000)

	stats := cache.Stats()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(0), stats.Misses)

	cache.Get("nonexistent")
	stats = cache.Stats()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)

	cache.Set("key", &CacheEntry{CachedAt: time.Now(), TTL: 30 * time.Second})
	cache.Get("key")
	stats = cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}
