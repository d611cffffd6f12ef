package cache

import (
	"sync"
	"time"

	"github.com/swapbot/goswap/route/types"
)

// Cache 通用缓存接口
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	Delete(key K)
	Clear()
	Size() int
}

// InMemoryCache 内存缓存实现
type InMemoryCache[K comparable, V any] struct {
	items      map[K]*cacheItem[V]
	mu         sync.RWMutex
	defaultTTL time.Duration
}

// cacheItem 缓存项
type cacheItem[V any] struct {
	value     V
	expiresAt time.Time
}

// NewInMemoryCache 创建新的内存缓存
func NewInMemoryCache[K comparable, V any](defaultTTL time.Duration) *InMemoryCache[K, V] {
	cache := &InMemoryCache[K, V]{
		items:      make(map[K]*cacheItem[V]),
		defaultTTL: defaultTTL,
	}

	// 启动清理 goroutine
	go cache.startCleanup()

	return cache
}

// Get 获取缓存值
func (c *InMemoryCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists {
		var zero V
		return zero, false
	}

	// 检查是否过期
	if time.Now().After(item.expiresAt) {
		go c.Delete(key)
		var zero V
		return zero, false
	}

	return item.value, true
}

// Set 设置缓存值
func (c *InMemoryCache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl == 0 {
		ttl = c.defaultTTL
	}

	c.items[key] = &cacheItem[V]{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
}

// Delete 删除缓存项
func (c *InMemoryCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear 清空缓存
func (c *InMemoryCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]*cacheItem[V])
}

// Size 获取缓存大小
func (c *InMemoryCache[K, V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// startCleanup 定期清理过期项
func (c *InMemoryCache[K, V]) startCleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.cleanup()
	}
}

// cleanup 清理过期项
func (c *InMemoryCache[K, V]) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, key)
		}
	}
}

const tokenListKey = "tokens"

// TokenListCache 资产列表缓存（列表变化极少，缓存 5 分钟）
type TokenListCache struct {
	cache *InMemoryCache[string, []types.TokenDescriptor]
}

// NewTokenListCache 创建资产列表缓存
func NewTokenListCache() *TokenListCache {
	return &TokenListCache{
		cache: NewInMemoryCache[string, []types.TokenDescriptor](5 * time.Minute),
	}
}

// Get 获取缓存的资产列表
func (tc *TokenListCache) Get() ([]types.TokenDescriptor, bool) {
	return tc.cache.Get(tokenListKey)
}

// Set 缓存资产列表
func (tc *TokenListCache) Set(tokens []types.TokenDescriptor) {
	tc.cache.Set(tokenListKey, tokens, 5*time.Minute)
}

// MarketCache 行情快照缓存（30 秒，避免轮询把行情接口打爆）
type MarketCache struct {
	cache *InMemoryCache[string, *types.Market]
}

// NewMarketCache 创建行情缓存
func NewMarketCache() *MarketCache {
	return &MarketCache{
		cache: NewInMemoryCache[string, *types.Market](30 * time.Second),
	}
}

// Get 获取行情
func (mc *MarketCache) Get(assetID string) (*types.Market, bool) {
	return mc.cache.Get(assetID)
}

// Set 缓存行情
func (mc *MarketCache) Set(assetID string, market *types.Market) {
	mc.cache.Set(assetID, market, 30*time.Second)
}
