package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/dermaguide/backend/internal/domain"
)

// cacheItem holds one cached recommendation with its expiration
type cacheItem struct {
	recommendation *domain.Recommendation
	expiration     time.Time
}

// RecommendationCache is a thread-safe in-memory cache for pipeline results.
// The pipeline is deterministic for a fixed rule snapshot, so entries are
// keyed on the snapshot version plus a request fingerprint; a snapshot
// refresh changes the version and naturally invalidates every stale entry.
// It implements domain.RecommendationCache.
type RecommendationCache struct {
	data  map[string]cacheItem
	ttl   time.Duration
	mutex sync.RWMutex
}

// New creates a recommendation cache with the given entry TTL.
func New(ttl time.Duration) *RecommendationCache {
	cache := &RecommendationCache{
		data: make(map[string]cacheItem),
		ttl:  ttl,
	}

	// Cleanup goroutine removes expired entries so the map doesn't grow
	// unbounded between snapshot refreshes
	go cache.cleanupExpired()

	return cache
}

// key builds the cache key from the snapshot version and a canonical
// fingerprint of the request.
func key(rulesetVersion string, request *domain.RecommendationRequest) (string, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return rulesetVersion + ":" + hex.EncodeToString(sum[:16]), nil
}

// Get retrieves the cached recommendation for a request under the given
// snapshot version
func (c *RecommendationCache) Get(rulesetVersion string, request *domain.RecommendationRequest) (*domain.Recommendation, error) {
	k, err := key(rulesetVersion, request)
	if err != nil {
		return nil, domain.ErrCacheMiss
	}

	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[k]
	if !exists {
		return nil, domain.ErrCacheMiss
	}
	if time.Now().After(item.expiration) {
		return nil, domain.ErrCacheMiss
	}
	return item.recommendation, nil
}

// Set stores a recommendation
func (c *RecommendationCache) Set(rulesetVersion string, request *domain.RecommendationRequest, recommendation *domain.Recommendation) {
	if recommendation == nil {
		return
	}
	k, err := key(rulesetVersion, request)
	if err != nil {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[k] = cacheItem{
		recommendation: recommendation,
		expiration:     time.Now().Add(c.ttl),
	}
}

// Size returns the current number of items in the cache (for debugging/monitoring)
func (c *RecommendationCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Clear removes all items from the cache
func (c *RecommendationCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]cacheItem)
}

// cleanupExpired removes expired entries from the cache periodically
func (c *RecommendationCache) cleanupExpired() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mutex.Lock()
		now := time.Now()
		for key, item := range c.data {
			if now.After(item.expiration) {
				delete(c.data, key)
			}
		}
		c.mutex.Unlock()
	}
}
