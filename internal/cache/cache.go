// Package cache keeps recent pipeline results in memory.
package cache

import (
	"sync"
	"time"

	"finreport/internal/pipeline"
	"finreport/pkg/contracts/domain"
)

// Key identifies one pipeline run input
type Key struct {
	Code     string
	Provider domain.Provider
}

// Entry is one cached pipeline result
type Entry struct {
	Result    *pipeline.Result `json:"-"`
	CachedAt  time.Time        `json:"cached_at"`
	ExpiresAt time.Time        `json:"expires_at"`
	HitCount  int              `json:"hit_count"`
}

// ResultCache is a TTL cache with a size bound. When full, the oldest entry is evicted.
type ResultCache struct {
	entries   map[Key]Entry
	mutex     sync.RWMutex
	ttl       time.Duration
	maxSize   int
	hitCount  int64
	missCount int64
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// New creates a cache and starts its expiry sweep
func New(ttl time.Duration, maxSize int) *ResultCache {
	c := &ResultCache{
		entries:  make(map[Key]Entry),
		ttl:      ttl,
		maxSize:  maxSize,
		stopChan: make(chan struct{}),
	}

	go c.cleanup(sweepInterval(ttl))

	return c
}

// Get returns the cached result for key if it has not expired
func (c *ResultCache) Get(key Key) (*pipeline.Result, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists || time.Now().After(entry.ExpiresAt) {
		c.missCount++
		return nil, false
	}

	entry.HitCount++
	c.entries[key] = entry
	c.hitCount++

	return entry.Result, true
}

// Set stores a result
func (c *ResultCache) Set(key Key, res *pipeline.Result) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.maxSize <= 0 || c.ttl <= 0 {
		return
	}

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	now := time.Now()
	c.entries[key] = Entry{
		Result:    res,
		CachedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}
}

// Invalidate removes one entry
func (c *ResultCache) Invalidate(key Key) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry
func (c *ResultCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries = make(map[Key]Entry)
}

// Len returns the number of entries, expired or not
func (c *ResultCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

// GetStats returns cache statistics
func (c *ResultCache) GetStats() map[string]interface{} {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	totalRequests := c.hitCount + c.missCount
	hitRatio := float64(0)
	if totalRequests > 0 {
		hitRatio = float64(c.hitCount) / float64(totalRequests)
	}

	return map[string]interface{}{
		"entries":     len(c.entries),
		"max_size":    c.maxSize,
		"hit_count":   c.hitCount,
		"miss_count":  c.missCount,
		"hit_ratio":   hitRatio,
		"ttl_seconds": c.ttl.Seconds(),
	}
}

func (c *ResultCache) evictOldest() {
	var oldestKey Key
	var oldestTime time.Time
	found := false

	for key, entry := range c.entries {
		if !found || entry.CachedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.CachedAt
			found = true
		}
	}

	if found {
		delete(c.entries, oldestKey)
	}
}

// Stop ends the expiry sweep. It is safe to call more than once.
func (c *ResultCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *ResultCache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired(time.Now())
		case <-c.stopChan:
			return
		}
	}
}

func (c *ResultCache) removeExpired(now time.Time) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func sweepInterval(ttl time.Duration) time.Duration {
	const maxInterval = 5 * time.Minute
	if ttl <= 0 || ttl > maxInterval {
		return maxInterval
	}
	return ttl
}
