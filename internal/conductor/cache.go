package conductor

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"diagramgen/internal/domain"
)

// resultCache remembers completed results by request fingerprint so a
// repeated submission can finish without rendering or uploading again.
type resultCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

type cacheEntry struct {
	result  domain.JobResult
	expires time.Time
}

func newResultCache(ttl time.Duration, maxSize int) *resultCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &resultCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// fingerprint hashes the request fields that influence the artifact.
func fingerprint(req domain.DiagramRequest) string {
	// SessionID is tracking-only and must not split the cache.
	req.SessionID = ""
	raw, err := json.Marshal(req)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func (c *resultCache) Get(req domain.DiagramRequest) (domain.JobResult, bool) {
	if c == nil || c.ttl <= 0 {
		return domain.JobResult{}, false
	}
	key := fingerprint(req)
	if key == "" {
		return domain.JobResult{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return domain.JobResult{}, false
	}
	if c.now().After(entry.expires) {
		delete(c.entries, key)
		return domain.JobResult{}, false
	}
	return entry.result, true
}

func (c *resultCache) Put(req domain.DiagramRequest, result domain.JobResult) {
	if c == nil || c.ttl <= 0 {
		return
	}
	key := fingerprint(req)
	if key == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxSize {
		c.evictLocked()
	}
	c.entries[key] = cacheEntry{result: result, expires: c.now().Add(c.ttl)}
}

// evictLocked drops expired entries first, then the soonest-to-expire
// one if the cache is still full.
func (c *resultCache) evictLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expires) {
			delete(c.entries, key)
		}
	}
	if len(c.entries) < c.maxSize {
		return
	}
	var oldestKey string
	var oldest time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.expires.Before(oldest) {
			oldestKey = key
			oldest = entry.expires
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
