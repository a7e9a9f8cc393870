package hypercube

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/golang/snappy"
)

// resultCacheEntry is a single cached query result. The data block is stored
// as encoded bytes so a hit returns it verbatim, untouched by later callers.
type resultCacheEntry struct {
	key        string
	payload    []byte // JSON, snappy-compressed when compression is on
	compressed bool
	createdAt  time.Time
	expiresAt  time.Time
}

// ResultCache is a bounded LRU with per-entry TTL, keyed by the canonical
// query fingerprint. It is a process-wide shared resource; all operations
// take the cache mutex and never block on I/O. Hit and miss counters live
// under the same lock.
type ResultCache struct {
	mu          sync.Mutex
	config      CacheConfig
	entries     map[string]*resultCacheEntry
	accessOrder []string // oldest first, for LRU eviction

	hits   int64
	misses int64
}

// newResultCache creates a cache with the given bounds.
func newResultCache(cfg CacheConfig) *ResultCache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultCacheMaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	return &ResultCache{
		config:  cfg,
		entries: make(map[string]*resultCacheEntry),
	}
}

// Get returns the cached data block for a fingerprint. A hit decodes a
// fresh copy of the stored payload; the stored bytes are never aliased.
// Expired entries are removed and count as misses.
func (rc *ResultCache) Get(key string) (*QueryData, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	entry, ok := rc.entries[key]
	if !ok {
		rc.misses++
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		rc.removeLocked(key)
		rc.misses++
		return nil, false
	}

	data, err := decodePayload(entry)
	if err != nil {
		// A payload that no longer decodes is dropped rather than served.
		rc.removeLocked(key)
		rc.misses++
		return nil, false
	}
	rc.promoteLocked(key)
	rc.hits++
	return data, true
}

// Set stores a data block under a fingerprint, evicting least-recently-used
// entries to stay within capacity.
func (rc *ResultCache) Set(key string, data *QueryData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return newInternalError("encode cache entry", err)
	}
	entry := &resultCacheEntry{key: key, payload: raw}
	if rc.config.Compression {
		entry.payload = snappy.Encode(nil, raw)
		entry.compressed = true
	}
	now := time.Now()
	entry.createdAt = now
	entry.expiresAt = now.Add(rc.config.TTL)

	rc.mu.Lock()
	defer rc.mu.Unlock()

	if _, exists := rc.entries[key]; exists {
		// Concurrent computation of the same cold key: the second set
		// simply overwrites the first.
		rc.removeLocked(key)
	}
	for len(rc.entries) >= rc.config.MaxEntries {
		if !rc.evictOldestLocked() {
			break
		}
	}
	rc.entries[key] = entry
	rc.accessOrder = append(rc.accessOrder, key)
	return nil
}

// RemainingTTL returns the time until an entry expires.
func (rc *ResultCache) RemainingTTL(key string) (time.Duration, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	entry, ok := rc.entries[key]
	if !ok {
		return 0, false
	}
	remaining := time.Until(entry.expiresAt)
	if remaining < 0 {
		return 0, false
	}
	return remaining, true
}

// InvalidateCube evicts every entry whose fingerprint belongs to the cube
// and returns the eviction count.
func (rc *ResultCache) InvalidateCube(name string) int {
	prefix := name + "|"
	rc.mu.Lock()
	defer rc.mu.Unlock()

	var victims []string
	for key := range rc.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			victims = append(victims, key)
		}
	}
	for _, key := range victims {
		rc.removeLocked(key)
	}
	return len(victims)
}

// RevertMiss undoes one recorded miss. The engine calls it when a query
// fails after the cache lookup, so failed queries leave counters unchanged.
func (rc *ResultCache) RevertMiss() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.misses > 0 {
		rc.misses--
	}
}

// Stats returns a snapshot of the counters and current size.
func (rc *ResultCache) Stats() CacheStats {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return CacheStats{Hits: rc.hits, Misses: rc.misses, Size: len(rc.entries)}
}

func (rc *ResultCache) evictOldestLocked() bool {
	if len(rc.accessOrder) == 0 {
		return false
	}
	rc.removeLocked(rc.accessOrder[0])
	return true
}

func (rc *ResultCache) removeLocked(key string) {
	if _, ok := rc.entries[key]; !ok {
		return
	}
	delete(rc.entries, key)
	for i, k := range rc.accessOrder {
		if k == key {
			rc.accessOrder = append(rc.accessOrder[:i], rc.accessOrder[i+1:]...)
			break
		}
	}
}

func (rc *ResultCache) promoteLocked(key string) {
	for i, k := range rc.accessOrder {
		if k == key {
			rc.accessOrder = append(rc.accessOrder[:i], rc.accessOrder[i+1:]...)
			rc.accessOrder = append(rc.accessOrder, key)
			return
		}
	}
}

func decodePayload(entry *resultCacheEntry) (*QueryData, error) {
	raw := entry.payload
	if entry.compressed {
		decoded, err := snappy.Decode(nil, raw)
		if err != nil {
			return nil, err
		}
		raw = decoded
	}
	var data QueryData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
