// Package cache implements the routing/response cache (spec.md §4.8): two
// logically separate fingerprint namespaces sharing one bounded-LRU +
// per-entry-TTL backing implementation, built on
// github.com/hashicorp/golang-lru/v2.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Entry is the payload stored per fingerprint, matching spec.md §3's
// CacheEntry: fingerprint -> (payload, createdAt, hitCount, lastHitAt).
type Entry struct {
	Payload   any
	CreatedAt time.Time
	ExpiresAt time.Time
	HitCount  int
	LastHitAt time.Time
}

// Stats is the per-namespace counter set returned by Stats.
type Stats struct {
	EntryCount int
	HitCount   int64
	MissCount  int64
}

func (s Stats) HitRate() float64 {
	total := s.HitCount + s.MissCount
	if total == 0 {
		return 0
	}
	return float64(s.HitCount) / float64(total)
}

const DefaultTTL = 24 * time.Hour

type namespaceCache struct {
	mu    sync.Mutex
	lru   *lru.Cache[string, Entry]
	hits  int64
	miss  int64
}

// Cache is the shared bounded-LRU-plus-TTL implementation backing both the
// router cache and the response cache namespaces (spec.md §9 "Cache
// design").
type Cache struct {
	mu         sync.Mutex
	namespaces map[string]*namespaceCache
	maxEntries int
}

// New returns a Cache whose per-namespace LRU holds at most maxEntries
// entries before evicting the least-recently-used one.
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = 10_000
	}
	return &Cache{namespaces: make(map[string]*namespaceCache), maxEntries: maxEntries}
}

func (c *Cache) ns(namespace string) *namespaceCache {
	c.mu.Lock()
	defer c.mu.Unlock()

	ns, ok := c.namespaces[namespace]
	if !ok {
		l, _ := lru.New[string, Entry](c.maxEntries)
		ns = &namespaceCache{lru: l}
		c.namespaces[namespace] = ns
	}
	return ns
}

// Get returns the cached value for fingerprint in namespace, if present and
// not expired. A hit increments the entry's HitCount/LastHitAt and the
// namespace's hit counter; a miss (absent or expired) increments the miss
// counter.
func (c *Cache) Get(namespace, fingerprint string) (any, bool) {
	ns := c.ns(namespace)

	ns.mu.Lock()
	defer ns.mu.Unlock()

	entry, ok := ns.lru.Get(fingerprint)
	if !ok || time.Now().After(entry.ExpiresAt) {
		ns.miss++
		if ok {
			ns.lru.Remove(fingerprint)
		}
		return nil, false
	}

	entry.HitCount++
	entry.LastHitAt = time.Now()
	ns.lru.Add(fingerprint, entry)
	ns.hits++
	return entry.Payload, true
}

// Put stores value under fingerprint in namespace with the given ttl; ttl
// <= 0 uses DefaultTTL.
func (c *Cache) Put(namespace, fingerprint string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	ns := c.ns(namespace)

	now := time.Now()
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.lru.Add(fingerprint, Entry{Payload: value, CreatedAt: now, ExpiresAt: now.Add(ttl)})
}

// Clear empties namespace, for the admin cache-clear channel (spec.md
// §4.8/§6).
func (c *Cache) Clear(namespace string) {
	ns := c.ns(namespace)
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.lru.Purge()
	ns.hits = 0
	ns.miss = 0
}

// Stats reports namespace's entry count and hit/miss counters.
func (c *Cache) Stats(namespace string) Stats {
	ns := c.ns(namespace)
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return Stats{EntryCount: ns.lru.Len(), HitCount: ns.hits, MissCount: ns.miss}
}

// Namespace constants, matching the key-value namespacing in spec.md §6.
const (
	NamespaceRouter = "router"
	NamespaceAgent  = "agent"
)

// Fingerprint computes a stable hash over the normalized prompt plus salt.
// Callers are responsible for excluding volatile context (time of day,
// presence snapshots) from prompt/salt before calling this (spec.md §4.8,
// §9 "Volatile context must not enter fingerprints").
func Fingerprint(normalizedPrompt string, salt ...string) string {
	h := sha256.New()
	h.Write([]byte(normalizedPrompt))
	for _, s := range salt {
		h.Write([]byte{0})
		h.Write([]byte(s))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizePrompt trims and collapses internal whitespace, matching the
// façade's step 1 (spec.md §4.7).
func NormalizePrompt(prompt string) string {
	fields := strings.Fields(prompt)
	return strings.Join(fields, " ")
}

// RouterSalt is the salt for the router-cache namespace (model id).
func RouterSalt(modelID string) string { return modelID }

// AgentSalt is the salt for the agent-response-cache namespace
// (agentId + model id).
func AgentSalt(agentID, modelID string) string { return agentID + ":" + modelID }
