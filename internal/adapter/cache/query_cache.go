package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// QueryCache is an LRU of retrieval results. An entry is only served while
// the store generation it was computed against is still current.
type QueryCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	results   []domain.ScoredRecord
	timestamp time.Time
	gen       uint64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func cacheKey(question string, topK int) string {
	data := []byte(strings.TrimSpace(question))
	data = binary.BigEndian.AppendUint32(data, uint32(topK))
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

// Get returns cached results for (question, topK) computed at generation gen.
func (c *QueryCache) Get(question string, topK int, gen uint64) ([]domain.ScoredRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(question, topK)
	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	if c.now().Sub(entry.timestamp) > c.ttl || entry.gen != gen {
		delete(c.entries, key)
		c.removeFromOrder(key)
		return nil, false
	}

	c.moveToEnd(key)
	return entry.results, true
}

func (c *QueryCache) Put(question string, topK int, gen uint64, results []domain.ScoredRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(question, topK)
	entry := &cacheEntry{
		results:   results,
		timestamp: c.now(),
		gen:       gen,
	}

	if _, exists := c.entries[key]; exists {
		c.entries[key] = entry
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = entry
	c.order = append(c.order, key)
}

func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
}

func (c *QueryCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *QueryCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *QueryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *QueryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Generationer reports the current contents version of a store.
type Generationer interface {
	Generation() uint64
}

// CachedRetriever memoises a Retriever until the store changes.
type CachedRetriever struct {
	retriever port.Retriever
	store     Generationer
	cache     *QueryCache
}

var _ port.Retriever = (*CachedRetriever)(nil)

func NewCachedRetriever(retriever port.Retriever, store Generationer, cache *QueryCache) *CachedRetriever {
	return &CachedRetriever{
		retriever: retriever,
		store:     store,
		cache:     cache,
	}
}

func (r *CachedRetriever) Retrieve(ctx context.Context, question string, k int) ([]domain.ScoredRecord, error) {
	gen := r.store.Generation()
	if results, hit := r.cache.Get(question, k, gen); hit {
		return results, nil
	}

	results, err := r.retriever.Retrieve(ctx, question, k)
	if err != nil {
		return nil, err
	}

	r.cache.Put(question, k, gen, results)
	return results, nil
}
