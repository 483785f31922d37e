package cache

import (
	"container/list"
	"sync"
	"time"
)

// Config represents metadata cache configuration
type Config struct {
	// MaxEntries bounds the number of cached catalog replies. Zero
	// means unbounded.
	MaxEntries int `yaml:"max_entries"`

	// TTL is how long a cached reply stays valid. Zero disables
	// expiry.
	TTL time.Duration `yaml:"ttl"`
}

// Stats holds cache hit/miss counters
type Stats struct {
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	Entries   int     `json:"entries"`
	HitRate   float64 `json:"hit_rate"`
}

// entry is a cached catalog reply
type entry struct {
	lfn       string
	text      string
	timestamp time.Time
	element   *list.Element
}

// MetadataCache is a thread-safe LRU cache of catalog metadata replies
type MetadataCache struct {
	mu        sync.Mutex
	config    *Config
	items     map[string]*entry
	evictList *list.List

	stats Stats
}

// NewMetadataCache creates a metadata cache
func NewMetadataCache(config *Config) *MetadataCache {
	if config == nil {
		config = &Config{
			MaxEntries: 4096,
			TTL:        30 * time.Second,
		}
	}

	return &MetadataCache{
		config:    config,
		items:     make(map[string]*entry),
		evictList: list.New(),
	}
}

// Get returns the cached catalog reply for a logical file name. The
// second return value reports whether a live entry was found; expired
// entries are dropped on access.
func (c *MetadataCache) Get(lfn string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[lfn]
	if !exists {
		c.stats.Misses++
		c.updateHitRate()
		return "", false
	}

	if c.isExpired(item) {
		c.removeItem(item)
		c.stats.Misses++
		c.updateHitRate()
		return "", false
	}

	c.evictList.MoveToFront(item.element)
	c.stats.Hits++
	c.updateHitRate()
	return item.text, true
}

// Put stores a catalog reply for a logical file name
func (c *MetadataCache) Put(lfn, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, exists := c.items[lfn]; exists {
		item.text = text
		item.timestamp = time.Now()
		c.evictList.MoveToFront(item.element)
		return
	}

	item := &entry{
		lfn:       lfn,
		text:      text,
		timestamp: time.Now(),
	}
	item.element = c.evictList.PushFront(item)
	c.items[lfn] = item

	c.evictIfNeeded()
}

// Delete drops the cached reply for a logical file name. Callers use
// this after operations that change the catalog, such as uploads.
func (c *MetadataCache) Delete(lfn string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, exists := c.items[lfn]; exists {
		c.removeItem(item)
	}
}

// Clear drops every cached reply
func (c *MetadataCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*entry)
	c.evictList.Init()
}

// Len returns the number of live entries
func (c *MetadataCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a snapshot of cache statistics
func (c *MetadataCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Entries = len(c.items)
	return stats
}

// Helper methods

func (c *MetadataCache) isExpired(item *entry) bool {
	if c.config.TTL == 0 {
		return false
	}
	return time.Since(item.timestamp) > c.config.TTL
}

func (c *MetadataCache) removeItem(item *entry) {
	if item.element != nil {
		c.evictList.Remove(item.element)
	}
	delete(c.items, item.lfn)
	c.stats.Evictions++
}

func (c *MetadataCache) evictIfNeeded() {
	if c.config.MaxEntries <= 0 {
		return
	}

	for len(c.items) > c.config.MaxEntries && c.evictList.Len() > 0 {
		element := c.evictList.Back()
		if element == nil {
			return
		}
		c.removeItem(element.Value.(*entry))
	}
}

func (c *MetadataCache) updateHitRate() {
	total := c.stats.Hits + c.stats.Misses
	if total > 0 {
		c.stats.HitRate = float64(c.stats.Hits) / float64(total)
	}
}
