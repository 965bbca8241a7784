// Package cache provides an LRU cache of rendered charts with disk persistence.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Entry is one cached chart with metadata.
type Entry struct {
	Key        string    `msgpack:"key" json:"key"`
	File       string    `msgpack:"file" json:"file"`
	Format     string    `msgpack:"format" json:"format"`
	Chart      string    `msgpack:"chart" json:"chart"`
	Functions  []string  `msgpack:"functions" json:"functions"`
	CreatedAt  time.Time `msgpack:"created_at" json:"created_at"`
	AccessedAt time.Time `msgpack:"accessed_at" json:"accessed_at"`
	Size       int       `msgpack:"size" json:"size"` // bytes of Chart
}

// Key derives a cache key from source bytes and a fingerprint of everything
// else that influences the rendered chart (options, output format).
func Key(source []byte, fingerprint ...string) string {
	h := sha256.New()
	h.Write(source)
	for _, part := range fingerprint {
		h.Write([]byte{0})
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// listItem is an item in the doubly-linked list.
type listItem struct {
	Entry
	prev *listItem
	next *listItem
}

// list is a doubly-linked list with the most recently used item at head.
type list struct {
	head *listItem
	tail *listItem
	len  int
}

func (l *list) pushFront(item *listItem) {
	item.next = l.head
	item.prev = nil
	if l.head != nil {
		l.head.prev = item
	}
	l.head = item
	if l.tail == nil {
		l.tail = item
	}
	l.len++
}

func (l *list) remove(item *listItem) {
	if item.prev != nil {
		item.prev.next = item.next
	} else {
		l.head = item.next
	}
	if item.next != nil {
		item.next.prev = item.prev
	} else {
		l.tail = item.prev
	}
	item.prev, item.next = nil, nil
	l.len--
}

func (l *list) moveToFront(item *listItem) {
	if item == l.head {
		return
	}
	l.remove(item)
	l.pushFront(item)
}

// removeBack removes and returns the least recently used item.
func (l *list) removeBack() *listItem {
	item := l.tail
	if item == nil {
		return nil
	}
	l.remove(item)
	return item
}

// Options configures a ChartCache.
type Options struct {
	// MaxEntries is the maximum number of charts. 0 means unlimited.
	MaxEntries int

	// MaxBytes is the approximate maximum size of all charts. 0 means unlimited.
	MaxBytes int64

	// OnEvict is called when an entry is evicted to make room.
	OnEvict func(Entry)
}

// ChartCache is an in-memory LRU cache of rendered charts. It is safe for
// concurrent use.
type ChartCache struct {
	mu           sync.Mutex
	items        map[string]*listItem
	lru          *list
	maxEntries   int
	maxBytes     int64
	currentBytes int64
	onEvict      func(Entry)

	hits   int64
	misses int64
}

// New creates an empty ChartCache.
func New(opts Options) *ChartCache {
	return &ChartCache{
		items:      make(map[string]*listItem),
		lru:        &list{},
		maxEntries: opts.MaxEntries,
		maxBytes:   opts.MaxBytes,
		onEvict:    opts.OnEvict,
	}
}

// Get returns the entry for key and marks it as most recently used.
func (c *ChartCache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[key]
	if !found {
		c.misses++
		return Entry{}, false
	}

	c.hits++
	item.AccessedAt = time.Now()
	c.lru.moveToFront(item)
	return item.Entry, true
}

// Put stores e under key, replacing any previous entry. Key, timestamps and
// size are filled in by the cache.
func (c *ChartCache) Put(key string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	e.Key = key
	e.Size = len(e.Chart)
	e.AccessedAt = now

	if item, exists := c.items[key]; exists {
		c.currentBytes -= int64(item.Size)
		e.CreatedAt = item.CreatedAt
		item.Entry = e
		c.currentBytes += int64(e.Size)
		c.lru.moveToFront(item)
		c.evictIfNeeded()
		return
	}

	e.CreatedAt = now
	item := &listItem{Entry: e}
	c.items[key] = item
	c.lru.pushFront(item)
	c.currentBytes += int64(e.Size)
	c.evictIfNeeded()
}

// Delete removes key from the cache.
func (c *ChartCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[key]
	if !found {
		return
	}
	c.lru.remove(item)
	delete(c.items, key)
	c.currentBytes -= int64(item.Size)
}

// Clear removes all entries. Statistics are kept.
func (c *ChartCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *ChartCache) reset() {
	c.items = make(map[string]*listItem)
	c.lru = &list{}
	c.currentBytes = 0
}

// Len returns the number of entries.
func (c *ChartCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Entries returns all entries, most recently used first.
func (c *ChartCache) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries()
}

func (c *ChartCache) entries() []Entry {
	out := make([]Entry, 0, c.lru.len)
	for item := c.lru.head; item != nil; item = item.next {
		out = append(out, item.Entry)
	}
	return out
}

func (c *ChartCache) evictIfNeeded() {
	for c.shouldEvict() {
		item := c.lru.removeBack()
		if item == nil {
			break
		}
		delete(c.items, item.Key)
		c.currentBytes -= int64(item.Size)
		if c.onEvict != nil {
			c.onEvict(item.Entry)
		}
	}
}

func (c *ChartCache) shouldEvict() bool {
	if c.maxEntries > 0 && c.lru.len > c.maxEntries {
		return true
	}
	if c.maxBytes > 0 && c.currentBytes > c.maxBytes && c.lru.len > 1 {
		return true
	}
	return false
}

// Stats are cache statistics.
type Stats struct {
	Length       int     `json:"length"`
	CurrentBytes int64   `json:"current_bytes"`
	HitCount     int64   `json:"hit_count"`
	MissCount    int64   `json:"miss_count"`
	HitRate      float64 `json:"hit_rate"`
}

// Stats returns the current statistics.
func (c *ChartCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Length:       len(c.items),
		CurrentBytes: c.currentBytes,
		HitCount:     c.hits,
		MissCount:    c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// Save writes all entries to w using msgpack, most recently used first.
func (c *ChartCache) Save(w io.Writer) error {
	c.mu.Lock()
	entries := c.entries()
	c.mu.Unlock()

	return msgpack.NewEncoder(w).Encode(entries)
}

// Load replaces the cache contents with entries read from r. Recency order
// is preserved and limits are applied.
func (c *ChartCache) Load(r io.Reader) error {
	var entries []Entry
	if err := msgpack.NewDecoder(r).Decode(&entries); err != nil {
		return fmt.Errorf("failed to decode cache: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.reset()
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if _, dup := c.items[entry.Key]; dup {
			continue
		}
		item := &listItem{Entry: entry}
		c.items[entry.Key] = item
		c.lru.pushFront(item)
		c.currentBytes += int64(entry.Size)
	}
	c.evictIfNeeded()
	return nil
}

// PersistToFile saves the cache to path, creating parent directories.
func PersistToFile(c *ChartCache, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer f.Close()

	return c.Save(f)
}

// LoadFromFile loads the cache from path. A missing file is not an error.
func LoadFromFile(c *ChartCache, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer f.Close()

	return c.Load(f)
}
