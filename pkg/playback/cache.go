// Package playback caches synthesized speech and plays it with skip support.
package playback

import (
	"container/list"
	"sync"
	"time"

	"github.com/teslashibe/voicenav/pkg/audioio"
)

// Entry is one cached utterance.
type Entry struct {
	Text      string
	Buffer    audioio.Buffer
	CreatedAt time.Time
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Entries   int           `json:"entries"`
	Hits      int64         `json:"hits"`
	Misses    int64         `json:"misses"`
	Evictions int64         `json:"evictions"`
	Audio     time.Duration `json:"audio_ns"`
}

// Cache maps exact text to synthesized audio.
//
// Keys are compared byte for byte: "Done." and "Done" are different
// entries. With MaxEntries 0 the cache is unbounded, which suits a process
// that lives for one conversation; otherwise the least recently used entry
// is evicted.
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string]*list.Element
	order      *list.List // front = most recently used

	hits      int64
	misses    int64
	evictions int64
	audio     time.Duration
}

// NewCache creates a cache. maxEntries <= 0 means unbounded.
func NewCache(maxEntries int) *Cache {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &Cache{
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

// Get returns the audio cached for text.
func (c *Cache) Get(text string) (audioio.Buffer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[text]
	if !ok {
		c.misses++
		return audioio.Buffer{}, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*Entry).Buffer, true
}

// Put stores buf for text, replacing any previous entry.
func (c *Cache) Put(text string, buf audioio.Buffer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[text]; ok {
		e := el.Value.(*Entry)
		c.audio += buf.Duration() - e.Buffer.Duration()
		e.Buffer = buf
		e.CreatedAt = time.Now()
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&Entry{Text: text, Buffer: buf, CreatedAt: time.Now()})
	c.entries[text] = el
	c.audio += buf.Duration()

	for c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		e := c.order.Remove(oldest).(*Entry)
		delete(c.entries, e.Text)
		c.audio -= e.Buffer.Duration()
		c.evictions++
	}
}

// Entry returns the full entry for text without counting a hit.
func (c *Cache) Entry(text string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[text]
	if !ok {
		return Entry{}, false
	}
	return *el.Value.(*Entry), true
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear drops every entry. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.audio = 0
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Entries:   c.order.Len(),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Audio:     c.audio,
	}
}
