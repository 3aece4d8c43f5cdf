package buffer

import (
	"fmt"
	"sync"

	"github.com/jobala/rstar/util"
)

const DEFAULT_LRUK_K = 2

// PageCache holds up to capacity decoded pages, evicting with LRU-K when full.
// A capacity of zero disables caching.
type PageCache[V any] struct {
	mu       sync.Mutex
	capacity int
	pages    map[int64]V
	replacer *lrukReplacer
}

func NewPageCache[V any](capacity int) *PageCache[V] {
	return &PageCache[V]{
		capacity: capacity,
		pages:    make(map[int64]V, capacity),
		replacer: NewLrukReplacer(capacity, DEFAULT_LRUK_K),
	}
}

func (c *PageCache[V]) Get(pageId int64) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.pages[pageId]
	if ok {
		c.mustRecord(pageId)
	}
	return v, ok
}

func (c *PageCache[V]) Put(pageId int64, v V) {
	if c.capacity <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pages[pageId]; !ok && len(c.pages) >= c.capacity {
		victim, _ := c.replacer.evict()
		if victim == INVALID_PAGE_ID {
			return
		}
		delete(c.pages, victim)
	}

	c.pages[pageId] = v
	c.mustRecord(pageId)
	c.replacer.setEvictable(pageId, true)
}

func (c *PageCache[V]) Invalidate(pageId int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pages[pageId]; !ok {
		return
	}
	delete(c.pages, pageId)
	if err := c.replacer.remove(pageId); err != nil {
		panic(util.NewInvariantError(fmt.Sprintf("page cache out of sync with replacer: %v", err)))
	}
}

// mustRecord notes an access to a cached page. The replacer tracks exactly the
// cached pages, so it always has room.
func (c *PageCache[V]) mustRecord(pageId int64) {
	if err := c.replacer.recordAccess(pageId); err != nil {
		panic(util.NewInvariantError(fmt.Sprintf("page cache out of sync with replacer: %v", err)))
	}
}

func (c *PageCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.pages)
}
