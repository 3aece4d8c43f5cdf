package buffer

import (
	"fmt"
	"sync"
)

func NewLrukReplacer(capacity, k int) *lrukReplacer {
	return &lrukReplacer{
		k:            k,
		nodeStore:    map[int64]*lrukNode{},
		replacerSize: capacity,
	}
}

// recordAccess registers an access to pageId, tracking the page if it is new.
func (lru *lrukReplacer) recordAccess(pageId int64) error {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	node, ok := lru.nodeStore[pageId]
	if !ok {
		if len(lru.nodeStore) >= lru.replacerSize {
			return fmt.Errorf("replacer is full, cannot track page %d", pageId)
		}
		node = newLrukNode(pageId, lru.k)
		lru.nodeStore[pageId] = node
	}

	lru.currTimestamp++
	node.touch(lru.currTimestamp)
	return nil
}

func (lru *lrukReplacer) setEvictable(pageId int64, evictable bool) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	node, ok := lru.nodeStore[pageId]
	if !ok || node.isEvictable == evictable {
		return
	}

	node.isEvictable = evictable
	if evictable {
		lru.currSize++
	} else {
		lru.currSize--
	}
}

// evict picks the evictable page with the largest backward k-distance. Pages
// with fewer than k accesses count as infinitely distant and among them the one
// accessed earliest goes first. It returns INVALID_PAGE_ID when nothing can be evicted.
func (lru *lrukReplacer) evict() (int64, error) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	var victim *lrukNode
	for _, node := range lru.nodeStore {
		if !node.isEvictable {
			continue
		}
		if victim == nil || node.evictsBefore(victim) {
			victim = node
		}
	}

	if victim == nil {
		return INVALID_PAGE_ID, nil
	}

	delete(lru.nodeStore, victim.pageId)
	lru.currSize--
	return victim.pageId, nil
}

func (lru *lrukReplacer) remove(pageId int64) error {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	node, ok := lru.nodeStore[pageId]
	if !ok {
		return nil
	}

	if !node.isEvictable {
		return fmt.Errorf("removing non-evictable page %d", pageId)
	}

	delete(lru.nodeStore, pageId)
	lru.currSize--
	return nil
}

func (lru *lrukReplacer) size() int {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	return lru.currSize
}

type lrukReplacer struct {
	mu            sync.Mutex
	nodeStore     map[int64]*lrukNode
	replacerSize  int
	currSize      int
	currTimestamp uint64
	k             int
}
