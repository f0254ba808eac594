package bufferpool

import (
	"container/list"

	"github.com/go-faster/errors"

	"github.com/Blackdeer1524/HeapDB/src/pkg/assert"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/storage/page"
)

// VictimPolicy chooses which page leaves an over-full cache. candidates are
// ordered oldest first and never include the page that was just inserted.
type VictimPolicy func(candidates []*page.HeapPage) (common.PageIdentity, error)

// CleanFirstLRU evicts the least recently used clean page. Dirty pages belong
// to uncommitted transactions and are never written out early, so a cache
// full of them is exhausted.
func CleanFirstLRU(candidates []*page.HeapPage) (common.PageIdentity, error) {
	for _, p := range candidates {
		if _, dirty := p.IsDirty(); !dirty {
			return p.ID(), nil
		}
	}
	return common.PageIdentity{}, errors.Wrapf(
		common.ErrCacheExhausted, "%d candidates", len(candidates),
	)
}

// LRUCache maps page identities to cached pages in recency order. It is not
// safe for concurrent use.
type LRUCache struct {
	capacity int
	policy   VictimPolicy

	lru     *list.List // front is newest
	entries map[common.PageIdentity]*list.Element
}

func NewLRUCache(capacity int, policy VictimPolicy) *LRUCache {
	assert.Assert(capacity > 0, "cache capacity must be positive, got %d", capacity)

	return &LRUCache{
		capacity: capacity,
		policy:   policy,
		lru:      list.New(),
		entries:  make(map[common.PageIdentity]*list.Element),
	}
}

// Get returns the cached page and marks it most recently used.
func (c *LRUCache) Get(pid common.PageIdentity) (*page.HeapPage, bool) {
	elem, ok := c.entries[pid]
	if !ok {
		return nil, false
	}
	c.lru.MoveToFront(elem)
	return elem.Value.(*page.HeapPage), true
}

// Peek returns the cached page without touching recency.
func (c *LRUCache) Peek(pid common.PageIdentity) (*page.HeapPage, bool) {
	elem, ok := c.entries[pid]
	if !ok {
		return nil, false
	}
	return elem.Value.(*page.HeapPage), true
}

// Put inserts or replaces p as the most recently used page and evicts until
// the cache is back within capacity. When the policy finds no victim the
// cache is left over capacity and the policy's error is returned along with
// whatever was evicted before it gave up.
func (c *LRUCache) Put(p *page.HeapPage) ([]common.PageIdentity, error) {
	if elem, ok := c.entries[p.ID()]; ok {
		elem.Value = p
		c.lru.MoveToFront(elem)
	} else {
		c.entries[p.ID()] = c.lru.PushFront(p)
	}

	var evicted []common.PageIdentity
	for len(c.entries) > c.capacity {
		victim, err := c.policy(c.candidates())
		if err != nil {
			return evicted, err
		}
		assert.Assert(victim != p.ID(), "policy evicted the page being inserted")

		c.Remove(victim)
		evicted = append(evicted, victim)
	}
	return evicted, nil
}

func (c *LRUCache) candidates() []*page.HeapPage {
	pages := make([]*page.HeapPage, 0, len(c.entries)-1)
	for elem := c.lru.Back(); elem != nil && elem != c.lru.Front(); elem = elem.Prev() {
		pages = append(pages, elem.Value.(*page.HeapPage))
	}
	return pages
}

func (c *LRUCache) Remove(pid common.PageIdentity) {
	if elem, ok := c.entries[pid]; ok {
		c.lru.Remove(elem)
		delete(c.entries, pid)
	}
}

func (c *LRUCache) Len() int {
	return len(c.entries)
}

// Pages lists cached pages oldest first.
func (c *LRUCache) Pages() []*page.HeapPage {
	pages := make([]*page.HeapPage, 0, len(c.entries))
	for elem := c.lru.Back(); elem != nil; elem = elem.Prev() {
		pages = append(pages, elem.Value.(*page.HeapPage))
	}
	return pages
}
