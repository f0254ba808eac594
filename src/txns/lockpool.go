package txns

import (
	"container/list"
	"sync"
	"time"

	"github.com/Blackdeer1524/HeapDB/src/pkg/assert"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
)

// DefaultProbeTimeout makes the eviction probe a single attempt.
const DefaultProbeTimeout time.Duration = 0

type poolEntry struct {
	lock *PageLock
	pins int
}

// LockPool maps page identities to their PageLock. The same lock object is
// returned for a page until the entry is evicted, and an entry is evicted
// only when it is unpinned and nobody holds it. The capacity is a soft bound:
// when every candidate is in use the pool grows past it.
type LockPool struct {
	capacity     int
	probeTimeout time.Duration

	mu      sync.Mutex
	lru     *list.List // front is newest
	entries map[common.PageIdentity]*list.Element
}

func NewLockPool(capacity int, probeTimeout time.Duration) *LockPool {
	assert.Assert(capacity > 0, "lock pool capacity must be positive, got %d", capacity)

	return &LockPool{
		capacity:     capacity,
		probeTimeout: probeTimeout,
		lru:          list.New(),
		entries:      make(map[common.PageIdentity]*list.Element),
	}
}

// Get returns the lock for pid, creating it if needed. The returned lock may
// be evicted as soon as nobody holds it, so callers about to acquire it
// should use Pin instead.
func (p *LockPool) Get(pid common.PageIdentity) *PageLock {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.touch(pid).lock
}

// Pin returns the lock for pid and protects it from eviction until the
// matching Unpin.
func (p *LockPool) Pin(pid common.PageIdentity) *PageLock {
	p.mu.Lock()
	defer p.mu.Unlock()

	e := p.touch(pid)
	e.pins++
	return e.lock
}

func (p *LockPool) Unpin(pid common.PageIdentity) {
	p.mu.Lock()
	defer p.mu.Unlock()

	elem, ok := p.entries[pid]
	assert.Assert(ok, "unpin of unknown lock %s", pid)

	e := elem.Value.(*poolEntry)
	assert.Assert(e.pins > 0, "unpin of unpinned lock %s", pid)
	e.pins--
}

// Remove drops the entry for pid regardless of its holders. Unsafe: current
// holders keep a lock object the pool no longer hands out.
func (p *LockPool) Remove(pid common.PageIdentity) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if elem, ok := p.entries[pid]; ok {
		p.lru.Remove(elem)
		delete(p.entries, pid)
	}
}

func (p *LockPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.entries)
}

func (p *LockPool) touch(pid common.PageIdentity) *poolEntry {
	if elem, ok := p.entries[pid]; ok {
		p.lru.MoveToFront(elem)
		return elem.Value.(*poolEntry)
	}

	e := &poolEntry{lock: NewPageLock(pid)}
	p.entries[pid] = p.lru.PushFront(e)
	p.evict()
	return e
}

// evict probes entries oldest first, skipping the newest one, until the pool
// is back within capacity or no candidate could be freed.
func (p *LockPool) evict() {
	elem := p.lru.Back()
	for len(p.entries) > p.capacity && elem != nil && elem != p.lru.Front() {
		prev := elem.Prev()

		e := elem.Value.(*poolEntry)
		if e.pins == 0 && e.lock.TryWriteLock(common.EvictionTxnID, p.probeTimeout) {
			p.lru.Remove(elem)
			delete(p.entries, e.lock.PageID())
		}

		elem = prev
	}
}
