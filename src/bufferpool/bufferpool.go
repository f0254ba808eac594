package bufferpool

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/multierr"

	"github.com/Blackdeer1524/HeapDB/src"
	"github.com/Blackdeer1524/HeapDB/src/pkg/assert"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/recovery"
	"github.com/Blackdeer1524/HeapDB/src/storage"
	"github.com/Blackdeer1524/HeapDB/src/storage/page"
	"github.com/Blackdeer1524/HeapDB/src/storage/tuple"
	"github.com/Blackdeer1524/HeapDB/src/txns"
)

// Manager caches pages and hands them out under strict two-phase locking.
// Every lock a transaction takes is kept until TransactionComplete. Pages a
// transaction modified stay in memory until it commits (no steal) and are
// written out at commit (force).
type Manager struct {
	catalog     storage.Catalog
	logger      src.Logger
	txnLog      recovery.TxnLogger
	lockTimeout time.Duration
	locks       *txns.LockPool
	metrics     metrics

	cacheMu sync.Mutex
	cache   *LRUCache

	heldMu sync.Mutex
	held   map[common.TxnID]map[common.PageIdentity]struct{}
}

var _ storage.BufferPool = &Manager{}

func New(
	numPages int,
	catalog storage.Catalog,
	logger src.Logger,
	opts ...Option,
) (*Manager, error) {
	assert.Assert(numPages > 0, "buffer pool size must be positive, got %d", numPages)

	o := defaultOptions(numPages)
	for _, opt := range opts {
		opt(&o)
	}

	m, err := newMetrics(o.meter)
	if err != nil {
		return nil, err
	}

	return &Manager{
		catalog:     catalog,
		logger:      logger,
		txnLog:      o.txnLog,
		lockTimeout: o.lockTimeout,
		locks:       txns.NewLockPool(o.lockPoolCapacity, o.probeTimeout),
		metrics:     m,
		cache:       NewLRUCache(numPages, o.policy),
		held:        make(map[common.TxnID]map[common.PageIdentity]struct{}),
	}, nil
}

// GetPage returns the cached page for pid, reading it from its relation file
// on a miss, after locking it for tid with the requested permissions. A lock
// wait longer than the configured timeout fails with common.ErrTxnAborted.
func (m *Manager) GetPage(
	tid common.TxnID,
	pid common.PageIdentity,
	perm common.Permissions,
) (*page.HeapPage, error) {
	for {
		p, err := m.fetch(pid)
		if err != nil {
			return nil, err
		}

		if err := m.LockPage(tid, pid, perm); err != nil {
			return nil, err
		}

		// the page may have been evicted and reloaded while we waited
		if m.isCached(p) {
			return p, nil
		}
	}
}

func (m *Manager) fetch(pid common.PageIdentity) (*page.HeapPage, error) {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()

	if p, ok := m.cache.Get(pid); ok {
		inc(m.metrics.hits, 1)
		return p, nil
	}
	inc(m.metrics.misses, 1)

	file, err := m.catalog.GetDatabaseFile(pid.TableID)
	if err != nil {
		return nil, err
	}
	p, err := file.ReadPage(pid)
	if err != nil {
		return nil, errors.Wrapf(err, "load page %s", pid)
	}

	if err := m.putLocked(p); err != nil {
		// the fresh page is clean so dropping it restores the previous state
		m.cache.Remove(pid)
		return nil, err
	}
	return p, nil
}

func (m *Manager) isCached(p *page.HeapPage) bool {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()

	cached, ok := m.cache.Peek(p.ID())
	return ok && cached == p
}

func (m *Manager) putLocked(p *page.HeapPage) error {
	evicted, err := m.cache.Put(p)
	inc(m.metrics.evictions, len(evicted))
	for _, pid := range evicted {
		m.logger.Debugw("evicted page", "page", pid)
	}
	if err != nil {
		m.logger.Errorw("buffer pool exhausted", "cached", m.cache.Len(), "error", err)
	}
	return err
}

// LockPage acquires the page lock without touching the cache. A transaction
// asking for write access gives up its own read lock first, so two readers
// racing to upgrade end in a timeout rather than a stall on each other's read.
func (m *Manager) LockPage(
	tid common.TxnID,
	pid common.PageIdentity,
	perm common.Permissions,
) error {
	lock := m.locks.Pin(pid)
	defer m.locks.Unpin(pid)

	var ok bool
	switch perm {
	case common.ReadOnly:
		ok = lock.TryReadLock(tid, m.lockTimeout)
	case common.ReadWrite:
		if lock.HasReadLock(tid) {
			lock.ReadUnlock(tid)
		}
		ok = lock.TryWriteLock(tid, m.lockTimeout)
	default:
		assert.Unreachable()
	}

	if !ok {
		inc(m.metrics.lockTimeouts, 1)
		m.logger.Debugw("lock wait timed out", "txn", tid, "page", pid, "perm", perm)
		return errors.Wrapf(
			common.ErrTxnAborted,
			"%s waited %s for %s on page %s", tid, m.lockTimeout, perm, pid,
		)
	}

	m.track(tid, pid)
	return nil
}

func (m *Manager) track(tid common.TxnID, pid common.PageIdentity) {
	m.heldMu.Lock()
	defer m.heldMu.Unlock()

	pages, ok := m.held[tid]
	if !ok {
		pages = make(map[common.PageIdentity]struct{})
		m.held[tid] = pages
	}
	pages[pid] = struct{}{}
}

func (m *Manager) untrack(tid common.TxnID, pid common.PageIdentity) {
	m.heldMu.Lock()
	defer m.heldMu.Unlock()

	if pages, ok := m.held[tid]; ok {
		delete(pages, pid)
		if len(pages) == 0 {
			delete(m.held, tid)
		}
	}
}

// heldPages lists the pages tid has locked in ascending order.
func (m *Manager) heldPages(tid common.TxnID) []common.PageIdentity {
	m.heldMu.Lock()
	defer m.heldMu.Unlock()

	pids := make([]common.PageIdentity, 0, len(m.held[tid]))
	for pid := range m.held[tid] {
		pids = append(pids, pid)
	}
	slices.SortFunc(pids, func(a, b common.PageIdentity) int {
		if c := cmp.Compare(a.TableID, b.TableID); c != 0 {
			return c
		}
		return cmp.Compare(a.PageNum, b.PageNum)
	})
	return pids
}

// ReleasePage gives up one mode of tid's lock on pid before the transaction
// ends. This breaks two-phase locking and is only safe for pages tid neither
// read nor wrote in a way that matters, such as a full page skipped by an
// insert.
func (m *Manager) ReleasePage(tid common.TxnID, pid common.PageIdentity, perm common.Permissions) {
	lock := m.locks.Get(pid)
	switch perm {
	case common.ReadOnly:
		if lock.HasReadLock(tid) {
			lock.ReadUnlock(tid)
		}
	case common.ReadWrite:
		if lock.HasWriteLock(tid) {
			lock.WriteUnlock(tid)
		}
	}

	if !lock.HasReadLock(tid) && !lock.HasWriteLock(tid) {
		m.untrack(tid, pid)
	}
}

// ReleasePageAll drops every lock tid holds on pid.
func (m *Manager) ReleasePageAll(tid common.TxnID, pid common.PageIdentity) {
	m.releaseLocks(tid, pid)
	m.untrack(tid, pid)
}

func (m *Manager) releaseLocks(tid common.TxnID, pid common.PageIdentity) {
	lock := m.locks.Get(pid)
	if lock.HasWriteLock(tid) {
		lock.WriteUnlock(tid)
	}
	if lock.HasReadLock(tid) {
		lock.ReadUnlock(tid)
	}
}

// DowngradePage turns tid's write lock on pid into a read lock.
func (m *Manager) DowngradePage(tid common.TxnID, pid common.PageIdentity) {
	m.locks.Get(pid).Downgrade(tid)
}

func (m *Manager) HoldsLock(tid common.TxnID, pid common.PageIdentity) bool {
	lock := m.locks.Get(pid)
	return lock.HasReadLock(tid) || lock.HasWriteLock(tid)
}

func (m *Manager) LockOf(pid common.PageIdentity) txns.LockSnapshot {
	return m.locks.Get(pid).Snapshot()
}

// PageLockOf returns the lock state of pid if tid holds it in any mode.
func (m *Manager) PageLockOf(tid common.TxnID, pid common.PageIdentity) (txns.LockSnapshot, bool) {
	snap := m.LockOf(pid)
	return snap, snap.Holds(tid)
}

// InsertTuple adds t to the table on behalf of tid. Every page the insert
// touched is marked dirty and put back into the cache as most recently used.
func (m *Manager) InsertTuple(tid common.TxnID, tableID common.TableID, t *tuple.Tuple) error {
	file, err := m.catalog.GetDatabaseFile(tableID)
	if err != nil {
		return err
	}

	pages, err := file.InsertTuple(tid, t)
	if err != nil {
		return err
	}
	return m.markDirty(tid, pages)
}

// DeleteTuple removes t from the table its record id points at.
func (m *Manager) DeleteTuple(tid common.TxnID, t *tuple.Tuple) error {
	rid, ok := t.RecordID().Get()
	if !ok {
		return errors.Wrap(common.ErrTupleNotFound, "tuple has no record id")
	}

	file, err := m.catalog.GetDatabaseFile(rid.TableID)
	if err != nil {
		return err
	}

	pages, err := file.DeleteTuple(tid, t)
	if err != nil {
		return err
	}
	return m.markDirty(tid, pages)
}

func (m *Manager) markDirty(tid common.TxnID, pages []*page.HeapPage) error {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()

	for _, p := range pages {
		p.MarkDirty(true, tid)
		if err := m.putLocked(p); err != nil {
			return err
		}
	}
	return nil
}

// TransactionComplete ends tid. On commit every page tid dirtied is logged
// and written to disk and every page tid touched takes its current contents
// as the new before-image. On abort, or when the commit flush fails, the
// dirty pages are dropped from the cache so the next reader sees the disk
// copy. All of tid's locks are released either way.
func (m *Manager) TransactionComplete(tid common.TxnID, commit bool) error {
	pids := m.heldPages(tid)

	var err error
	if commit {
		err = m.flushPages(tid, pids)
		if err == nil {
			m.refreshBeforeImages(pids)
		}
	}
	if !commit || err != nil {
		m.discardDirty(tid, pids)
	}

	if cl, ok := m.txnLog.(recovery.CompletionLogger); ok {
		if logErr := cl.LogCompletion(tid, commit && err == nil); logErr != nil {
			err = multierr.Append(err, logErr)
		}
	}

	for _, pid := range pids {
		m.releaseLocks(tid, pid)
	}

	m.heldMu.Lock()
	delete(m.held, tid)
	m.heldMu.Unlock()

	m.logger.Debugw("transaction complete", "txn", tid, "commit", commit, "pages", len(pids), "error", err)
	return err
}

func (m *Manager) flushPages(tid common.TxnID, pids []common.PageIdentity) error {
	for _, pid := range pids {
		p, ok := m.cached(pid)
		if !ok {
			continue
		}
		if dirtier, dirty := p.IsDirty(); !dirty || dirtier != tid {
			continue
		}
		if err := m.flushPage(p); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) refreshBeforeImages(pids []common.PageIdentity) {
	for _, pid := range pids {
		if p, ok := m.cached(pid); ok {
			p.SetBeforeImage()
		}
	}
}

func (m *Manager) discardDirty(tid common.TxnID, pids []common.PageIdentity) {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()

	for _, pid := range pids {
		p, ok := m.cache.Peek(pid)
		if !ok {
			continue
		}
		if dirtier, dirty := p.IsDirty(); dirty && dirtier == tid {
			m.cache.Remove(pid)
		}
	}
}

func (m *Manager) cached(pid common.PageIdentity) (*page.HeapPage, bool) {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()

	return m.cache.Peek(pid)
}

// flushPage logs the change, forces the log and then writes the page. The
// log record is durable before the page is.
func (m *Manager) flushPage(p *page.HeapPage) error {
	dirtier, dirty := p.IsDirty()
	if !dirty {
		return nil
	}

	before, err := p.BeforeImage()
	if err != nil {
		return errors.Wrapf(err, "before image of %s", p.ID())
	}
	if err := m.txnLog.LogWrite(dirtier, before, p); err != nil {
		return err
	}
	if err := m.txnLog.Force(); err != nil {
		return errors.Wrap(err, "force log")
	}

	file, err := m.catalog.GetDatabaseFile(p.ID().TableID)
	if err != nil {
		return err
	}
	if err := file.WritePage(p); err != nil {
		return errors.Wrapf(err, "flush page %s", p.ID())
	}

	p.MarkDirty(false, common.NilTxnID)
	return nil
}

// FlushPages writes every page tid dirtied without ending the transaction.
func (m *Manager) FlushPages(tid common.TxnID) error {
	return m.flushPages(tid, m.heldPages(tid))
}

// FlushAllPages writes out every dirty page in the cache, including pages of
// running transactions. Meant for shutdown and tests.
func (m *Manager) FlushAllPages() error {
	m.cacheMu.Lock()
	pages := m.cache.Pages()
	m.cacheMu.Unlock()

	for _, p := range pages {
		if err := m.flushPage(p); err != nil {
			return err
		}
	}
	return nil
}

// DiscardPage drops pid from the cache without writing it.
func (m *Manager) DiscardPage(pid common.PageIdentity) {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()

	m.cache.Remove(pid)
}

// CachedPages reports how many pages are resident.
func (m *Manager) CachedPages() int {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()

	return m.cache.Len()
}
