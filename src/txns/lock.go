package txns

import (
	"slices"
	"sync"
	"time"

	"github.com/Blackdeer1524/HeapDB/src/pkg/assert"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
)

// PageLock is a reentrant reader/writer lock owned by transactions rather
// than goroutines. While readers hold it the writer slot carries
// common.ReaderCohortTxnID. A reader is never upgraded implicitly: a
// transaction that holds the read lock and asks for the write lock waits
// like any other writer.
type PageLock struct {
	pid common.PageIdentity

	mu      sync.Mutex
	cond    *sync.Cond
	readers map[common.TxnID]struct{}
	writer  common.TxnID
}

func NewPageLock(pid common.PageIdentity) *PageLock {
	l := &PageLock{
		pid:     pid,
		readers: make(map[common.TxnID]struct{}),
		writer:  common.NilTxnID,
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *PageLock) PageID() common.PageIdentity {
	return l.pid
}

// TryReadLock acquires the lock in shared mode. A negative timeout waits
// forever, zero makes a single attempt. The current writer already has read
// access and is granted immediately without joining the reader set.
func (l *PageLock) TryReadLock(tid common.TxnID, timeout time.Duration) bool {
	return l.acquire(timeout, func() bool {
		if l.writer == tid {
			return true
		}
		if _, ok := l.readers[tid]; ok {
			return true
		}
		if l.writer != common.NilTxnID && l.writer != common.ReaderCohortTxnID {
			return false
		}
		l.readers[tid] = struct{}{}
		l.writer = common.ReaderCohortTxnID
		return true
	})
}

// TryWriteLock acquires the lock in exclusive mode. Timeout semantics match
// TryReadLock.
func (l *PageLock) TryWriteLock(tid common.TxnID, timeout time.Duration) bool {
	return l.acquire(timeout, func() bool {
		if l.writer == tid {
			return true
		}
		if l.writer != common.NilTxnID {
			return false
		}
		l.writer = tid
		return true
	})
}

func (l *PageLock) ReadLock(tid common.TxnID) {
	l.TryReadLock(tid, -1)
}

func (l *PageLock) WriteLock(tid common.TxnID) {
	l.TryWriteLock(tid, -1)
}

func (l *PageLock) acquire(timeout time.Duration, grant func() bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if grant() {
		return true
	}
	if timeout == 0 {
		return false
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
		timer := time.AfterFunc(timeout, func() {
			l.mu.Lock()
			l.cond.Broadcast()
			l.mu.Unlock()
		})
		defer timer.Stop()
	}

	for {
		l.cond.Wait()
		if grant() {
			return true
		}
		if timeout > 0 && !time.Now().Before(deadline) {
			return false
		}
	}
}

// ReadUnlock panics if tid is not a reader.
func (l *PageLock) ReadUnlock(tid common.TxnID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.readers[tid]
	assert.Assert(ok, "%s releases a read lock on %s it does not hold", tid, l.pid)

	delete(l.readers, tid)
	if len(l.readers) == 0 && l.writer == common.ReaderCohortTxnID {
		l.writer = common.NilTxnID
	}
	l.cond.Broadcast()
}

// WriteUnlock panics if tid is not the writer.
func (l *PageLock) WriteUnlock(tid common.TxnID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	assert.Assert(
		l.writer == tid,
		"%s releases a write lock on %s held by %s", tid, l.pid, l.writer,
	)

	if len(l.readers) > 0 {
		l.writer = common.ReaderCohortTxnID
	} else {
		l.writer = common.NilTxnID
	}
	l.cond.Broadcast()
}

// Downgrade atomically turns tid's write lock into a read lock. No other
// writer can slip in between.
func (l *PageLock) Downgrade(tid common.TxnID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	assert.Assert(
		l.writer == tid,
		"%s downgrades a write lock on %s held by %s", tid, l.pid, l.writer,
	)

	l.readers[tid] = struct{}{}
	l.writer = common.ReaderCohortTxnID
	l.cond.Broadcast()
}

func (l *PageLock) HasReadLock(tid common.TxnID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.readers[tid]
	return ok
}

func (l *PageLock) HasWriteLock(tid common.TxnID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.writer == tid
}

func (l *PageLock) Snapshot() LockSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	readers := make([]common.TxnID, 0, len(l.readers))
	for tid := range l.readers {
		readers = append(readers, tid)
	}
	slices.Sort(readers)

	return LockSnapshot{
		writer:  l.writer,
		readers: readers,
	}
}

// LockSnapshot is an immutable copy of a lock's holders.
type LockSnapshot struct {
	writer  common.TxnID
	readers []common.TxnID
}

func (s LockSnapshot) Writer() common.TxnID {
	return s.writer
}

func (s LockSnapshot) Readers() []common.TxnID {
	return slices.Clone(s.readers)
}

func (s LockSnapshot) HasReadLock(tid common.TxnID) bool {
	_, found := slices.BinarySearch(s.readers, tid)
	return found
}

func (s LockSnapshot) HasWriteLock(tid common.TxnID) bool {
	return s.writer == tid
}

// Holds reports whether tid held the lock in any mode.
func (s LockSnapshot) Holds(tid common.TxnID) bool {
	return s.HasWriteLock(tid) || s.HasReadLock(tid)
}

func (s LockSnapshot) IsFree() bool {
	return s.writer == common.NilTxnID
}
