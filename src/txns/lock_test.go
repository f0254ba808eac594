package txns

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
)

var testPID = common.PageIdentity{TableID: 1, PageNum: 0}

func TestSharedReaders(t *testing.T) {
	l := NewPageLock(testPID)

	require.True(t, l.TryReadLock(1, 0))
	require.True(t, l.TryReadLock(2, 0))

	snap := l.Snapshot()
	assert.Equal(t, common.ReaderCohortTxnID, snap.Writer())
	assert.Equal(t, []common.TxnID{1, 2}, snap.Readers())

	require.False(t, l.TryWriteLock(3, 0))

	l.ReadUnlock(1)
	l.ReadUnlock(2)
	assert.True(t, l.Snapshot().IsFree())
	require.True(t, l.TryWriteLock(3, 0))
}

func TestReentrancy(t *testing.T) {
	l := NewPageLock(testPID)

	require.True(t, l.TryWriteLock(1, 0))
	require.True(t, l.TryWriteLock(1, 0))
	require.True(t, l.TryReadLock(1, 0), "writer already has read access")
	assert.False(t, l.HasReadLock(1), "writer does not join the reader set")

	// a single release undoes the reentrant acquisitions
	l.WriteUnlock(1)
	assert.True(t, l.Snapshot().IsFree())

	require.True(t, l.TryReadLock(2, 0))
	require.True(t, l.TryReadLock(2, 0))
	l.ReadUnlock(2)
	assert.True(t, l.Snapshot().IsFree())
}

func TestNoSilentUpgrade(t *testing.T) {
	l := NewPageLock(testPID)

	require.True(t, l.TryReadLock(1, 0))
	require.False(t, l.TryWriteLock(1, 20*time.Millisecond))
	assert.True(t, l.HasReadLock(1))
	assert.False(t, l.HasWriteLock(1))

	l.ReadUnlock(1)
	require.True(t, l.TryWriteLock(1, 0))
}

func TestTimeoutLeavesNoPhantomReader(t *testing.T) {
	l := NewPageLock(testPID)
	require.True(t, l.TryWriteLock(1, 0))

	start := time.Now()
	require.False(t, l.TryReadLock(2, 50*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	assert.False(t, l.HasReadLock(2))
	snap := l.Snapshot()
	assert.Empty(t, snap.Readers())
	assert.Equal(t, common.TxnID(1), snap.Writer())

	l.WriteUnlock(1)
	assert.True(t, l.Snapshot().IsFree())
}

func TestWaiterIsWokenByRelease(t *testing.T) {
	l := NewPageLock(testPID)
	require.True(t, l.TryWriteLock(1, 0))

	acquired := make(chan bool)
	go func() {
		acquired <- l.TryWriteLock(2, 5*time.Second)
	}()

	time.Sleep(10 * time.Millisecond)
	l.WriteUnlock(1)

	select {
	case ok := <-acquired:
		require.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken")
	}
	assert.True(t, l.HasWriteLock(2))
}

func TestDowngrade(t *testing.T) {
	l := NewPageLock(testPID)
	require.True(t, l.TryWriteLock(1, 0))

	l.Downgrade(1)
	assert.True(t, l.HasReadLock(1))
	assert.False(t, l.HasWriteLock(1))

	require.True(t, l.TryReadLock(2, 0), "other readers may join")
	require.False(t, l.TryWriteLock(3, 0))

	l.ReadUnlock(1)
	l.ReadUnlock(2)
	assert.True(t, l.Snapshot().IsFree())
}

func TestIllegalUnlockPanics(t *testing.T) {
	l := NewPageLock(testPID)

	assert.Panics(t, func() { l.ReadUnlock(1) })
	assert.Panics(t, func() { l.WriteUnlock(1) })
	assert.Panics(t, func() { l.Downgrade(1) })

	require.True(t, l.TryReadLock(1, 0))
	assert.Panics(t, func() { l.WriteUnlock(1) }, "reader cannot release write")
}

func TestSnapshotIsDetached(t *testing.T) {
	l := NewPageLock(testPID)
	require.True(t, l.TryReadLock(1, 0))

	snap := l.Snapshot()
	l.ReadUnlock(1)
	require.True(t, l.TryWriteLock(2, 0))

	assert.True(t, snap.HasReadLock(1))
	assert.True(t, snap.Holds(1))
	assert.False(t, snap.HasWriteLock(2))
	assert.False(t, snap.Holds(2))
}

func TestMutualExclusion(t *testing.T) {
	l := NewPageLock(testPID)

	const (
		workers    = 8
		iterations = 200
	)

	var (
		writers atomic.Int32
		readers atomic.Int32
		wg      sync.WaitGroup
	)

	for w := range workers {
		wg.Add(1)
		go func(tid common.TxnID) {
			defer wg.Done()

			for i := range iterations {
				if i%3 == 0 {
					l.WriteLock(tid)
					assert.Equal(t, int32(1), writers.Add(1))
					assert.Zero(t, readers.Load())
					writers.Add(-1)
					l.WriteUnlock(tid)
					continue
				}

				l.ReadLock(tid)
				readers.Add(1)
				assert.Zero(t, writers.Load())
				readers.Add(-1)
				l.ReadUnlock(tid)
			}
		}(common.TxnID(w + 1))
	}
	wg.Wait()

	assert.True(t, l.Snapshot().IsFree())
}
