package heap_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Blackdeer1524/HeapDB/src"
	"github.com/Blackdeer1524/HeapDB/src/bufferpool"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/storage"
	"github.com/Blackdeer1524/HeapDB/src/storage/catalog"
	"github.com/Blackdeer1524/HeapDB/src/storage/disk"
	"github.com/Blackdeer1524/HeapDB/src/storage/heap"
	"github.com/Blackdeer1524/HeapDB/src/storage/page"
	"github.com/Blackdeer1524/HeapDB/src/storage/tuple"
)

var desc = tuple.Anonymous(tuple.IntType, tuple.IntType)

func newFile(t *testing.T) (*heap.File, *bufferpool.Manager) {
	t.Helper()

	cat := catalog.New()
	pool, err := bufferpool.New(8, cat, src.NopLogger())
	require.NoError(t, err)

	dm, err := disk.New(afero.NewMemMapFs(), "/data/heap.dat")
	require.NoError(t, err)

	f := heap.New(cat.NextTableID(), desc, dm, pool)
	cat.AddTable(f, "heap", "")
	return f, pool
}

func collect(t *testing.T, it storage.DBFileIterator) []*tuple.Tuple {
	t.Helper()

	var out []*tuple.Tuple
	for {
		ok, err := it.HasNext()
		require.NoError(t, err)
		if !ok {
			return out
		}
		tup, err := it.Next()
		require.NoError(t, err)
		out = append(out, tup)
	}
}

func TestReadWritePage(t *testing.T) {
	f, _ := newFile(t)
	assert.Equal(t, "/data/heap.dat", f.Path())

	tid := common.NewTxnID()
	pages, err := f.InsertTuple(tid, tuple.Ints(desc, 1, 2))
	require.NoError(t, err)
	require.Len(t, pages, 1)

	require.NoError(t, f.WritePage(pages[0]))

	read, err := f.ReadPage(pages[0].ID())
	require.NoError(t, err)
	assert.Equal(t, pages[0].Data(), read.Data())

	_, err = f.ReadPage(common.PageIdentity{TableID: f.ID() + 1})
	require.ErrorIs(t, err, common.ErrWrongTable)
	_, err = f.ReadPage(common.PageIdentity{TableID: f.ID(), PageNum: 7})
	require.ErrorIs(t, err, common.ErrPageOutOfRange)
}

func TestNumPagesIsLive(t *testing.T) {
	f, pool := newFile(t)

	n, err := f.NumPages()
	require.NoError(t, err)
	assert.Zero(t, n)

	tid := common.NewTxnID()
	for i := range page.NumSlots(desc) + 1 {
		_, err := f.InsertTuple(tid, tuple.Ints(desc, int32(i), 0))
		require.NoError(t, err)
	}

	n, err = f.NumPages()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, pool.TransactionComplete(tid, false))
}

func TestDeleteFromOtherTable(t *testing.T) {
	f, _ := newFile(t)

	tup := tuple.Ints(desc, 1, 1)
	tup.SetRecordID(common.RecordID{TableID: f.ID() + 1})
	_, err := f.DeleteTuple(common.NewTxnID(), tup)
	require.ErrorIs(t, err, common.ErrWrongTable)

	_, err = f.DeleteTuple(common.NewTxnID(), tuple.Ints(desc, 1, 1))
	require.ErrorIs(t, err, common.ErrTupleNotFound)
}

func TestIteratorWalksAllPages(t *testing.T) {
	f, pool := newFile(t)

	writer := common.NewTxnID()
	total := page.NumSlots(desc) + 10
	for i := range total {
		require.NoError(t, pool.InsertTuple(writer, f.ID(), tuple.Ints(desc, int32(i), 0)))
	}
	require.NoError(t, pool.TransactionComplete(writer, true))

	reader := common.NewTxnID()
	it := f.Iterator(reader)

	_, err := it.HasNext()
	require.ErrorIs(t, err, storage.ErrIteratorClosed)

	require.NoError(t, it.Open())
	got := collect(t, it)
	require.Len(t, got, total)
	for i, tup := range got {
		assert.Equal(t, tuple.IntField{Value: int32(i)}, tup.Field(0))
	}

	_, err = it.Next()
	require.ErrorIs(t, err, storage.ErrNoMoreTuples)

	assert.True(t, pool.LockOf(common.PageIdentity{TableID: f.ID(), PageNum: 0}).HasReadLock(reader))
	assert.True(t, pool.LockOf(common.PageIdentity{TableID: f.ID(), PageNum: 1}).HasReadLock(reader))

	require.NoError(t, it.Rewind())
	assert.Len(t, collect(t, it), total)

	it.Close()
	require.ErrorIs(t, it.Rewind(), storage.ErrIteratorClosed)
	require.NoError(t, pool.TransactionComplete(reader, true))
}

func TestIteratorOnEmptyFile(t *testing.T) {
	f, pool := newFile(t)

	tid := common.NewTxnID()
	it := f.Iterator(tid)
	require.NoError(t, it.Open())
	assert.Empty(t, collect(t, it))
	it.Close()
	require.NoError(t, pool.TransactionComplete(tid, true))
}

func TestTooWideSchemaIsRejected(t *testing.T) {
	types := make([]tuple.Type, 32)
	for i := range types {
		types[i] = tuple.StringType
	}
	wide := tuple.Anonymous(types...)
	require.Zero(t, page.NumSlots(wide))

	cat := catalog.New()
	pool, err := bufferpool.New(8, cat, src.NopLogger())
	require.NoError(t, err)
	dm, err := disk.New(afero.NewMemMapFs(), "/data/wide.dat")
	require.NoError(t, err)

	f := heap.New(cat.NextTableID(), wide, dm, pool)
	cat.AddTable(f, "wide", "")

	tid := common.NewTxnID()
	_, err = f.InsertTuple(tid, tuple.New(wide))
	require.ErrorIs(t, err, common.ErrTupleTooWide)

	n, err := f.NumPages()
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, pool.TransactionComplete(tid, false))
}
