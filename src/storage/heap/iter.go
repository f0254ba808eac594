package heap

import (
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/storage"
	"github.com/Blackdeer1524/HeapDB/src/storage/tuple"
)

// Iterator walks a relation page by page, read-locking each page through the
// buffer pool as it becomes current. Locks stay with the transaction.
type Iterator struct {
	file *File
	tid  common.TxnID

	open    bool
	nextNum int
	tuples  []*tuple.Tuple
	pos     int
}

var _ storage.DBFileIterator = &Iterator{}

func (it *Iterator) Open() error {
	it.open = true
	it.nextNum = 0
	it.tuples = nil
	it.pos = 0
	return nil
}

func (it *Iterator) HasNext() (bool, error) {
	if !it.open {
		return false, storage.ErrIteratorClosed
	}

	for it.pos >= len(it.tuples) {
		numPages, err := it.file.NumPages()
		if err != nil {
			return false, err
		}
		if it.nextNum >= numPages {
			return false, nil
		}

		pid := common.PageIdentity{
			TableID: it.file.id,
			PageNum: common.PageNum(it.nextNum), //nolint:gosec
		}
		p, err := it.file.pool.GetPage(it.tid, pid, common.ReadOnly)
		if err != nil {
			return false, err
		}

		it.nextNum++
		it.tuples = p.Tuples()
		it.pos = 0
	}
	return true, nil
}

func (it *Iterator) Next() (*tuple.Tuple, error) {
	ok, err := it.HasNext()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, storage.ErrNoMoreTuples
	}

	t := it.tuples[it.pos]
	it.pos++
	return t, nil
}

func (it *Iterator) Rewind() error {
	if !it.open {
		return storage.ErrIteratorClosed
	}
	return it.Open()
}

func (it *Iterator) Close() {
	it.open = false
	it.tuples = nil
}
