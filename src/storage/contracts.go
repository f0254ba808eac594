package storage

import (
	"github.com/go-faster/errors"

	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/storage/page"
	"github.com/Blackdeer1524/HeapDB/src/storage/tuple"
	"github.com/Blackdeer1524/HeapDB/src/txns"
)

var (
	ErrIteratorClosed = errors.New("iterator is not open")
	ErrNoMoreTuples   = errors.New("no more tuples")
)

// DBFile is a relation stored on disk. Tuple mutation goes through the buffer
// pool so that every touched page is locked on behalf of the transaction.
type DBFile interface {
	ID() common.TableID
	TupleDesc() *tuple.TupleDesc

	ReadPage(pid common.PageIdentity) (*page.HeapPage, error)
	WritePage(p *page.HeapPage) error
	NumPages() (int, error)

	// InsertTuple places t on some page and returns the pages it modified.
	InsertTuple(tid common.TxnID, t *tuple.Tuple) ([]*page.HeapPage, error)
	// DeleteTuple removes t from the page its record id points at.
	DeleteTuple(tid common.TxnID, t *tuple.Tuple) ([]*page.HeapPage, error)

	Iterator(tid common.TxnID) DBFileIterator
}

type DBFileIterator interface {
	Open() error
	HasNext() (bool, error)
	Next() (*tuple.Tuple, error)
	Rewind() error
	Close()
}

type Catalog interface {
	GetDatabaseFile(id common.TableID) (DBFile, error)
	GetTupleDesc(id common.TableID) (*tuple.TupleDesc, error)
}

// BufferPool is the subset of the page cache a relation file relies on.
type BufferPool interface {
	GetPage(
		tid common.TxnID,
		pid common.PageIdentity,
		perm common.Permissions,
	) (*page.HeapPage, error)

	// LockOf returns a copy of the lock state of pid.
	LockOf(pid common.PageIdentity) txns.LockSnapshot
	ReleasePage(tid common.TxnID, pid common.PageIdentity, perm common.Permissions)
	DowngradePage(tid common.TxnID, pid common.PageIdentity)
	HoldsLock(tid common.TxnID, pid common.PageIdentity) bool
}
