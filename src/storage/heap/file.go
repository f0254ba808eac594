package heap

import (
	"github.com/go-faster/errors"

	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/storage"
	"github.com/Blackdeer1524/HeapDB/src/storage/disk"
	"github.com/Blackdeer1524/HeapDB/src/storage/page"
	"github.com/Blackdeer1524/HeapDB/src/storage/tuple"
)

// File is an unordered relation: a sequence of slotted pages that only ever
// grows at the end.
type File struct {
	id   common.TableID
	desc *tuple.TupleDesc
	dm   *disk.Manager
	pool storage.BufferPool
}

var _ storage.DBFile = &File{}

func New(
	id common.TableID,
	desc *tuple.TupleDesc,
	dm *disk.Manager,
	pool storage.BufferPool,
) *File {
	return &File{
		id:   id,
		desc: desc,
		dm:   dm,
		pool: pool,
	}
}

func (f *File) ID() common.TableID {
	return f.id
}

func (f *File) TupleDesc() *tuple.TupleDesc {
	return f.desc
}

func (f *File) Path() string {
	return f.dm.Path()
}

func (f *File) NumPages() (int, error) {
	return f.dm.NumPages()
}

// ReadPage loads a page straight from disk, bypassing the buffer pool.
func (f *File) ReadPage(pid common.PageIdentity) (*page.HeapPage, error) {
	if pid.TableID != f.id {
		return nil, errors.Wrapf(common.ErrWrongTable, "page %s requested from table %d", pid, f.id)
	}

	data, err := f.dm.ReadPage(pid.PageNum)
	if err != nil {
		return nil, err
	}

	p, err := page.NewHeapPage(pid, f.desc, data)
	if err != nil {
		return nil, errors.Wrapf(err, "parse page %s", pid)
	}
	return p, nil
}

func (f *File) WritePage(p *page.HeapPage) error {
	if p.ID().TableID != f.id {
		return errors.Wrapf(common.ErrWrongTable, "page %s written to table %d", p.ID(), f.id)
	}
	return f.dm.WritePage(p.ID().PageNum, p.Data())
}

// InsertTuple scans pages in order and puts t on the first one with a free
// slot. A full page is given back in the state the transaction held it
// before the scan touched it: an untouched page is released and a page that
// was only read is downgraded back to a read lock. When no page has room the
// file is extended and the scan repeats.
func (f *File) InsertTuple(tid common.TxnID, t *tuple.Tuple) ([]*page.HeapPage, error) {
	if !f.desc.Equals(t.Desc()) {
		return nil, errors.Wrapf(common.ErrSchemaMismatch, "insert into table %d", f.id)
	}
	if page.NumSlots(f.desc) == 0 {
		return nil, errors.Wrapf(
			common.ErrTupleTooWide,
			"table %d: %d byte tuples on %d byte pages", f.id, f.desc.Size(), page.PageSize(),
		)
	}

	for {
		numPages, err := f.dm.NumPages()
		if err != nil {
			return nil, err
		}

		for i := range numPages {
			pid := common.PageIdentity{TableID: f.id, PageNum: common.PageNum(i)} //nolint:gosec

			prior := f.pool.LockOf(pid)
			p, err := f.pool.GetPage(tid, pid, common.ReadWrite)
			if err != nil {
				return nil, err
			}

			if p.NumEmptySlots() > 0 {
				if err := p.InsertTuple(t); err != nil {
					return nil, err
				}
				return []*page.HeapPage{p}, nil
			}

			switch {
			case prior.HasWriteLock(tid):
			case prior.HasReadLock(tid):
				f.pool.DowngradePage(tid, pid)
			default:
				f.pool.ReleasePage(tid, pid, common.ReadWrite)
			}
		}

		if err := f.dm.Extend(numPages); err != nil {
			return nil, errors.Wrapf(err, "extend table %d", f.id)
		}
	}
}

func (f *File) DeleteTuple(tid common.TxnID, t *tuple.Tuple) ([]*page.HeapPage, error) {
	rid, ok := t.RecordID().Get()
	if !ok {
		return nil, errors.Wrap(common.ErrTupleNotFound, "tuple has no record id")
	}
	if rid.TableID != f.id {
		return nil, errors.Wrapf(common.ErrWrongTable, "record %s deleted from table %d", rid, f.id)
	}

	p, err := f.pool.GetPage(tid, rid.PageIdentity(), common.ReadWrite)
	if err != nil {
		return nil, err
	}
	if err := p.DeleteTuple(t); err != nil {
		return nil, err
	}
	return []*page.HeapPage{p}, nil
}

func (f *File) Iterator(tid common.TxnID) storage.DBFileIterator {
	return &Iterator{file: f, tid: tid}
}
