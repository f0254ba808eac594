package page

import (
	"bytes"
	"io"
	"sync"

	"github.com/go-faster/errors"

	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/pkg/optional"
	"github.com/Blackdeer1524/HeapDB/src/storage/tuple"
)

// HeapPage is the in-memory form of one relation page:
//
//	[header: ceil(numSlots/8) bytes][slot 0]...[slot numSlots-1][zero padding]
//
// Bit i of the header (bit i%8 of byte i/8, least significant first) is set
// iff slot i holds a tuple. Empty slots are zero-filled on disk.
//
// A page is mutated only by a transaction holding its write lock.
type HeapPage struct {
	pid      common.PageIdentity
	desc     *tuple.TupleDesc
	numSlots int
	header   []byte
	tuples   []*tuple.Tuple

	// guards dirtier and before, which the cache inspects without page locks
	mu      sync.Mutex
	dirtier optional.Optional[common.TxnID]
	before  []byte
}

// NewHeapPage parses data, which must be at least PageSize() bytes. The
// before-image is initialized to data.
func NewHeapPage(
	pid common.PageIdentity,
	desc *tuple.TupleDesc,
	data []byte,
) (*HeapPage, error) {
	size := PageSize()
	if len(data) < size {
		return nil, errors.Wrapf(
			common.ErrCorruptedFile,
			"page %v: got %d bytes, want %d",
			pid,
			len(data),
			size,
		)
	}

	p := &HeapPage{
		pid:      pid,
		desc:     desc,
		numSlots: NumSlots(desc),
		header:   make([]byte, HeaderSize(desc)),
	}
	p.tuples = make([]*tuple.Tuple, p.numSlots)

	rd := bytes.NewReader(data[:size])
	if _, err := io.ReadFull(rd, p.header); err != nil {
		return nil, errors.Wrapf(err, "page %v: read header", pid)
	}

	width := int64(desc.Size())
	for slot := range p.numSlots {
		if !p.IsSlotUsed(slot) {
			if _, err := rd.Seek(width, io.SeekCurrent); err != nil {
				return nil, errors.Wrapf(err, "page %v: skip slot %d", pid, slot)
			}
			continue
		}

		t := tuple.New(desc)
		for i := range desc.NumFields() {
			f, err := desc.FieldType(i).Parse(rd)
			if err != nil {
				return nil, errors.Wrapf(err, "page %v: slot %d field %d", pid, slot, i)
			}
			t.SetField(i, f)
		}
		t.SetRecordID(common.NewRecordID(pid, slot))
		p.tuples[slot] = t
	}

	p.before = append([]byte(nil), data[:size]...)

	return p, nil
}

func (p *HeapPage) ID() common.PageIdentity {
	return p.pid
}

func (p *HeapPage) Desc() *tuple.TupleDesc {
	return p.desc
}

func (p *HeapPage) NumSlots() int {
	return p.numSlots
}

// Data serializes the page. NewHeapPage(p.ID(), p.Desc(), p.Data()) yields a
// page equal to p.
func (p *HeapPage) Data() []byte {
	size := PageSize()
	buf := bytes.NewBuffer(make([]byte, 0, size))
	buf.Write(p.header)

	width := p.desc.Size()
	zeroSlot := make([]byte, width)
	for slot := range p.numSlots {
		if !p.IsSlotUsed(slot) {
			buf.Write(zeroSlot)
			continue
		}
		if err := p.tuples[slot].Serialize(buf); err != nil {
			// tuples are type-checked on insert
			panic(err)
		}
	}

	buf.Write(make([]byte, size-buf.Len()))

	return buf.Bytes()
}

func (p *HeapPage) IsSlotUsed(slot int) bool {
	return (p.header[slot/8]>>(slot%8))&1 == 1
}

func (p *HeapPage) markSlotUsed(slot int, used bool) {
	mask := byte(1) << (slot % 8)
	if used {
		p.header[slot/8] |= mask
	} else {
		p.header[slot/8] &^= mask
	}
}

func (p *HeapPage) NumEmptySlots() int {
	n := 0
	for slot := range p.numSlots {
		if !p.IsSlotUsed(slot) {
			n++
		}
	}
	return n
}

func (p *HeapPage) firstFreeSlot() optional.Optional[int] {
	for slot := range p.numSlots {
		if !p.IsSlotUsed(slot) {
			return optional.Some(slot)
		}
	}
	return optional.None[int]()
}

// InsertTuple places t in the first free slot and sets its RecordID.
func (p *HeapPage) InsertTuple(t *tuple.Tuple) error {
	if t == nil || !t.Desc().Equals(p.desc) {
		return errors.Wrapf(common.ErrSchemaMismatch, "page %v", p.pid)
	}
	for i := range p.desc.NumFields() {
		if t.Field(i) == nil {
			return errors.Wrapf(common.ErrSchemaMismatch, "page %v: field %d is not set", p.pid, i)
		}
	}

	slot, ok := p.firstFreeSlot().Get()
	if !ok {
		return errors.Wrapf(common.ErrPageFull, "page %v", p.pid)
	}

	t.SetRecordID(common.NewRecordID(p.pid, slot))
	p.tuples[slot] = t
	p.markSlotUsed(slot, true)

	return nil
}

// DeleteTuple empties the slot t occupies and clears t's RecordID.
func (p *HeapPage) DeleteTuple(t *tuple.Tuple) error {
	rid, ok := t.RecordID().Get()
	if !ok {
		return errors.Wrap(common.ErrTupleNotFound, "tuple has no record id")
	}
	if rid.PageIdentity() != p.pid {
		return errors.Wrapf(common.ErrWrongPage, "record %v, page %v", rid, p.pid)
	}

	slot := rid.SlotNum
	if slot < 0 || slot >= p.numSlots || !p.IsSlotUsed(slot) || !p.tuples[slot].Equals(t) {
		return errors.Wrapf(common.ErrTupleNotFound, "record %v", rid)
	}

	p.markSlotUsed(slot, false)
	p.tuples[slot] = nil
	t.ClearRecordID()

	return nil
}

// Tuple returns the tuple stored in slot, if any.
func (p *HeapPage) Tuple(slot int) optional.Optional[*tuple.Tuple] {
	if slot < 0 || slot >= p.numSlots || !p.IsSlotUsed(slot) {
		return optional.None[*tuple.Tuple]()
	}
	return optional.Some(p.tuples[slot])
}

// Tuples returns the stored tuples in slot order. The slice is a copy; later
// page mutations do not affect it.
func (p *HeapPage) Tuples() []*tuple.Tuple {
	res := make([]*tuple.Tuple, 0, p.numSlots-p.NumEmptySlots())
	for slot, t := range p.tuples {
		if p.IsSlotUsed(slot) {
			res = append(res, t)
		}
	}
	return res
}

// MarkDirty records tid as the last transaction to modify the page, or
// clears the flag.
func (p *HeapPage) MarkDirty(dirty bool, tid common.TxnID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if dirty {
		p.dirtier = optional.Some(tid)
		return
	}
	p.dirtier = optional.None[common.TxnID]()
}

func (p *HeapPage) IsDirty() (common.TxnID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.dirtier.Get()
}

// BeforeImage parses the snapshot taken at load time or at the last
// SetBeforeImage call.
func (p *HeapPage) BeforeImage() (*HeapPage, error) {
	p.mu.Lock()
	data := p.before
	p.mu.Unlock()

	return NewHeapPage(p.pid, p.desc, data)
}

func (p *HeapPage) BeforeImageData() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]byte(nil), p.before...)
}

func (p *HeapPage) SetBeforeImage() {
	data := p.Data()

	p.mu.Lock()
	p.before = data
	p.mu.Unlock()
}
