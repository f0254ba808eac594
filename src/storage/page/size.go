package page

import (
	"sync/atomic"

	"github.com/Blackdeer1524/HeapDB/src/pkg/assert"
	"github.com/Blackdeer1524/HeapDB/src/storage/tuple"
)

const DefaultPageSize = 4096

var pageSize atomic.Int64

func init() {
	pageSize.Store(DefaultPageSize)
}

func PageSize() int {
	return int(pageSize.Load())
}

// SetPageSize changes the process-wide page size. It must be called before any
// relation file is opened: files written with one size cannot be read with
// another.
func SetPageSize(size int) {
	assert.Assert(size > 0, "page size must be positive, got %d", size)
	pageSize.Store(int64(size))
}

func ResetPageSize() {
	pageSize.Store(DefaultPageSize)
}

// NumSlots is the number of tuples of the given schema a page can hold: each
// slot costs the tuple's width plus one header bit.
func NumSlots(desc *tuple.TupleDesc) int {
	return (PageSize() * 8) / (desc.Size()*8 + 1)
}

// HeaderSize is the length in bytes of the occupancy bitmap.
func HeaderSize(desc *tuple.TupleDesc) int {
	return (NumSlots(desc) + 7) / 8
}

func EmptyPageData() []byte {
	return make([]byte, PageSize())
}
