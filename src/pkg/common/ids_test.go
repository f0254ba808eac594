package common

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
)

func TestNewTxnIDNeverReserved(t *testing.T) {
	seen := make(map[TxnID]struct{})
	for range 1000 {
		id := NewTxnID()
		assert.False(t, id.IsReserved())
		_, dup := seen[id]
		assert.False(t, dup)
		seen[id] = struct{}{}
	}

	assert.True(t, ReaderCohortTxnID.IsReserved())
	assert.True(t, EvictionTxnID.IsReserved())
	assert.True(t, NilTxnID.IsReserved())
}

func TestPageIdentityIsComparable(t *testing.T) {
	a := PageIdentity{TableID: 3, PageNum: 7}
	b := PageIdentity{TableID: 3, PageNum: 7}

	m := map[PageIdentity]int{a: 1}
	assert.Equal(t, 1, m[b])

	rid := NewRecordID(a, 12)
	assert.Equal(t, a, rid.PageIdentity())
	assert.Equal(t, "3:7:12", rid.String())
}

func TestErrorClasses(t *testing.T) {
	wrapped := errors.Wrap(ErrCacheExhausted, "put 1:2")
	assert.True(t, IsFatal(wrapped))
	assert.False(t, IsAborted(wrapped))

	aborted := errors.Wrap(ErrTxnAborted, "lock 1:2")
	assert.True(t, IsAborted(aborted))
	assert.False(t, IsFatal(aborted))
}
