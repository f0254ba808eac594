package recovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
)

func TestRecordMarshalRoundTrip(t *testing.T) {
	tests := []Record{
		{
			Type:   TypeUpdate,
			LSN:    7,
			TxnID:  3,
			PageID: common.PageIdentity{TableID: 2, PageNum: 9},
			Before: []byte{1, 2, 3},
			After:  []byte{4, 5, 6, 7},
		},
		{Type: TypeCommit, LSN: 8, TxnID: 3},
		{Type: TypeAbort, LSN: 9, TxnID: 4},
	}

	for _, want := range tests {
		t.Run(want.Type.String(), func(t *testing.T) {
			data, err := want.MarshalBinary()
			require.NoError(t, err)

			var got Record
			require.NoError(t, got.UnmarshalBinary(data))
			assert.Equal(t, want, got)
		})
	}
}

func TestUnknownTagIsRejected(t *testing.T) {
	var r Record
	require.ErrorIs(t, r.UnmarshalBinary([]byte{42}), ErrUnknownRecord)
}

func TestTruncatedImageIsRejected(t *testing.T) {
	r := Record{Type: TypeUpdate, Before: []byte{1, 2, 3, 4}}
	data, err := r.MarshalBinary()
	require.NoError(t, err)

	var got Record
	require.Error(t, got.UnmarshalBinary(data[:len(data)-6]))
}
