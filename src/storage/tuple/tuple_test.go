package tuple

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
)

func TestTupleDescSize(t *testing.T) {
	assert.Equal(t, 8, Anonymous(IntType, IntType).Size())
	assert.Equal(t, 4+132, Anonymous(IntType, StringType).Size())
}

func TestTupleDescEqualityIgnoresNames(t *testing.T) {
	a := NewTupleDesc([]Type{IntType, StringType}, []string{"id", "name"})
	b := NewTupleDesc([]Type{IntType, StringType}, []string{"key", "value"})
	c := NewTupleDesc([]Type{StringType, IntType}, []string{"id", "name"})

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
	assert.False(t, a.Equals(Anonymous(IntType)))
}

func TestFieldIndex(t *testing.T) {
	d := NewTupleDesc([]Type{IntType, StringType}, []string{"id", "name"})

	idx, err := d.FieldIndex("name")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = d.FieldIndex("missing")
	require.ErrorIs(t, err, ErrNoSuchField)
}

func TestMerge(t *testing.T) {
	m := Merge(Anonymous(IntType), Anonymous(StringType, IntType))
	assert.Equal(t, 3, m.NumFields())
	assert.Equal(t, StringType, m.FieldType(1))
}

func TestFieldSerializeParse(t *testing.T) {
	tests := []struct {
		name  string
		field Field
	}{
		{"positive int", IntField{Value: 1 << 20}},
		{"negative int", IntField{Value: -17}},
		{"empty string", StringField{Value: ""}},
		{"short string", StringField{Value: "page"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, tt.field.Serialize(&buf))
			require.Equal(t, tt.field.Type().Len(), buf.Len())

			got, err := tt.field.Type().Parse(&buf)
			require.NoError(t, err)
			assert.True(t, tt.field.Equals(got))
		})
	}
}

func TestLongStringIsTruncated(t *testing.T) {
	var buf bytes.Buffer
	long := strings.Repeat("x", StringLen+10)
	require.NoError(t, StringField{Value: long}.Serialize(&buf))
	require.Equal(t, StringType.Len(), buf.Len())

	got, err := StringType.Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, long[:StringLen], got.(StringField).Value)
}

func TestTupleEqualsAndRecordID(t *testing.T) {
	d := Anonymous(IntType, IntType)
	a := Ints(d, 1, 2)
	b := Ints(d, 1, 2)
	c := Ints(d, 1, 3)

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))

	assert.True(t, a.RecordID().IsNone())
	rid := common.RecordID{TableID: 1, PageNum: 2, SlotNum: 3}
	a.SetRecordID(rid)
	assert.Equal(t, rid, a.RecordID().Unwrap())
	assert.True(t, a.Equals(b), "record ids are not part of equality")

	a.ClearRecordID()
	assert.True(t, a.RecordID().IsNone())
}

func TestSetFieldTypeMismatchPanics(t *testing.T) {
	d := Anonymous(IntType)
	assert.Panics(t, func() { New(d, StringField{Value: "x"}) })
}
