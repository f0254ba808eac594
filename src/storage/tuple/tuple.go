package tuple

import (
	"fmt"
	"io"
	"strings"

	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/pkg/optional"
)

type Tuple struct {
	desc   *TupleDesc
	fields []Field
	rid    optional.Optional[common.RecordID]
}

// New builds a tuple. It panics if the field types do not match desc.
func New(desc *TupleDesc, fields ...Field) *Tuple {
	t := &Tuple{
		desc:   desc,
		fields: make([]Field, desc.NumFields()),
	}
	for i, f := range fields {
		t.SetField(i, f)
	}
	return t
}

// Ints is a shorthand for an all-INT tuple.
func Ints(desc *TupleDesc, values ...int32) *Tuple {
	t := New(desc)
	for i, v := range values {
		t.SetField(i, IntField{Value: v})
	}
	return t
}

func (t *Tuple) Desc() *TupleDesc {
	return t.desc
}

func (t *Tuple) Field(i int) Field {
	return t.fields[i]
}

func (t *Tuple) SetField(i int, f Field) {
	if f != nil && f.Type() != t.desc.FieldType(i) {
		panic(fmt.Sprintf(
			"field %d: expected %s, got %s",
			i,
			t.desc.FieldType(i),
			f.Type(),
		))
	}
	t.fields[i] = f
}

func (t *Tuple) RecordID() optional.Optional[common.RecordID] {
	return t.rid
}

func (t *Tuple) SetRecordID(rid common.RecordID) {
	t.rid = optional.Some(rid)
}

func (t *Tuple) ClearRecordID() {
	t.rid = optional.None[common.RecordID]()
}

// Serialize writes every field in order. Unset fields are an error.
func (t *Tuple) Serialize(w io.Writer) error {
	for i, f := range t.fields {
		if f == nil {
			return fmt.Errorf("field %d is not set", i)
		}
		if err := f.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// Equals compares schema structure and field values. RecordIDs are not
// compared.
func (t *Tuple) Equals(other *Tuple) bool {
	if t == other {
		return true
	}
	if t == nil || other == nil || !t.desc.Equals(other.desc) {
		return false
	}
	for i := range t.fields {
		a, b := t.fields[i], other.fields[i]
		if a == nil || b == nil {
			if a != b {
				return false
			}
			continue
		}
		if !a.Equals(b) {
			return false
		}
	}
	return true
}

func (t *Tuple) String() string {
	parts := make([]string, len(t.fields))
	for i, f := range t.fields {
		if f == nil {
			parts[i] = "null"
			continue
		}
		parts[i] = f.String()
	}
	return strings.Join(parts, "\t")
}
