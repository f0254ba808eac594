package tuple

import (
	"strings"

	"github.com/go-faster/errors"
)

type Item struct {
	Type Type
	Name string
}

// TupleDesc is the schema of a tuple. Two descriptors are equal for storage
// purposes when their field types match position by position; names are
// ignored.
type TupleDesc struct {
	items []Item
}

func NewTupleDesc(types []Type, names []string) *TupleDesc {
	items := make([]Item, len(types))
	for i, t := range types {
		items[i].Type = t
		if i < len(names) {
			items[i].Name = names[i]
		}
	}
	return &TupleDesc{items: items}
}

// Anonymous builds a descriptor with unnamed fields.
func Anonymous(types ...Type) *TupleDesc {
	return NewTupleDesc(types, nil)
}

func (d *TupleDesc) NumFields() int {
	return len(d.items)
}

func (d *TupleDesc) FieldType(i int) Type {
	return d.items[i].Type
}

func (d *TupleDesc) FieldName(i int) string {
	return d.items[i].Name
}

var ErrNoSuchField = errors.New("no such field")

func (d *TupleDesc) FieldIndex(name string) (int, error) {
	for i, it := range d.items {
		if it.Name != "" && it.Name == name {
			return i, nil
		}
	}
	return -1, errors.Wrap(ErrNoSuchField, name)
}

// Size is the fixed on-page width of a tuple in bytes.
func (d *TupleDesc) Size() int {
	size := 0
	for _, it := range d.items {
		size += it.Type.Len()
	}
	return size
}

func (d *TupleDesc) Equals(other *TupleDesc) bool {
	if d == other {
		return true
	}
	if d == nil || other == nil || len(d.items) != len(other.items) {
		return false
	}
	for i := range d.items {
		if d.items[i].Type != other.items[i].Type {
			return false
		}
	}
	return true
}

func (d *TupleDesc) Items() []Item {
	return append([]Item(nil), d.items...)
}

func Merge(a, b *TupleDesc) *TupleDesc {
	items := make([]Item, 0, len(a.items)+len(b.items))
	items = append(items, a.items...)
	items = append(items, b.items...)
	return &TupleDesc{items: items}
}

func (d *TupleDesc) String() string {
	parts := make([]string, len(d.items))
	for i, it := range d.items {
		parts[i] = it.Type.String() + "(" + it.Name + ")"
	}
	return strings.Join(parts, ", ")
}
