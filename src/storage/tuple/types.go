package tuple

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"

	"github.com/go-faster/errors"
)

// StringLen is the payload capacity of a STRING field. Longer values are
// truncated when serialized.
const StringLen = 128

type Type uint8

const (
	IntType Type = iota
	StringType
)

// Len is the number of bytes a field of this type occupies on a page.
func (t Type) Len() int {
	switch t {
	case IntType:
		return 4
	case StringType:
		return StringLen + 4
	default:
		panic(fmt.Sprintf("unknown field type %d", t))
	}
}

func (t Type) String() string {
	switch t {
	case IntType:
		return "INT"
	case StringType:
		return "STRING"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Parse reads exactly t.Len() bytes from r.
func (t Type) Parse(r io.Reader) (Field, error) {
	switch t {
	case IntType:
		var v int32
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return nil, errors.Wrap(err, "parse int field")
		}
		return IntField{Value: v}, nil
	case StringType:
		var n uint32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return nil, errors.Wrap(err, "parse string length")
		}
		buf := make([]byte, StringLen)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, errors.Wrap(err, "parse string payload")
		}
		if n > StringLen {
			return nil, errors.Errorf("string length %d exceeds %d", n, StringLen)
		}
		return StringField{Value: string(buf[:n])}, nil
	default:
		return nil, errors.Errorf("unknown field type %d", t)
	}
}

type Field interface {
	Type() Type
	Serialize(w io.Writer) error
	Equals(other Field) bool
	String() string
}

type IntField struct {
	Value int32
}

var _ Field = IntField{}

func (f IntField) Type() Type { return IntType }

func (f IntField) Serialize(w io.Writer) error {
	return binary.Write(w, binary.BigEndian, f.Value)
}

func (f IntField) Equals(other Field) bool {
	o, ok := other.(IntField)
	return ok && o.Value == f.Value
}

func (f IntField) String() string {
	return strconv.FormatInt(int64(f.Value), 10)
}

type StringField struct {
	Value string
}

var _ Field = StringField{}

func (f StringField) Type() Type { return StringType }

func (f StringField) Serialize(w io.Writer) error {
	payload := []byte(f.Value)
	if len(payload) > StringLen {
		payload = payload[:StringLen]
	}

	buf := bytes.NewBuffer(make([]byte, 0, StringType.Len()))
	_ = binary.Write(buf, binary.BigEndian, uint32(len(payload)))
	buf.Write(payload)
	buf.Write(make([]byte, StringLen-len(payload)))

	_, err := w.Write(buf.Bytes())
	return err
}

func (f StringField) Equals(other Field) bool {
	o, ok := other.(StringField)
	return ok && o.Value == f.Value
}

func (f StringField) String() string {
	return f.Value
}
