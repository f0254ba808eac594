package recovery

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/go-faster/errors"
)

// Iterator reads records front to back. Next returns io.EOF at a clean end
// and io.ErrUnexpectedEOF when the last record is cut short.
type Iterator struct {
	rd     *bufio.Reader
	offset int64
}

func NewIterator(r io.Reader) *Iterator {
	return &Iterator{rd: bufio.NewReader(r)}
}

// Offset is the position just past the last record returned.
func (it *Iterator) Offset() int64 {
	return it.offset
}

func (it *Iterator) Next() (Record, error) {
	var n uint32
	if err := binary.Read(it.rd, binary.BigEndian, &n); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, io.ErrUnexpectedEOF
	}

	data := make([]byte, n)
	if _, err := io.ReadFull(it.rd, data); err != nil {
		return Record{}, io.ErrUnexpectedEOF
	}

	var r Record
	if err := r.UnmarshalBinary(data); err != nil {
		return Record{}, err
	}

	it.offset += 4 + int64(n)
	return r, nil
}
