package recovery

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-faster/errors"

	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
)

type LSN uint64

type RecordTypeTag byte

const (
	TypeUpdate RecordTypeTag = iota + 1
	TypeCommit
	TypeAbort
)

func (t RecordTypeTag) String() string {
	switch t {
	case TypeUpdate:
		return "UPDATE"
	case TypeCommit:
		return "COMMIT"
	case TypeAbort:
		return "ABORT"
	default:
		return fmt.Sprintf("RecordTypeTag(%d)", byte(t))
	}
}

var ErrUnknownRecord = errors.New("unknown log record type")

// Record is one entry of the transaction log. Before and After carry full
// page images and are empty for completion records.
type Record struct {
	Type   RecordTypeTag
	LSN    LSN
	TxnID  common.TxnID
	PageID common.PageIdentity
	Before []byte
	After  []byte
}

func (r *Record) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.WriteByte(byte(r.Type))

	header := []any{
		r.LSN,
		r.TxnID,
		r.PageID.TableID,
		r.PageID.PageNum,
	}
	for _, v := range header {
		if err := binary.Write(buf, binary.BigEndian, v); err != nil {
			return nil, err
		}
	}

	for _, image := range [][]byte{r.Before, r.After} {
		//nolint:gosec
		if err := binary.Write(buf, binary.BigEndian, uint32(len(image))); err != nil {
			return nil, err
		}
		buf.Write(image)
	}

	return buf.Bytes(), nil
}

func (r *Record) UnmarshalBinary(data []byte) error {
	rd := bytes.NewReader(data)

	tag, err := rd.ReadByte()
	if err != nil {
		return err
	}
	r.Type = RecordTypeTag(tag)
	if r.Type < TypeUpdate || r.Type > TypeAbort {
		return errors.Wrapf(ErrUnknownRecord, "tag %d", tag)
	}

	header := []any{
		&r.LSN,
		&r.TxnID,
		&r.PageID.TableID,
		&r.PageID.PageNum,
	}
	for _, v := range header {
		if err := binary.Read(rd, binary.BigEndian, v); err != nil {
			return errors.Wrap(err, "read record header")
		}
	}

	r.Before, err = readImage(rd)
	if err != nil {
		return errors.Wrap(err, "read before image")
	}
	r.After, err = readImage(rd)
	if err != nil {
		return errors.Wrap(err, "read after image")
	}
	return nil
}

func readImage(rd *bytes.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(rd, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	if int64(n) > int64(rd.Len()) {
		return nil, io.ErrUnexpectedEOF
	}
	if n == 0 {
		return nil, nil
	}

	image := make([]byte, n)
	if _, err := io.ReadFull(rd, image); err != nil {
		return nil, err
	}
	return image, nil
}
