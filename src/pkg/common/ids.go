package common

import (
	"fmt"
	"math"
	"sync/atomic"
)

type TableID uint64

// PageNum is the zero-based position of a page inside its relation file.
type PageNum uint64

// PageIdentity names a page whether or not it is currently cached.
type PageIdentity struct {
	TableID TableID
	PageNum PageNum
}

func (p PageIdentity) String() string {
	return fmt.Sprintf("%d:%d", p.TableID, p.PageNum)
}

// RecordID points at the slot a tuple occupies on disk.
type RecordID struct {
	TableID TableID
	PageNum PageNum
	SlotNum int
}

func NewRecordID(pid PageIdentity, slot int) RecordID {
	return RecordID{
		TableID: pid.TableID,
		PageNum: pid.PageNum,
		SlotNum: slot,
	}
}

func (r RecordID) PageIdentity() PageIdentity {
	return PageIdentity{
		TableID: r.TableID,
		PageNum: r.PageNum,
	}
}

func (r RecordID) String() string {
	return fmt.Sprintf("%d:%d:%d", r.TableID, r.PageNum, r.SlotNum)
}

/* a monotonically increasing counter, unique among the transactions of a
 * single process. The top of the range is reserved for internal owners. */
type TxnID uint64

const (
	NilTxnID TxnID = 0

	// ReaderCohortTxnID occupies a page lock's writer slot while at least
	// one reader holds the lock.
	ReaderCohortTxnID TxnID = math.MaxUint64

	// EvictionTxnID probes lock pool entries before they are dropped.
	EvictionTxnID TxnID = math.MaxUint64 - 1

	maxUserTxnID TxnID = math.MaxUint64 - 1024
)

var lastTxnID atomic.Uint64

// NewTxnID issues a fresh transaction identity. It never returns NilTxnID
// or one of the reserved sentinels.
func NewTxnID() TxnID {
	id := TxnID(lastTxnID.Add(1))
	if id >= maxUserTxnID {
		panic("transaction id space exhausted")
	}
	return id
}

func (t TxnID) IsReserved() bool {
	return t == NilTxnID || t >= maxUserTxnID
}

func (t TxnID) String() string {
	switch t {
	case NilTxnID:
		return "txn(nil)"
	case ReaderCohortTxnID:
		return "txn(readers)"
	case EvictionTxnID:
		return "txn(eviction)"
	default:
		return fmt.Sprintf("txn(%d)", uint64(t))
	}
}

// Permissions selects the lock mode a page is requested with.
type Permissions uint8

const (
	ReadOnly Permissions = iota
	ReadWrite
)

func (p Permissions) String() string {
	switch p {
	case ReadOnly:
		return "READ_ONLY"
	case ReadWrite:
		return "READ_WRITE"
	default:
		return fmt.Sprintf("Permissions(%d)", uint8(p))
	}
}
