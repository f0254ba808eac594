package common

import "github.com/go-faster/errors"

var (
	// ErrTxnAborted is returned when a lock could not be acquired within the
	// deadlock timeout. The transaction must be completed with commit=false.
	ErrTxnAborted = errors.New("transaction aborted")

	ErrSchemaMismatch = errors.New("tuple schema does not match the relation")
	ErrPageFull       = errors.New("no free slot on page")
	ErrTupleNotFound  = errors.New("tuple not found")
	ErrWrongPage      = errors.New("tuple does not belong to this page")
	ErrWrongTable     = errors.New("tuple does not belong to this table")
	ErrNoSuchTable    = errors.New("no such table")

	// ErrTupleTooWide means not even one tuple of the schema fits on a page.
	ErrTupleTooWide = errors.New("tuple is wider than a page")

	ErrPageOutOfRange = errors.New("page is beyond the end of file")
	ErrCorruptedFile  = errors.New("relation file is corrupted")

	// ErrCacheExhausted means every cached page is dirty and the pool is over
	// capacity. It reflects a workload holding more dirty pages than the pool
	// can keep and is not recoverable by retrying the transaction.
	ErrCacheExhausted = errors.New("buffer pool exhausted: all cached pages are dirty")
)

func IsFatal(err error) bool {
	return errors.Is(err, ErrCacheExhausted)
}

func IsAborted(err error) bool {
	return errors.Is(err, ErrTxnAborted)
}
