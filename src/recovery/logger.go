package recovery

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-faster/errors"
	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/Blackdeer1524/HeapDB/src"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/storage/page"
)

// TxnLogger receives the before and after image of every page a committing
// transaction flushes. The buffer pool calls Force before writing the page.
type TxnLogger interface {
	LogWrite(tid common.TxnID, before, after *page.HeapPage) error
	Force() error
}

// CompletionLogger is implemented by loggers that also record the outcome of
// each transaction.
type CompletionLogger interface {
	LogCompletion(tid common.TxnID, commit bool) error
}

type noLogs struct{}

func (noLogs) LogWrite(common.TxnID, *page.HeapPage, *page.HeapPage) error { return nil }
func (noLogs) Force() error                                                 { return nil }

// NoLogs discards everything.
func NoLogs() TxnLogger {
	return noLogs{}
}

// recordOverhead bounds the non-image bytes of a framed record.
const recordOverhead = 64

// FileLogger appends length-prefixed records to a single file. Its buffer
// holds at least one update record, so nothing reaches the file before Force
// or until a later record overflows it.
type FileLogger struct {
	logger src.Logger

	mu      sync.Mutex
	file    afero.File
	w       *bufio.Writer
	nextLSN LSN
}

var (
	_ TxnLogger        = &FileLogger{}
	_ CompletionLogger = &FileLogger{}
)

// OpenFileLogger opens the log at path, scanning existing records to pick up
// the next LSN.
func OpenFileLogger(fs afero.Fs, path string, logger src.Logger) (*FileLogger, error) {
	path = filepath.Clean(path)
	if err := fs.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, errors.Wrapf(err, "create directory for %s", path)
	}

	file, err := fs.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, errors.Wrapf(err, "open log %s", path)
	}

	var (
		next LSN = 1
		end  int64
	)
	it := NewIterator(file)
	for {
		r, err := it.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// a torn tail from a crash mid-append is cut off
			logger.Warnw("truncating damaged log tail", "path", path, "offset", end, "error", err)
			break
		}
		next = r.LSN + 1
		end = it.Offset()
	}

	if err := file.Truncate(end); err != nil {
		return nil, multierr.Append(errors.Wrap(err, "truncate log"), file.Close())
	}
	if _, err := file.Seek(end, io.SeekStart); err != nil {
		return nil, multierr.Append(errors.Wrap(err, "seek log"), file.Close())
	}

	return &FileLogger{
		logger:  logger,
		file:    file,
		w:       bufio.NewWriterSize(file, 2*page.PageSize()+recordOverhead),
		nextLSN: next,
	}, nil
}

func (l *FileLogger) append(r *Record) (LSN, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r.LSN = l.nextLSN
	data, err := r.MarshalBinary()
	if err != nil {
		return 0, err
	}

	//nolint:gosec
	if err := binary.Write(l.w, binary.BigEndian, uint32(len(data))); err != nil {
		return 0, errors.Wrap(err, "write record length")
	}
	if _, err := l.w.Write(data); err != nil {
		return 0, errors.Wrap(err, "write record")
	}

	l.nextLSN++
	return r.LSN, nil
}

func (l *FileLogger) LogWrite(tid common.TxnID, before, after *page.HeapPage) error {
	lsn, err := l.append(&Record{
		Type:   TypeUpdate,
		TxnID:  tid,
		PageID: after.ID(),
		Before: before.Data(),
		After:  after.Data(),
	})
	if err != nil {
		return errors.Wrapf(err, "log write of page %s by %s", after.ID(), tid)
	}

	l.logger.Debugw("logged page write", "lsn", lsn, "txn", tid, "page", after.ID())
	return nil
}

func (l *FileLogger) LogCompletion(tid common.TxnID, commit bool) error {
	r := &Record{Type: TypeAbort, TxnID: tid}
	if commit {
		r.Type = TypeCommit
	}

	if _, err := l.append(r); err != nil {
		return errors.Wrapf(err, "log %s of %s", r.Type, tid)
	}
	return l.Force()
}

// Force makes every appended record durable.
func (l *FileLogger) Force() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.w.Flush(); err != nil {
		return errors.Wrap(err, "flush log")
	}
	if err := l.file.Sync(); err != nil {
		return errors.Wrap(err, "sync log")
	}
	return nil
}

func (l *FileLogger) Close() error {
	return multierr.Append(l.Force(), l.file.Close())
}

// ReadAll returns every record in the log at path.
func ReadAll(fs afero.Fs, path string) ([]Record, error) {
	file, err := fs.Open(filepath.Clean(path))
	if err != nil {
		return nil, errors.Wrapf(err, "open log %s", path)
	}
	defer file.Close()

	var records []Record
	it := NewIterator(file)
	for {
		r, err := it.Next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, r)
	}
}
