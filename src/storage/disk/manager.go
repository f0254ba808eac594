package disk

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-faster/errors"
	"github.com/spf13/afero"

	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/storage/page"
)

// Manager performs raw page I/O on a single relation file.
type Manager struct {
	fs   afero.Fs
	path string

	// serializes file growth so two appenders never claim the same page
	extendMu sync.Mutex
}

// New opens (creating if needed) the relation file at path.
func New(fs afero.Fs, path string) (*Manager, error) {
	path = filepath.Clean(path)
	if err := fs.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, errors.Wrapf(err, "create directory for %s", path)
	}

	f, err := fs.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, errors.Wrapf(err, "open relation file %s", path)
	}
	if err := f.Close(); err != nil {
		return nil, errors.Wrapf(err, "close relation file %s", path)
	}

	return &Manager{fs: fs, path: path}, nil
}

func (m *Manager) Path() string {
	return m.path
}

// NumPages is recomputed from the file length on every call.
func (m *Manager) NumPages() (int, error) {
	info, err := m.fs.Stat(m.path)
	if err != nil {
		return 0, errors.Wrapf(err, "stat %s", m.path)
	}
	return int(info.Size() / int64(page.PageSize())), nil
}

func (m *Manager) ReadPage(pageNum common.PageNum) ([]byte, error) {
	f, err := m.fs.Open(m.path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", m.path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", m.path)
	}

	size := int64(page.PageSize())
	//nolint:gosec
	offset := int64(pageNum) * size
	if offset >= info.Size() {
		return nil, errors.Wrapf(
			common.ErrPageOutOfRange,
			"page %d of %s (file has %d bytes)", pageNum, m.path, info.Size(),
		)
	}

	data := make([]byte, size)
	n, err := f.ReadAt(data, offset)
	if n < len(data) {
		return nil, errors.Wrapf(
			common.ErrCorruptedFile,
			"short read of page %d in %s: %d of %d bytes", pageNum, m.path, n, size,
		)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(err, "read page %d of %s", pageNum, m.path)
	}

	return data, nil
}

// WritePage overwrites the page in place and syncs the file before returning.
func (m *Manager) WritePage(pageNum common.PageNum, data []byte) error {
	if len(data) != page.PageSize() {
		return errors.Errorf(
			"page %d: expected %d bytes, got %d", pageNum, page.PageSize(), len(data),
		)
	}

	f, err := m.fs.OpenFile(m.path, os.O_WRONLY, 0o600)
	if err != nil {
		return errors.Wrapf(err, "open %s", m.path)
	}

	//nolint:gosec
	offset := int64(pageNum) * int64(page.PageSize())
	if _, err := f.WriteAt(data, offset); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "write page %d of %s", pageNum, m.path)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "sync %s", m.path)
	}

	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "close %s", m.path)
	}
	return nil
}

// AppendEmptyPage grows the file by one zeroed page and returns its number.
func (m *Manager) AppendEmptyPage() (common.PageNum, error) {
	m.extendMu.Lock()
	defer m.extendMu.Unlock()

	return m.appendLocked()
}

// Extend appends an empty page unless the file already has more than seen
// pages, in which case a concurrent appender has made room and the caller
// should rescan.
func (m *Manager) Extend(seen int) error {
	m.extendMu.Lock()
	defer m.extendMu.Unlock()

	n, err := m.NumPages()
	if err != nil {
		return err
	}
	if n > seen {
		return nil
	}

	_, err = m.appendLocked()
	return err
}

func (m *Manager) appendLocked() (common.PageNum, error) {
	n, err := m.NumPages()
	if err != nil {
		return 0, err
	}

	pageNum := common.PageNum(n) //nolint:gosec
	if err := m.WritePage(pageNum, page.EmptyPageData()); err != nil {
		return 0, errors.Wrap(err, "append empty page")
	}
	return pageNum, nil
}
