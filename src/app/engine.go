package app

import (
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/Blackdeer1524/HeapDB/src"
	"github.com/Blackdeer1524/HeapDB/src/bufferpool"
	"github.com/Blackdeer1524/HeapDB/src/cfg"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/recovery"
	"github.com/Blackdeer1524/HeapDB/src/storage/catalog"
	"github.com/Blackdeer1524/HeapDB/src/storage/disk"
	"github.com/Blackdeer1524/HeapDB/src/storage/heap"
	"github.com/Blackdeer1524/HeapDB/src/storage/page"
	"github.com/Blackdeer1524/HeapDB/src/storage/tuple"
)

const tableFileExt = ".dat"

// Engine wires the storage components for one data directory.
type Engine struct {
	fs      afero.Fs
	cfg     cfg.Config
	log     src.Logger
	txnLog  *recovery.FileLogger
	catalog *catalog.Catalog
	pool    *bufferpool.Manager
}

func OpenEngine(fs afero.Fs, c cfg.Config, log src.Logger, opts ...bufferpool.Option) (*Engine, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.PageSize != page.PageSize() {
		page.SetPageSize(c.PageSize)
	}

	if err := fs.MkdirAll(c.DataDir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "create data dir %s", c.DataDir)
	}

	txnLog, err := recovery.OpenFileLogger(fs, c.TxnLogPath(), log)
	if err != nil {
		return nil, err
	}

	poolOpts := []bufferpool.Option{
		bufferpool.WithLockTimeout(c.LockTimeout),
		bufferpool.WithTxnLogger(txnLog),
	}
	if c.LockPoolCapacity > 0 {
		poolOpts = append(poolOpts, bufferpool.WithLockPoolCapacity(c.LockPoolCapacity))
	}
	poolOpts = append(poolOpts, opts...)

	cat := catalog.New()
	pool, err := bufferpool.New(c.PoolPages, cat, log, poolOpts...)
	if err != nil {
		return nil, multierr.Append(err, txnLog.Close())
	}

	log.Infow(
		"engine opened",
		"data_dir", c.DataDir,
		"pool_pages", c.PoolPages,
		"page_size", c.PageSize,
		"lock_timeout", c.LockTimeout,
	)

	return &Engine{
		fs:      fs,
		cfg:     c,
		log:     log,
		txnLog:  txnLog,
		catalog: cat,
		pool:    pool,
	}, nil
}

func (e *Engine) Pool() *bufferpool.Manager {
	return e.pool
}

func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// OpenTable registers the relation stored in <data dir>/<name>.dat, creating
// an empty file if there is none. Schemas are not persisted, so the caller
// supplies it.
func (e *Engine) OpenTable(name string, desc *tuple.TupleDesc) (*heap.File, error) {
	if id, err := e.catalog.GetTableID(name); err == nil {
		file, err := e.catalog.GetDatabaseFile(id)
		if err != nil {
			return nil, err
		}
		if !file.TupleDesc().Equals(desc) {
			return nil, errors.Wrapf(common.ErrSchemaMismatch, "table %q is %s", name, file.TupleDesc())
		}
		return file.(*heap.File), nil
	}

	if page.NumSlots(desc) == 0 {
		return nil, errors.Wrapf(common.ErrTupleTooWide, "table %q", name)
	}

	dm, err := disk.New(e.fs, filepath.Join(e.cfg.DataDir, name+tableFileExt))
	if err != nil {
		return nil, err
	}

	file := heap.New(e.catalog.NextTableID(), desc, dm, e.pool)
	e.catalog.AddTable(file, name, "")

	e.log.Debugw("table opened", "name", name, "id", file.ID(), "path", file.Path())
	return file, nil
}

// Do runs fn in a fresh transaction, committing when fn succeeds and
// aborting otherwise.
func (e *Engine) Do(fn func(tid common.TxnID) error) error {
	tid := common.NewTxnID()

	if err := fn(tid); err != nil {
		return multierr.Append(err, e.pool.TransactionComplete(tid, false))
	}
	return e.pool.TransactionComplete(tid, true)
}

// Close releases the log. Committed pages are already on disk and
// uncommitted ones are never written.
func (e *Engine) Close() error {
	return e.txnLog.Close()
}
