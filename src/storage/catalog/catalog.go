package catalog

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/storage"
	"github.com/Blackdeer1524/HeapDB/src/storage/tuple"
)

type table struct {
	file       storage.DBFile
	name       string
	primaryKey string
}

// Catalog is the in-memory registry of relations. Table ids are handed out
// by NextTableID and never reused within a process.
type Catalog struct {
	lastID atomic.Uint64

	mu     sync.RWMutex
	byID   map[common.TableID]*table
	byName map[string]common.TableID
}

var _ storage.Catalog = &Catalog{}

func New() *Catalog {
	return &Catalog{
		byID:   make(map[common.TableID]*table),
		byName: make(map[string]common.TableID),
	}
}

// NextTableID allocates an id for a relation file about to be created.
func (c *Catalog) NextTableID() common.TableID {
	return common.TableID(c.lastID.Add(1))
}

// AddTable registers file under name. An existing table with the same name
// or the same id is replaced. An empty name is replaced by a random one.
func (c *Catalog) AddTable(file storage.DBFile, name, primaryKey string) string {
	if name == "" {
		name = uuid.NewString()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.byName[name]; ok {
		delete(c.byID, old)
	}
	if old, ok := c.byID[file.ID()]; ok {
		delete(c.byName, old.name)
	}

	c.byID[file.ID()] = &table{
		file:       file,
		name:       name,
		primaryKey: primaryKey,
	}
	c.byName[name] = file.ID()

	for {
		last := c.lastID.Load()
		if uint64(file.ID()) <= last || c.lastID.CompareAndSwap(last, uint64(file.ID())) {
			break
		}
	}
	return name
}

func (c *Catalog) lookup(id common.TableID) (*table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.byID[id]
	if !ok {
		return nil, errors.Wrapf(common.ErrNoSuchTable, "table id %d", id)
	}
	return t, nil
}

func (c *Catalog) GetTableID(name string) (common.TableID, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.byName[name]
	if !ok {
		return 0, errors.Wrapf(common.ErrNoSuchTable, "table %q", name)
	}
	return id, nil
}

func (c *Catalog) GetTupleDesc(id common.TableID) (*tuple.TupleDesc, error) {
	t, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	return t.file.TupleDesc(), nil
}

func (c *Catalog) GetDatabaseFile(id common.TableID) (storage.DBFile, error) {
	t, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	return t.file, nil
}

func (c *Catalog) GetPrimaryKey(id common.TableID) (string, error) {
	t, err := c.lookup(id)
	if err != nil {
		return "", err
	}
	return t.primaryKey, nil
}

func (c *Catalog) GetTableName(id common.TableID) (string, error) {
	t, err := c.lookup(id)
	if err != nil {
		return "", err
	}
	return t.name, nil
}

// TableIDs lists registered tables in ascending id order.
func (c *Catalog) TableIDs() []common.TableID {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]common.TableID, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Clear forgets every table. Allocated ids are not handed out again.
func (c *Catalog) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.byID = make(map[common.TableID]*table)
	c.byName = make(map[string]common.TableID)
}
