package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/storage"
	"github.com/Blackdeer1524/HeapDB/src/storage/tuple"
)

// stubFile carries just enough of a relation for registry tests.
type stubFile struct {
	storage.DBFile

	id   common.TableID
	desc *tuple.TupleDesc
}

func (f stubFile) ID() common.TableID          { return f.id }
func (f stubFile) TupleDesc() *tuple.TupleDesc { return f.desc }

func TestAddAndLookup(t *testing.T) {
	c := New()
	desc := tuple.Anonymous(tuple.IntType)
	id := c.NextTableID()

	c.AddTable(stubFile{id: id, desc: desc}, "users", "id")

	got, err := c.GetTableID("users")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	gotDesc, err := c.GetTupleDesc(id)
	require.NoError(t, err)
	assert.Same(t, desc, gotDesc)

	file, err := c.GetDatabaseFile(id)
	require.NoError(t, err)
	assert.Equal(t, id, file.ID())

	pk, err := c.GetPrimaryKey(id)
	require.NoError(t, err)
	assert.Equal(t, "id", pk)

	name, err := c.GetTableName(id)
	require.NoError(t, err)
	assert.Equal(t, "users", name)
}

func TestUnknownTable(t *testing.T) {
	c := New()

	_, err := c.GetTableID("missing")
	require.ErrorIs(t, err, common.ErrNoSuchTable)
	_, err = c.GetDatabaseFile(42)
	require.ErrorIs(t, err, common.ErrNoSuchTable)
	_, err = c.GetTupleDesc(42)
	require.ErrorIs(t, err, common.ErrNoSuchTable)
}

func TestAllocatorNeverCollides(t *testing.T) {
	c := New()

	seen := map[common.TableID]struct{}{}
	for range 100 {
		id := c.NextTableID()
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}

	// registering an explicit id moves the allocator past it
	c.AddTable(stubFile{id: 1000, desc: tuple.Anonymous(tuple.IntType)}, "ext", "")
	assert.Greater(t, c.NextTableID(), common.TableID(1000))
}

func TestReplaceByName(t *testing.T) {
	c := New()
	desc := tuple.Anonymous(tuple.IntType)

	c.AddTable(stubFile{id: 1, desc: desc}, "t", "")
	c.AddTable(stubFile{id: 2, desc: desc}, "t", "")

	_, err := c.GetDatabaseFile(1)
	require.ErrorIs(t, err, common.ErrNoSuchTable)

	id, err := c.GetTableID("t")
	require.NoError(t, err)
	assert.Equal(t, common.TableID(2), id)
}

func TestReplaceByID(t *testing.T) {
	c := New()
	desc := tuple.Anonymous(tuple.IntType)

	c.AddTable(stubFile{id: 1, desc: desc}, "old", "")
	c.AddTable(stubFile{id: 1, desc: desc}, "new", "")

	_, err := c.GetTableID("old")
	require.ErrorIs(t, err, common.ErrNoSuchTable)

	name, err := c.GetTableName(1)
	require.NoError(t, err)
	assert.Equal(t, "new", name)
}

func TestDefaultName(t *testing.T) {
	c := New()

	name := c.AddTable(stubFile{id: 1, desc: tuple.Anonymous(tuple.IntType)}, "", "")
	_, err := uuid.Parse(name)
	require.NoError(t, err)
}

func TestTableIDsAndClear(t *testing.T) {
	c := New()
	desc := tuple.Anonymous(tuple.IntType)
	c.AddTable(stubFile{id: 3, desc: desc}, "c", "")
	c.AddTable(stubFile{id: 1, desc: desc}, "a", "")

	assert.Equal(t, []common.TableID{1, 3}, c.TableIDs())

	c.Clear()
	assert.Empty(t, c.TableIDs())
	assert.Greater(t, c.NextTableID(), common.TableID(3))
}
