package recovery

import (
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Blackdeer1524/HeapDB/src"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/storage/page"
	"github.com/Blackdeer1524/HeapDB/src/storage/tuple"
)

const logPath = "/data/heapdb.log"

func pageWith(t *testing.T, values ...int32) *page.HeapPage {
	t.Helper()

	desc := tuple.Anonymous(tuple.IntType)
	p, err := page.NewHeapPage(
		common.PageIdentity{TableID: 1, PageNum: 2},
		desc,
		page.EmptyPageData(),
	)
	require.NoError(t, err)
	for _, v := range values {
		require.NoError(t, p.InsertTuple(tuple.Ints(desc, v)))
	}
	return p
}

func TestLogWriteIsReadBack(t *testing.T) {
	fs := afero.NewMemMapFs()

	l, err := OpenFileLogger(fs, logPath, src.NopLogger())
	require.NoError(t, err)

	before := pageWith(t)
	after := pageWith(t, 10, 20)
	require.NoError(t, l.LogWrite(5, before, after))
	require.NoError(t, l.LogCompletion(5, true))
	require.NoError(t, l.LogCompletion(6, false))
	require.NoError(t, l.Close())

	records, err := ReadAll(fs, logPath)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, TypeUpdate, records[0].Type)
	assert.Equal(t, LSN(1), records[0].LSN)
	assert.Equal(t, common.TxnID(5), records[0].TxnID)
	assert.Equal(t, after.ID(), records[0].PageID)
	assert.Equal(t, before.Data(), records[0].Before)
	assert.Equal(t, after.Data(), records[0].After)

	assert.Equal(t, TypeCommit, records[1].Type)
	assert.Equal(t, TypeAbort, records[2].Type)
	assert.Equal(t, LSN(3), records[2].LSN)
}

func TestNothingVisibleBeforeForce(t *testing.T) {
	fs := afero.NewMemMapFs()

	l, err := OpenFileLogger(fs, logPath, src.NopLogger())
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.LogWrite(1, pageWith(t), pageWith(t, 1)))

	records, err := ReadAll(fs, logPath)
	require.NoError(t, err)
	assert.Empty(t, records, "an update record is buffered until forced")

	require.NoError(t, l.Force())
	records, err = ReadAll(fs, logPath)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestReopenContinuesLSN(t *testing.T) {
	fs := afero.NewMemMapFs()

	l, err := OpenFileLogger(fs, logPath, src.NopLogger())
	require.NoError(t, err)
	require.NoError(t, l.LogCompletion(1, true))
	require.NoError(t, l.LogCompletion(2, true))
	require.NoError(t, l.Close())

	l, err = OpenFileLogger(fs, logPath, src.NopLogger())
	require.NoError(t, err)
	require.NoError(t, l.LogCompletion(3, false))
	require.NoError(t, l.Close())

	records, err := ReadAll(fs, logPath)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, LSN(3), records[2].LSN)
}

func TestTornTailIsTruncated(t *testing.T) {
	fs := afero.NewMemMapFs()

	l, err := OpenFileLogger(fs, logPath, src.NopLogger())
	require.NoError(t, err)
	require.NoError(t, l.LogCompletion(1, true))
	require.NoError(t, l.Close())

	f, err := fs.OpenFile(logPath, os.O_WRONLY|os.O_APPEND, 0o600)
	require.NoError(t, err)
	_, err = f.Write([]byte{0, 0, 0, 100, 1, 2})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = ReadAll(fs, logPath)
	require.Error(t, err)

	l, err = OpenFileLogger(fs, logPath, src.NopLogger())
	require.NoError(t, err)
	require.NoError(t, l.LogCompletion(2, true))
	require.NoError(t, l.Close())

	records, err := ReadAll(fs, logPath)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, LSN(2), records[1].LSN)
}

func TestForceSucceedsOnEmptyLog(t *testing.T) {
	fs := afero.NewMemMapFs()

	l, err := OpenFileLogger(fs, logPath, src.NopLogger())
	require.NoError(t, err)
	require.NoError(t, l.Force())
	require.NoError(t, l.Force())
	require.NoError(t, l.Close())

	records, err := ReadAll(fs, logPath)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNoLogs(t *testing.T) {
	l := NoLogs()
	require.NoError(t, l.LogWrite(1, pageWith(t), pageWith(t)))
	require.NoError(t, l.Force())
}
