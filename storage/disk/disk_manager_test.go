package disk

import (
	"errors"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPageSize = 512

func TestDiskManager(t *testing.T) {
	t.Run("test reading and writing a page", func(t *testing.T) {
		dm := newTestManager(t)

		buf := make([]byte, testPageSize)
		copy(buf, []byte("hello world"))

		err := dm.WritePage(1, buf)
		assert.NoError(t, err)

		res, err := dm.ReadPage(1)
		assert.NoError(t, err)
		assert.Equal(t, buf, res)
		assert.Equal(t, int64(2), dm.NumPages())
	})

	t.Run("test db file gets resized when full", func(t *testing.T) {
		dm := newTestManager(t)

		err := dm.WritePage(DEFAULT_PAGE_CAPACITY, make([]byte, testPageSize))
		assert.NoError(t, err)
		assert.Equal(t, int64(DEFAULT_PAGE_CAPACITY*2), dm.pageCapacity)

		fileInfo, err := os.Stat(dm.Name())
		assert.NoError(t, err)
		assert.Equal(t, int64(testPageSize*DEFAULT_PAGE_CAPACITY*2), fileInfo.Size())
	})

	t.Run("reading past the end is a short read", func(t *testing.T) {
		dm := newTestManager(t)

		_, err := dm.ReadPage(3)
		assert.True(t, errors.Is(err, ErrShortRead))
	})

	t.Run("writes must be exactly one page", func(t *testing.T) {
		dm := newTestManager(t)

		err := dm.WritePage(0, make([]byte, testPageSize-1))
		assert.Error(t, err)
	})

	t.Run("allocate reuses free slots", func(t *testing.T) {
		dm := newTestManager(t)

		first := dm.AllocatePage()
		second := dm.AllocatePage()
		assert.Equal(t, int64(0), first)
		assert.Equal(t, int64(1), second)

		dm.DeallocatePage(first)
		assert.Equal(t, 1, dm.FreePages())
		assert.Equal(t, first, dm.AllocatePage())
		assert.Equal(t, int64(2), dm.AllocatePage())
	})

	t.Run("page count survives reopen", func(t *testing.T) {
		file := CreateDbFile(t)
		dm, err := NewDiskManager(file, testPageSize)
		require.NoError(t, err)
		require.NoError(t, dm.WritePage(2, make([]byte, testPageSize)))
		require.NoError(t, dm.Close())

		reopened, err := os.OpenFile(file.Name(), os.O_RDWR, 0644)
		require.NoError(t, err)
		dm, err = NewDiskManager(reopened, testPageSize)
		require.NoError(t, err)
		t.Cleanup(func() { _ = dm.Close() })

		assert.Equal(t, int64(3), dm.NumPages())
	})
}

func newTestManager(t *testing.T) *DiskManager {
	t.Helper()
	dm, err := NewDiskManager(CreateDbFile(t), testPageSize)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })
	return dm
}

func CreateDbFile(t *testing.T) *os.File {
	t.Helper()
	dbFile := path.Join(t.TempDir(), "test.db")

	file, err := os.OpenFile(dbFile, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err, "failed creating db file")
	return file
}
