package disk

import (
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	DEFAULT_PAGE_SIZE     = 32 * 1024
	DEFAULT_PAGE_CAPACITY = 4
	INVALID_PAGE_ID       = -1
)

var ErrShortRead = errors.New("short page read")

// DiskManager reads and writes fixed size pages of a single file. Page i lives
// at offset i*pageSize. The file grows by doubling its page capacity.
type DiskManager struct {
	file         *os.File
	pageSize     int
	numPages     int64
	pageCapacity int64
	freeSlots    []int64
}

func NewDiskManager(file *os.File, pageSize int) (*DiskManager, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("invalid page size %d", pageSize)
	}

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("error reading size of %s: %w", file.Name(), err)
	}

	numPages := info.Size() / int64(pageSize)
	return &DiskManager{
		file:         file,
		pageSize:     pageSize,
		numPages:     numPages,
		pageCapacity: max(numPages, DEFAULT_PAGE_CAPACITY),
		freeSlots:    []int64{},
	}, nil
}

func (dm *DiskManager) PageSize() int {
	return dm.pageSize
}

// NumPages is one past the highest page id ever written.
func (dm *DiskManager) NumPages() int64 {
	return dm.numPages
}

func (dm *DiskManager) Name() string {
	return dm.file.Name()
}

func (dm *DiskManager) ReadPage(pageId int64) ([]byte, error) {
	if pageId < 0 {
		return nil, fmt.Errorf("invalid page id %d", pageId)
	}

	buf := make([]byte, dm.pageSize)
	offset := pageId * int64(dm.pageSize)
	n, err := dm.file.ReadAt(buf, offset)
	if n < dm.pageSize {
		if err == nil || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: page %d returned %d of %d bytes", ErrShortRead, pageId, n, dm.pageSize)
		}
		return nil, fmt.Errorf("error reading from offset %d: %w", offset, err)
	}

	return buf, nil
}

func (dm *DiskManager) WritePage(pageId int64, data []byte) error {
	if len(data) != dm.pageSize {
		return fmt.Errorf("page %d has %d bytes, want %d", pageId, len(data), dm.pageSize)
	}
	if pageId < 0 {
		return fmt.Errorf("invalid page id %d", pageId)
	}

	if err := dm.ensureCapacity(pageId + 1); err != nil {
		return err
	}

	offset := pageId * int64(dm.pageSize)
	if _, err := dm.file.WriteAt(data, offset); err != nil {
		return fmt.Errorf("error writing at offset %d: %w", offset, err)
	}

	if pageId >= dm.numPages {
		dm.numPages = pageId + 1
	}
	return nil
}

// AllocatePage hands out a previously freed page id, or the next id past the end.
func (dm *DiskManager) AllocatePage() int64 {
	if len(dm.freeSlots) > 0 {
		pageId := dm.freeSlots[len(dm.freeSlots)-1]
		dm.freeSlots = dm.freeSlots[:len(dm.freeSlots)-1]
		return pageId
	}

	pageId := dm.numPages
	dm.numPages++
	return pageId
}

// DeallocatePage makes pageId available to AllocatePage. The free list is not
// persisted; pages freed before a restart stay unused.
func (dm *DiskManager) DeallocatePage(pageId int64) {
	dm.freeSlots = append(dm.freeSlots, pageId)
}

func (dm *DiskManager) FreePages() int {
	return len(dm.freeSlots)
}

func (dm *DiskManager) Sync() error {
	return dm.file.Sync()
}

func (dm *DiskManager) Close() error {
	if err := dm.file.Sync(); err != nil {
		return fmt.Errorf("error syncing %s: %w", dm.file.Name(), err)
	}
	return dm.file.Close()
}

func (dm *DiskManager) ensureCapacity(pages int64) error {
	if pages <= dm.pageCapacity {
		return nil
	}

	for dm.pageCapacity < pages {
		dm.pageCapacity *= 2
	}
	if err := dm.file.Truncate(dm.pageCapacity * int64(dm.pageSize)); err != nil {
		return fmt.Errorf("error resizing db file: %w", err)
	}
	return nil
}
