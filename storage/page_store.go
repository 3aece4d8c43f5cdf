package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/jobala/rstar/buffer"
	"github.com/jobala/rstar/logger"
	"github.com/jobala/rstar/storage/disk"
	"github.com/jobala/rstar/util"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Options struct {
	DataPath   string
	IndexPath  string
	PageSize   int
	Dimensions int
	// CachePages bounds the number of decoded data pages kept in memory.
	CachePages int
	Logger     *zap.Logger
	Registerer prometheus.Registerer
}

// PageStore owns the data file (pages of records) and the index file (pages of
// encoded tree nodes). It is not safe for concurrent use.
type PageStore struct {
	data      *disk.DiskManager
	index     *disk.DiskManager
	dataMeta  Metadata
	indexMeta Metadata
	cache     *buffer.PageCache[[]Record]
	metrics   *Metrics
	log       *zap.Logger
}

// Create truncates both files and writes fresh metadata pages.
func Create(opts Options) (*PageStore, error) {
	if opts.Dimensions < 1 {
		return nil, util.NewConfigError(fmt.Sprintf("invalid dimensions %d", opts.Dimensions), nil)
	}
	if opts.PageSize < MIN_PAGE_SIZE {
		return nil, util.NewConfigError(fmt.Sprintf("page size %d is below %d", opts.PageSize, MIN_PAGE_SIZE), nil)
	}

	ps, err := newPageStore(opts, os.O_CREATE|os.O_RDWR|os.O_TRUNC)
	if err != nil {
		return nil, err
	}

	meta := Metadata{
		Dimensions: int32(opts.Dimensions),
		PageSize:   int32(opts.PageSize),
		TotalPages: 1,
	}
	ps.dataMeta, ps.indexMeta = meta, meta
	if err := ps.WriteMetadata(DataFile, meta); err != nil {
		ps.closeFiles()
		return nil, err
	}
	if err := ps.WriteMetadata(IndexFile, meta); err != nil {
		ps.closeFiles()
		return nil, err
	}

	ps.log.Info("created page store",
		zap.String("data_file", opts.DataPath),
		zap.String("index_file", opts.IndexPath),
		zap.Int("page_size", opts.PageSize),
		zap.Int("dimensions", opts.Dimensions))
	return ps, nil
}

// Open reopens existing files. The page size must match the one they were
// created with; dimensions are taken from the metadata when opts leaves them zero.
func Open(opts Options) (*PageStore, error) {
	if opts.PageSize < MIN_PAGE_SIZE {
		return nil, util.NewConfigError(fmt.Sprintf("page size %d is below %d", opts.PageSize, MIN_PAGE_SIZE), nil)
	}

	dataMeta, err := peekMetadata(opts.DataPath, DataFile)
	if err != nil {
		return nil, err
	}
	indexMeta, err := peekMetadata(opts.IndexPath, IndexFile)
	if err != nil {
		return nil, err
	}

	ps, err := newPageStore(opts, os.O_RDWR)
	if err != nil {
		return nil, err
	}
	ps.dataMeta, ps.indexMeta = dataMeta, indexMeta

	if err := ps.checkMetadata(opts); err != nil {
		ps.closeFiles()
		return nil, err
	}

	ps.log.Info("opened page store",
		zap.String("data_file", opts.DataPath),
		zap.String("index_file", opts.IndexPath),
		zap.Int32("data_pages", ps.dataMeta.TotalPages),
		zap.Int32("index_pages", ps.indexMeta.TotalPages),
		zap.Int32("tree_height", ps.indexMeta.TreeHeight))
	return ps, nil
}

func newPageStore(opts Options, flag int) (*PageStore, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = logger.ForStore(log, opts.DataPath, opts.IndexPath, opts.PageSize)

	metrics, err := NewMetrics(opts.Registerer)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	data, err := openDisk(opts.DataPath, opts.PageSize, flag)
	if err != nil {
		return nil, err
	}
	index, err := openDisk(opts.IndexPath, opts.PageSize, flag)
	if err != nil {
		_ = data.Close()
		return nil, err
	}

	return &PageStore{
		data:    data,
		index:   index,
		cache:   buffer.NewPageCache[[]Record](opts.CachePages),
		metrics: metrics,
		log:     log,
	}, nil
}

// peekMetadata decodes page 0 of path without knowing the page size the file
// was created with, so a mismatch is reported as such rather than as a short read.
func peekMetadata(path string, kind FileKind) (Metadata, error) {
	file, err := os.Open(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	header := make([]byte, MIN_PAGE_SIZE)
	n, err := io.ReadFull(file, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Metadata{}, fmt.Errorf("reading %s: %w", path, err)
	}

	meta, err := util.ToStruct[Metadata](header[:n])
	if err != nil {
		return Metadata{}, util.NewCorruptionError(fmt.Sprintf("missing %s metadata page", kind), err)
	}
	return meta, nil
}

func openDisk(path string, pageSize, flag int) (*disk.DiskManager, error) {
	file, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	dm, err := disk.NewDiskManager(file, pageSize)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return dm, nil
}

func (ps *PageStore) checkMetadata(opts Options) error {
	for _, meta := range []Metadata{ps.dataMeta, ps.indexMeta} {
		if int(meta.PageSize) != opts.PageSize {
			return util.NewConfigError(fmt.Sprintf("file page size %d does not match configured %d", meta.PageSize, opts.PageSize), nil)
		}
		if meta.Dimensions < 1 {
			return util.NewCorruptionError(fmt.Sprintf("metadata holds invalid dimensions %d", meta.Dimensions), nil)
		}
	}

	if ps.dataMeta.Dimensions != ps.indexMeta.Dimensions {
		return util.NewCorruptionError("data and index files disagree on dimensions", nil)
	}
	if opts.Dimensions != 0 && int(ps.dataMeta.Dimensions) != opts.Dimensions {
		return util.NewConfigError(fmt.Sprintf("files hold %d dimensions, configured %d", ps.dataMeta.Dimensions, opts.Dimensions), nil)
	}
	return nil
}

func (ps *PageStore) diskFor(kind FileKind) *disk.DiskManager {
	if kind == IndexFile {
		return ps.index
	}
	return ps.data
}

// ReadPage reads exactly one page. A page past the end of the file is a corruption.
func (ps *PageStore) ReadPage(kind FileKind, pageId int64) ([]byte, error) {
	page, err := ps.diskFor(kind).ReadPage(pageId)
	if err != nil {
		if errors.Is(err, disk.ErrShortRead) {
			return nil, util.NewCorruptionError(fmt.Sprintf("reading %s page %d", kind, pageId), err)
		}
		return nil, err
	}

	ps.metrics.PagesRead.WithLabelValues(kind.String()).Inc()
	return page, nil
}

func (ps *PageStore) WritePage(kind FileKind, pageId int64, page []byte) error {
	if err := ps.diskFor(kind).WritePage(pageId, page); err != nil {
		return fmt.Errorf("writing %s page %d: %w", kind, pageId, err)
	}

	ps.metrics.PagesWritten.WithLabelValues(kind.String()).Inc()
	return nil
}

func (ps *PageStore) ReadMetadata(kind FileKind) (Metadata, error) {
	page, err := ps.ReadPage(kind, METADATA_PAGE_ID)
	if err != nil {
		return Metadata{}, util.NewCorruptionError(fmt.Sprintf("missing %s metadata page", kind), err)
	}

	meta, err := util.ToStruct[Metadata](page)
	if err != nil {
		return Metadata{}, util.NewCorruptionError(fmt.Sprintf("decoding %s metadata", kind), err)
	}
	return meta, nil
}

func (ps *PageStore) WriteMetadata(kind FileKind, meta Metadata) error {
	page, err := util.ToByteSlice(meta, ps.PageSize())
	if err != nil {
		return err
	}
	if err := ps.WritePage(kind, METADATA_PAGE_ID, page); err != nil {
		return err
	}

	if kind == IndexFile {
		ps.indexMeta = meta
	} else {
		ps.dataMeta = meta
	}
	return nil
}

// ReadDataPage returns the records of a data page. The returned slice belongs
// to the caller.
func (ps *PageStore) ReadDataPage(pageId int64) ([]Record, error) {
	if pageId <= METADATA_PAGE_ID || pageId >= int64(ps.dataMeta.TotalPages) {
		return nil, util.NewCorruptionError(fmt.Sprintf("data page %d does not exist", pageId), nil)
	}

	if records, ok := ps.cache.Get(pageId); ok {
		return slices.Clone(records), nil
	}

	page, err := ps.ReadPage(DataFile, pageId)
	if err != nil {
		return nil, err
	}

	records, err := util.ToStruct[[]Record](page)
	if err != nil {
		return nil, util.NewCorruptionError(fmt.Sprintf("decoding data page %d", pageId), err)
	}

	ps.cache.Put(pageId, slices.Clone(records))
	return records, nil
}

// WriteDataPage rewrites an existing data page in place.
func (ps *PageStore) WriteDataPage(pageId int64, records []Record) error {
	if pageId <= METADATA_PAGE_ID || pageId >= int64(ps.dataMeta.TotalPages) {
		return util.NewCorruptionError(fmt.Sprintf("data page %d does not exist", pageId), nil)
	}

	if err := ps.writeRecords(pageId, records); err != nil {
		return err
	}
	return nil
}

// AppendDataPage writes records to a new page at the end of the data file and
// returns its id.
func (ps *PageStore) AppendDataPage(records []Record) (int64, error) {
	pageId := int64(ps.dataMeta.TotalPages)
	if err := ps.writeRecords(pageId, records); err != nil {
		return disk.INVALID_PAGE_ID, err
	}

	meta := ps.dataMeta
	meta.TotalPages++
	if err := ps.WriteMetadata(DataFile, meta); err != nil {
		return disk.INVALID_PAGE_ID, err
	}

	ps.log.Debug("appended data page", zap.Int64("page_id", pageId), zap.Int("records", len(records)))
	return pageId, nil
}

func (ps *PageStore) writeRecords(pageId int64, records []Record) error {
	for _, r := range records {
		if len(r.Coordinates) != ps.Dimensions() {
			return util.NewConfigError(fmt.Sprintf("record %d has %d coordinates, want %d", r.ID, len(r.Coordinates), ps.Dimensions()), nil)
		}
	}

	page, err := util.ToByteSlice(records, ps.PageSize())
	if err != nil {
		return util.NewConfigError(fmt.Sprintf("data page %d", pageId), err)
	}
	if err := ps.WritePage(DataFile, pageId, page); err != nil {
		return err
	}

	ps.cache.Put(pageId, slices.Clone(records))
	return nil
}

// FitsInPage reports whether records serialize into a single page.
func (ps *PageStore) FitsInPage(records []Record) bool {
	size, err := util.EncodedSize(records)
	return err == nil && size <= ps.PageSize()
}

// LastDataPage returns the id of the last data page, or INVALID_PAGE_ID when
// the data file holds only its metadata page.
func (ps *PageStore) LastDataPage() int64 {
	if ps.dataMeta.TotalPages <= 1 {
		return disk.INVALID_PAGE_ID
	}
	return int64(ps.dataMeta.TotalPages) - 1
}

func (ps *PageStore) DataPageCount() int {
	return int(ps.dataMeta.TotalPages) - 1
}

// ForEachDataPage calls fn for every data page in page order.
func (ps *PageStore) ForEachDataPage(fn func(pageId int64, records []Record) error) error {
	for pageId := int64(1); pageId < int64(ps.dataMeta.TotalPages); pageId++ {
		records, err := ps.ReadDataPage(pageId)
		if err != nil {
			return err
		}
		if err := fn(pageId, records); err != nil {
			return err
		}
	}
	return nil
}

// AllocateIndexPage returns a page id that is free in the index file.
func (ps *PageStore) AllocateIndexPage() (int64, error) {
	pageId := ps.index.AllocatePage()
	if pageId >= int64(ps.indexMeta.TotalPages) {
		meta := ps.indexMeta
		meta.TotalPages = int32(pageId + 1)
		if err := ps.WriteMetadata(IndexFile, meta); err != nil {
			return disk.INVALID_PAGE_ID, err
		}
	}
	return pageId, nil
}

// FreeIndexPage returns pageId to the allocator. Freed pages are reused within
// this process only.
func (ps *PageStore) FreeIndexPage(pageId int64) {
	ps.index.DeallocatePage(pageId)
}

func (ps *PageStore) TreeHeight() int {
	return int(ps.indexMeta.TreeHeight)
}

func (ps *PageStore) SetTreeHeight(height int) error {
	if int(ps.indexMeta.TreeHeight) == height {
		return nil
	}

	meta := ps.indexMeta
	meta.TreeHeight = int32(height)
	return ps.WriteMetadata(IndexFile, meta)
}

func (ps *PageStore) Dimensions() int {
	return int(ps.dataMeta.Dimensions)
}

func (ps *PageStore) PageSize() int {
	return ps.data.PageSize()
}

func (ps *PageStore) Metrics() *Metrics {
	return ps.metrics
}

func (ps *PageStore) Logger() *zap.Logger {
	return ps.log
}

// Sync flushes both files to stable storage.
func (ps *PageStore) Sync() error {
	if err := ps.data.Sync(); err != nil {
		return err
	}
	return ps.index.Sync()
}

func (ps *PageStore) Close() error {
	return errors.Join(ps.data.Close(), ps.index.Close())
}

func (ps *PageStore) closeFiles() {
	_ = ps.data.Close()
	_ = ps.index.Close()
}
