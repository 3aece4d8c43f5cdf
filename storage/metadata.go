package storage

// FileKind selects one of the two files managed by a PageStore.
type FileKind int

const (
	DataFile FileKind = iota
	IndexFile
)

func (k FileKind) String() string {
	if k == IndexFile {
		return "index"
	}
	return "data"
}

const (
	METADATA_PAGE_ID = 0
	MIN_PAGE_SIZE    = 512
)

// Metadata is stored at page 0 of both files and is the source of truth on reopen.
// TreeHeight is only meaningful for the index file.
type Metadata struct {
	Dimensions int32 `msgpack:"dimensions"`
	PageSize   int32 `msgpack:"page_size"`
	TotalPages int32 `msgpack:"total_pages"`
	TreeHeight int32 `msgpack:"tree_height"`
}
