package index

import (
	"fmt"

	"github.com/jobala/rstar/buffer"
	"github.com/jobala/rstar/storage"
	"github.com/jobala/rstar/util"
)

// indexStore reads and writes nodes through the page store. While buffering,
// node writes are staged in memory and every read checks the stage first.
// It also owns the record id to data page map.
type indexStore struct {
	ps          *storage.PageStore
	pending     *buffer.WriteBuffer[*Node]
	buffering   bool
	maxEntries  int
	recordPages map[int64]int64
}

func newIndexStore(ps *storage.PageStore, maxEntries int) *indexStore {
	return &indexStore{
		ps:          ps,
		pending:     buffer.NewWriteBuffer[*Node](),
		maxEntries:  maxEntries,
		recordPages: map[int64]int64{},
	}
}

// readNode returns a private copy of the node at pageId.
func (s *indexStore) readNode(pageId int64) (*Node, error) {
	if n, ok := s.pending.Get(pageId); ok {
		return n.clone(), nil
	}

	page, err := s.ps.ReadPage(storage.IndexFile, pageId)
	if err != nil {
		return nil, err
	}
	return decodeNode(pageId, page)
}

func (s *indexStore) writeNode(n *Node) error {
	if n.getSize() > s.maxEntries {
		panic(util.NewInvariantError(fmt.Sprintf("writing node %d with %d entries, max is %d", n.PageID, n.getSize(), s.maxEntries)))
	}

	if s.buffering {
		s.pending.Put(n.PageID, n.clone())
		return nil
	}
	return s.writeThrough(n.PageID, n)
}

func (s *indexStore) writeThrough(pageId int64, n *Node) error {
	page, err := encodeNode(n, s.ps.PageSize())
	if err != nil {
		return fmt.Errorf("encoding node %d: %w", pageId, err)
	}
	return s.ps.WritePage(storage.IndexFile, pageId, page)
}

func (s *indexStore) allocNode(level int) (*Node, error) {
	pageId, err := s.ps.AllocateIndexPage()
	if err != nil {
		return nil, err
	}
	return &Node{PageID: pageId, Level: level}, nil
}

// freeNode releases pageId for reuse. Anything staged for it is dropped.
func (s *indexStore) freeNode(pageId int64) {
	s.pending.Delete(pageId)
	s.ps.FreeIndexPage(pageId)
}

func (s *indexStore) beginBuffering() {
	s.buffering = true
}

// flush writes every staged node to disk and returns to write through mode.
func (s *indexStore) flush() error {
	if err := s.pending.Flush(s.writeThrough); err != nil {
		return err
	}
	s.buffering = false
	return nil
}

// discard drops every staged node, returns to write through mode and reports
// which pages were staged.
func (s *indexStore) discard() []int64 {
	s.buffering = false
	return s.pending.Discard()
}
