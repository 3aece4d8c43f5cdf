// Package index implements a disk backed R*-tree over the pages of a
// storage.PageStore.
package index

import (
	"errors"
	"fmt"

	"github.com/jobala/rstar/storage"
	"github.com/jobala/rstar/util"
	"go.uber.org/zap"
)

const (
	DEFAULT_REINSERT_FRACTION = 0.3
	DEFAULT_CANDIDATES        = 32
	MIN_MAX_ENTRIES           = 4
)

type Options struct {
	// MaxEntries overrides the fan-out derived from the page size. Zero derives it.
	MaxEntries int
	// ReinsertFraction of M entries are moved out of an overflowing node by a
	// forced reinsertion.
	ReinsertFraction float64
	// ChooseSubtreeCandidates bounds the entries examined by the overlap rule.
	ChooseSubtreeCandidates int
	Logger                  *zap.Logger
}

type Tree struct {
	ps             *storage.PageStore
	store          *indexStore
	maxEntries     int
	minEntries     int
	reinsertCount  int
	candidates     int
	levelsInserted map[int]bool
	metrics        *storage.Metrics
	log            *zap.Logger
}

// Create starts an empty tree on a fresh store: a single empty leaf root.
func Create(ps *storage.PageStore, opts Options) (*Tree, error) {
	t, err := newTree(ps, opts)
	if err != nil {
		return nil, err
	}

	root, err := t.store.allocNode(LEAF_LEVEL)
	if err != nil {
		return nil, err
	}
	if root.PageID != ROOT_PAGE_ID {
		return nil, util.NewConfigError(fmt.Sprintf("index file is not empty, root allocated at page %d", root.PageID), nil)
	}
	if err := t.store.writeNode(root); err != nil {
		return nil, err
	}
	if err := ps.SetTreeHeight(root.Level); err != nil {
		return nil, err
	}

	t.log.Info("created index", zap.Int("max_entries", t.maxEntries), zap.Int("min_entries", t.minEntries))
	return t, nil
}

// Open loads an existing tree and rebuilds the record to page map by walking it.
func Open(ps *storage.PageStore, opts Options) (*Tree, error) {
	t, err := newTree(ps, opts)
	if err != nil {
		return nil, err
	}

	root, err := t.store.readNode(ROOT_PAGE_ID)
	if err != nil {
		return nil, util.NewCorruptionError("reading root node", err)
	}
	if root.Level != ps.TreeHeight() {
		return nil, util.NewCorruptionError(fmt.Sprintf("root level %d does not match tree height %d", root.Level, ps.TreeHeight()), nil)
	}

	if err := t.rebuildRecordPages(); err != nil {
		return nil, err
	}

	t.log.Info("opened index",
		zap.Int("height", root.Level),
		zap.Int("records", len(t.store.recordPages)),
		zap.Int("max_entries", t.maxEntries))
	return t, nil
}

func newTree(ps *storage.PageStore, opts Options) (*Tree, error) {
	maxEntries, err := resolveMaxEntries(ps.PageSize(), ps.Dimensions(), opts.MaxEntries)
	if err != nil {
		return nil, err
	}

	fraction := opts.ReinsertFraction
	if fraction == 0 {
		fraction = DEFAULT_REINSERT_FRACTION
	}
	if fraction < 0 || fraction > 0.5 {
		return nil, util.NewConfigError(fmt.Sprintf("reinsert fraction %v outside (0, 0.5]", fraction), nil)
	}

	candidates := opts.ChooseSubtreeCandidates
	if candidates <= 0 {
		candidates = DEFAULT_CANDIDATES
	}

	log := opts.Logger
	if log == nil {
		log = ps.Logger()
	}

	return &Tree{
		ps:             ps,
		store:          newIndexStore(ps, maxEntries),
		maxEntries:     maxEntries,
		minEntries:     maxEntries / 2,
		reinsertCount:  max(1, int(fraction*float64(maxEntries))),
		candidates:     candidates,
		levelsInserted: map[int]bool{},
		metrics:        ps.Metrics(),
		log:            log,
	}, nil
}

func resolveMaxEntries(pageSize, dimensions, override int) (int, error) {
	fits := MaxEntriesForPage(pageSize, dimensions)
	if fits < MIN_MAX_ENTRIES {
		return 0, util.NewConfigError(fmt.Sprintf("a %d byte page holds %d entries of %d dimensions, need %d", pageSize, fits, dimensions, MIN_MAX_ENTRIES), nil)
	}

	switch {
	case override == 0:
		return fits, nil
	case override < MIN_MAX_ENTRIES:
		return 0, util.NewConfigError(fmt.Sprintf("max entries %d is below %d", override, MIN_MAX_ENTRIES), nil)
	case override > fits:
		return 0, util.NewConfigError(fmt.Sprintf("max entries %d do not fit a %d byte page, at most %d", override, pageSize, fits), nil)
	}
	return override, nil
}

func (t *Tree) MaxEntries() int {
	return t.maxEntries
}

func (t *Tree) MinEntries() int {
	return t.minEntries
}

func (t *Tree) Height() int {
	return t.ps.TreeHeight()
}

func (t *Tree) Dimensions() int {
	return t.ps.Dimensions()
}

// Len is the number of indexed records.
func (t *Tree) Len() int {
	return len(t.store.recordPages)
}

// Contains reports whether a record id is indexed.
func (t *Tree) Contains(id int64) bool {
	_, ok := t.store.recordPages[id]
	return ok
}

func (t *Tree) RootPage() int64 {
	return ROOT_PAGE_ID
}

func (t *Tree) ReadNode(pageId int64) (*Node, error) {
	return t.store.readNode(pageId)
}

func (t *Tree) IsLeafLevel(level int) bool {
	return level == LEAF_LEVEL
}

func (t *Tree) root() (*Node, error) {
	root, err := t.store.readNode(ROOT_PAGE_ID)
	if err != nil {
		return nil, util.NewCorruptionError("reading root node", err)
	}
	return root, nil
}

// Flush writes staged nodes and syncs both files.
func (t *Tree) Flush() error {
	if err := t.store.flush(); err != nil {
		return err
	}
	return t.ps.Sync()
}

// Close flushes the tree and closes its page store.
func (t *Tree) Close() error {
	return errors.Join(t.Flush(), t.ps.Close())
}

// walk visits every node breadth first, starting at the root.
func (t *Tree) walk(visit func(n *Node) error) error {
	queue := []int64{ROOT_PAGE_ID}
	for len(queue) > 0 {
		n, err := t.store.readNode(queue[0])
		if err != nil {
			return err
		}
		queue = queue[1:]

		if err := visit(n); err != nil {
			return err
		}
		if n.IsLeaf() {
			continue
		}
		for _, e := range n.Entries {
			queue = append(queue, e.Child)
		}
	}
	return nil
}

func (t *Tree) rebuildRecordPages() error {
	clear(t.store.recordPages)

	err := t.walk(func(n *Node) error {
		if !n.IsLeaf() {
			return nil
		}
		for _, e := range n.Entries {
			records, err := t.ps.ReadDataPage(e.Child)
			if err != nil {
				return err
			}
			for _, r := range records {
				t.store.recordPages[r.ID] = e.Child
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("rebuilding record map: %w", err)
	}

	t.log.Info("rebuilt record map", zap.Int("records", len(t.store.recordPages)))
	return nil
}

// Store exposes the page store, for the linear scans.
func (t *Tree) Store() *storage.PageStore {
	return t.ps
}
