package index

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jobala/rstar/geometry"
	"github.com/jobala/rstar/storage"
	"github.com/jobala/rstar/storage/disk"
	"github.com/jobala/rstar/util"
	"go.uber.org/zap"
)

// Insert stores r in the last data page when it still fits, or in a new page
// otherwise, and makes the tree cover it.
func (t *Tree) Insert(r storage.Record) error {
	if len(r.Coordinates) != t.Dimensions() {
		return fmt.Errorf("%w: record %d has %d coordinates, index has %d", ErrDimensionMismatch, r.ID, len(r.Coordinates), t.Dimensions())
	}
	if t.Contains(r.ID) {
		return fmt.Errorf("%w: %d", ErrDuplicateID, r.ID)
	}

	pageId, existing, err := t.pageWithRoom(r)
	if err != nil {
		return err
	}

	point := geometry.PointMBR(r.Coordinates)
	switch {
	case pageId == disk.INVALID_PAGE_ID:
		if pageId, err = t.ps.AppendDataPage([]storage.Record{r}); err != nil {
			return err
		}
		if err := t.insertEntry(Entry{Kind: LeafEntry, MBR: point, Child: pageId}, LEAF_LEVEL); err != nil {
			return t.emptyDataPage(pageId, err)
		}

	case len(existing) == 0:
		// the last page was emptied by deletes and has no leaf entry any more
		if err := t.ps.WriteDataPage(pageId, []storage.Record{r}); err != nil {
			return err
		}
		if err := t.insertEntry(Entry{Kind: LeafEntry, MBR: point, Child: pageId}, LEAF_LEVEL); err != nil {
			return t.emptyDataPage(pageId, err)
		}

	default:
		// a box grown in the tree first is merely loose if the page write fails
		path, entryIdx, err := t.findLeafPath(pageId, existing[0].Coordinates)
		if err != nil {
			return err
		}

		leaf := path.last()
		leaf.Entries[entryIdx].MBR = geometry.Union(leaf.Entries[entryIdx].MBR, point)
		if err := t.tightenPath(path, len(path.nodes)-1); err != nil {
			return err
		}
		if err := t.ps.WriteDataPage(pageId, append(existing, r)); err != nil {
			return err
		}
	}

	t.store.recordPages[r.ID] = pageId
	t.log.Debug("inserted record", zap.Int64("id", r.ID), zap.Int64("data_page", pageId))
	return nil
}

// emptyDataPage clears a page whose leaf entry could not be inserted, so no
// record sits in the data file without being indexed. The next insert reuses
// the page.
func (t *Tree) emptyDataPage(pageId int64, cause error) error {
	return errors.Join(cause, t.ps.WriteDataPage(pageId, []storage.Record{}))
}

// pageWithRoom picks the data page r goes to and returns the records it holds.
// INVALID_PAGE_ID means a new page is needed.
func (t *Tree) pageWithRoom(r storage.Record) (int64, []storage.Record, error) {
	last := t.ps.LastDataPage()
	if last == disk.INVALID_PAGE_ID {
		return disk.INVALID_PAGE_ID, nil, nil
	}

	records, err := t.ps.ReadDataPage(last)
	if err != nil {
		return disk.INVALID_PAGE_ID, nil, err
	}
	if !t.ps.FitsInPage(append(slices.Clone(records), r)) {
		return disk.INVALID_PAGE_ID, nil, nil
	}
	return last, records, nil
}

// Delete removes a record. Only a page left empty changes the tree; a page that
// keeps records keeps its possibly loose bounding box.
func (t *Tree) Delete(id int64) error {
	pageId, ok := t.store.recordPages[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	records, err := t.ps.ReadDataPage(pageId)
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(records, func(r storage.Record) bool { return r.ID == id })
	if idx < 0 {
		return util.NewCorruptionError(fmt.Sprintf("record %d missing from data page %d", id, pageId), nil)
	}

	removed := records[idx]
	remaining := slices.Delete(slices.Clone(records), idx, idx+1)

	if len(remaining) > 0 {
		if err := t.ps.WriteDataPage(pageId, remaining); err != nil {
			return err
		}
		delete(t.store.recordPages, id)
		return nil
	}

	path, entryIdx, err := t.findLeafPath(pageId, removed.Coordinates)
	if err != nil {
		return err
	}
	if err := t.ps.WriteDataPage(pageId, remaining); err != nil {
		return err
	}

	leaf := path.last()
	leaf.Entries = slices.Delete(leaf.Entries, entryIdx, entryIdx+1)
	if err := t.condense(path); err != nil {
		return err
	}

	delete(t.store.recordPages, id)
	t.log.Debug("deleted record", zap.Int64("id", id), zap.Int64("emptied_page", pageId))
	return nil
}

// findLeafPath locates the leaf entry pointing at dataPage by following every
// entry whose box contains point.
func (t *Tree) findLeafPath(dataPage int64, point []float64) (*treePath, int, error) {
	root, err := t.root()
	if err != nil {
		return nil, -1, err
	}

	path := &treePath{nodes: []*Node{root}}
	entryIdx, err := t.searchLeaf(path, dataPage, point)
	if err != nil {
		return nil, -1, err
	}
	if entryIdx < 0 {
		return nil, -1, util.NewCorruptionError(fmt.Sprintf("no leaf entry covers data page %d", dataPage), nil)
	}
	return path, entryIdx, nil
}

func (t *Tree) searchLeaf(path *treePath, dataPage int64, point []float64) (int, error) {
	n := path.last()
	if n.IsLeaf() {
		return n.findEntry(dataPage), nil
	}

	for i, e := range n.Entries {
		if !e.MBR.ContainsPoint(point) {
			continue
		}

		child, err := t.store.readNode(e.Child)
		if err != nil {
			return -1, err
		}
		path.push(child, i)

		entryIdx, err := t.searchLeaf(path, dataPage, point)
		if err != nil || entryIdx >= 0 {
			return entryIdx, err
		}

		path.nodes = path.nodes[:len(path.nodes)-1]
		path.indices = path.indices[:len(path.indices)-1]
	}
	return -1, nil
}

type orphan struct {
	entry Entry
	level int
}

// condense walks from the last node of path to the root. Underfull nodes are
// detached and their entries collected for reinsertion; every other node gets
// a tight parent entry. The root then shrinks while it has a single child.
func (t *Tree) condense(path *treePath) error {
	var orphans []orphan

	for i := len(path.nodes) - 1; i > 0; i-- {
		n := path.nodes[i]
		parent := path.nodes[i-1]
		parentIdx := path.indices[i-1]

		if n.getSize() < t.minEntries {
			parent.Entries = slices.Delete(parent.Entries, parentIdx, parentIdx+1)
			for _, e := range n.Entries {
				orphans = append(orphans, orphan{entry: e, level: n.Level})
			}
			t.store.freeNode(n.PageID)
			continue
		}

		if err := t.store.writeNode(n); err != nil {
			return err
		}
		parent.Entries[parentIdx].MBR = n.MBR()
	}

	root := path.nodes[0]
	orphans = t.adoptOrphans(root, orphans)

	highest := 0
	for _, o := range orphans {
		highest = max(highest, o.level)
	}
	if err := t.shrinkRoot(root, highest); err != nil {
		return err
	}

	for _, o := range orphans {
		if err := t.insertEntry(o.entry, o.level); err != nil {
			return err
		}
	}

	root, err := t.root()
	if err != nil {
		return err
	}
	return t.shrinkRoot(root, LEAF_LEVEL)
}

// adoptOrphans handles a root left without entries above the leaf level: the
// orphans of its last child become its entries one level down.
func (t *Tree) adoptOrphans(root *Node, orphans []orphan) []orphan {
	for root.Level > LEAF_LEVEL && root.getSize() == 0 {
		root.Level--
		var rest []orphan
		for _, o := range orphans {
			if o.level == root.Level {
				root.Entries = append(root.Entries, o.entry)
			} else {
				rest = append(rest, o)
			}
		}
		orphans = rest
	}
	return orphans
}

// shrinkRoot replaces a single entry root by its child while the root stays
// at or above minLevel, then persists the root and the height.
func (t *Tree) shrinkRoot(root *Node, minLevel int) error {
	for root.Level > LEAF_LEVEL && root.Level-1 >= minLevel && root.getSize() == 1 {
		child, err := t.store.readNode(root.Entries[0].Child)
		if err != nil {
			return err
		}

		root.Level = child.Level
		root.Entries = child.Entries
		t.store.freeNode(child.PageID)
		t.log.Debug("shrank root", zap.Int("height", root.Level))
	}

	if err := t.store.writeNode(root); err != nil {
		return err
	}
	return t.ps.SetTreeHeight(root.Level)
}
