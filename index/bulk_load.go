package index

import (
	"cmp"
	"errors"
	"maps"
	"math"
	"slices"

	"github.com/jobala/rstar/geometry"
	"github.com/jobala/rstar/storage"
	"go.uber.org/zap"
)

// leafEntries builds one leaf entry per non empty data page, along with the
// page holding every record.
func (t *Tree) leafEntries() ([]Entry, map[int64]int64, error) {
	var entries []Entry
	pages := map[int64]int64{}
	err := t.ps.ForEachDataPage(func(pageId int64, records []storage.Record) error {
		if len(records) == 0 {
			return nil
		}
		for _, r := range records {
			pages[r.ID] = pageId
		}
		entries = append(entries, Entry{
			Kind:  LeafEntry,
			MBR:   geometry.UnionPoints(storage.Points(records)),
			Child: pageId,
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return entries, pages, nil
}

func (t *Tree) checkEmpty() error {
	root, err := t.root()
	if err != nil {
		return err
	}
	if root.getSize() > 0 || t.Len() > 0 {
		return ErrAlreadyBuilt
	}
	return nil
}

// BulkLoad builds the tree over every data page with Sort-Tile-Recursive
// packing. Nodes are staged in memory and written in one pass at the end. A
// failed build leaves the tree empty.
func (t *Tree) BulkLoad() (err error) {
	if err := t.checkEmpty(); err != nil {
		return err
	}

	entries, pages, err := t.leafEntries()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	t.store.beginBuffering()
	defer t.abortBuild(&err, t.Height())
	level := LEAF_LEVEL
	nodes := 0
	for {
		groups := strGroups(entries, t.maxEntries, t.minEntries)
		if len(groups) == 1 {
			root := &Node{PageID: ROOT_PAGE_ID, Level: level, Entries: groups[0]}
			if err := t.store.writeNode(root); err != nil {
				return err
			}
			nodes++
			break
		}

		next := make([]Entry, 0, len(groups))
		for _, group := range groups {
			n, err := t.store.allocNode(level)
			if err != nil {
				return err
			}
			n.Entries = group
			if err := t.store.writeNode(n); err != nil {
				return err
			}
			next = append(next, n.asEntry())
		}

		nodes += len(groups)
		entries = next
		level++
	}

	if err := t.store.flush(); err != nil {
		return err
	}
	if err := t.ps.SetTreeHeight(level); err != nil {
		return err
	}
	maps.Copy(t.store.recordPages, pages)

	t.log.Info("bulk loaded index",
		zap.Int("records", t.Len()),
		zap.Int("nodes", nodes),
		zap.Int("height", level))
	return nil
}

// BuildIncremental builds the tree by inserting one leaf entry per data page
// through the regular insertion path, staging nodes until the end. A failed
// build leaves the tree empty.
func (t *Tree) BuildIncremental() (err error) {
	if err := t.checkEmpty(); err != nil {
		return err
	}

	entries, pages, err := t.leafEntries()
	if err != nil {
		return err
	}

	t.store.beginBuffering()
	defer t.abortBuild(&err, t.Height())
	for _, e := range entries {
		if err := t.insertEntry(e, LEAF_LEVEL); err != nil {
			return err
		}
	}
	if err := t.store.flush(); err != nil {
		return err
	}
	maps.Copy(t.store.recordPages, pages)

	t.log.Info("built index incrementally",
		zap.Int("records", t.Len()),
		zap.Int("pages", len(entries)),
		zap.Int("height", t.Height()))
	return nil
}

// abortBuild runs on the way out of a build. When *err is set it drops the
// staged nodes, releases the pages they were given and restores height.
func (t *Tree) abortBuild(err *error, height int) {
	if *err == nil {
		return
	}

	for _, pageId := range t.store.discard() {
		if pageId != ROOT_PAGE_ID {
			t.ps.FreeIndexPage(pageId)
		}
	}
	clear(t.levelsInserted)
	*err = errors.Join(*err, t.ps.SetTreeHeight(height))
	t.log.Warn("index build failed", zap.Error(*err))
}

// strGroups packs entries into runs of at most maxEntries: sorted by the first
// center coordinate, cut into about sqrt(leaves) vertical slices, each slice
// sorted by the second center coordinate and cut into runs. A short trailing
// run is merged with or balanced against the run before it so that every run
// holds at least minEntries when there is more than one.
func strGroups(entries []Entry, maxEntries, minEntries int) [][]Entry {
	if len(entries) <= maxEntries {
		return [][]Entry{slices.Clone(entries)}
	}

	sorted := slices.Clone(entries)
	sortByCenter(sorted, 0)

	leaves := ceilDiv(len(sorted), maxEntries)
	sliceCount := int(math.Ceil(math.Sqrt(float64(leaves))))
	sliceSize := sliceCount * maxEntries

	var groups [][]Entry
	for start := 0; start < len(sorted); start += sliceSize {
		strip := sorted[start:min(start+sliceSize, len(sorted))]
		if strip[0].MBR.Dimensions() > 1 {
			sortByCenter(strip, 1)
		}
		for i := 0; i < len(strip); i += maxEntries {
			groups = append(groups, slices.Clone(strip[i:min(i+maxEntries, len(strip))]))
		}
	}

	return rebalance(groups, maxEntries, minEntries)
}

func rebalance(groups [][]Entry, maxEntries, minEntries int) [][]Entry {
	res := make([][]Entry, 0, len(groups))
	for _, g := range groups {
		if len(g) >= minEntries || len(res) == 0 {
			res = append(res, g)
			continue
		}

		prev := res[len(res)-1]
		merged := append(slices.Clone(prev), g...)
		if len(merged) <= maxEntries {
			res[len(res)-1] = merged
			continue
		}

		half := (len(merged) + 1) / 2
		res[len(res)-1] = merged[:half:half]
		res = append(res, merged[half:])
	}
	return res
}

func sortByCenter(entries []Entry, dim int) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return cmp.Compare(a.MBR.Center()[dim], b.MBR.Center()[dim])
	})
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
