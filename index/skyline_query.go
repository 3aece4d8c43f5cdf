package index

import (
	"cmp"
	"slices"

	"github.com/google/btree"
	"github.com/jobala/rstar/geometry"
	"github.com/jobala/rstar/storage"
)

type skylineEntry struct {
	lowerSum float64
	seq      int64
	entry    Entry
}

func lessSkyline(a, b skylineEntry) bool {
	return cmp.Or(cmp.Compare(a.lowerSum, b.lowerSum), cmp.Compare(a.seq, b.seq)) < 0
}

// Skyline returns every record not dominated by another, smaller being better
// in every dimension. Entries are expanded in order of the sum of their lower
// corner and skipped once a skyline record dominates that corner.
func (t *Tree) Skyline() ([]storage.Record, error) {
	root, err := t.root()
	if err != nil {
		return nil, err
	}

	var skyline []storage.Record
	dominated := func(point []float64) bool {
		return slices.ContainsFunc(skyline, func(s storage.Record) bool {
			return geometry.Dominates(s.Coordinates, point)
		})
	}

	queue := btree.NewG[skylineEntry](queueDegree, lessSkyline)
	var seq int64
	enqueue := func(entries []Entry) {
		for _, e := range entries {
			if dominated(e.MBR.LowerCorner()) {
				continue
			}
			seq++
			queue.ReplaceOrInsert(skylineEntry{lowerSum: e.MBR.LowerSum(), seq: seq, entry: e})
		}
	}
	enqueue(root.Entries)

	for queue.Len() > 0 {
		next, _ := queue.DeleteMin()
		if dominated(next.entry.MBR.LowerCorner()) {
			continue
		}

		if next.entry.IsLeaf() {
			records, err := t.ps.ReadDataPage(next.entry.Child)
			if err != nil {
				return nil, err
			}
			for _, r := range records {
				if dominated(r.Coordinates) {
					continue
				}
				skyline = slices.DeleteFunc(skyline, func(s storage.Record) bool {
					return geometry.Dominates(r.Coordinates, s.Coordinates)
				})
				skyline = append(skyline, r)
			}
			continue
		}

		child, err := t.store.readNode(next.entry.Child)
		if err != nil {
			return nil, err
		}
		enqueue(child.Entries)
	}

	if skyline == nil {
		skyline = []storage.Record{}
	}
	return skyline, nil
}
