package index

import (
	"cmp"
	"fmt"

	"github.com/google/btree"
	"github.com/jobala/rstar/geometry"
	"github.com/jobala/rstar/storage"
)

const queueDegree = 16

type pendingEntry struct {
	dist  float64
	seq   int64
	entry Entry
}

func lessPending(a, b pendingEntry) bool {
	return cmp.Or(cmp.Compare(a.dist, b.dist), cmp.Compare(a.seq, b.seq)) < 0
}

type neighbour struct {
	dist   float64
	record storage.Record
}

func lessNeighbour(a, b neighbour) bool {
	return cmp.Or(cmp.Compare(a.dist, b.dist), cmp.Compare(a.record.ID, b.record.ID)) < 0
}

// nearest keeps the k best neighbours seen so far ordered by distance then id.
type nearest struct {
	k    int
	tree *btree.BTreeG[neighbour]
}

func newNearest(k int) *nearest {
	return &nearest{k: k, tree: btree.NewG[neighbour](queueDegree, lessNeighbour)}
}

func (n *nearest) full() bool {
	return n.tree.Len() >= n.k
}

// worst is the k-th best distance; only meaningful when full.
func (n *nearest) worst() float64 {
	w, _ := n.tree.Max()
	return w.dist
}

func (n *nearest) offer(c neighbour) {
	if n.full() {
		w, _ := n.tree.Max()
		if !lessNeighbour(c, w) {
			return
		}
		n.tree.DeleteMax()
	}
	n.tree.ReplaceOrInsert(c)
}

func (n *nearest) records() []storage.Record {
	res := make([]storage.Record, 0, n.tree.Len())
	n.tree.Ascend(func(c neighbour) bool {
		res = append(res, c.record)
		return true
	})
	return res
}

// KNearestNeighbours returns the k records closest to point, nearest first.
// Equal distances are ordered by record id. Pending entries are visited in
// order of their minimum distance and a branch is pruned once it cannot hold
// anything closer than the current k-th neighbour.
func (t *Tree) KNearestNeighbours(point []float64, k int) ([]storage.Record, error) {
	if len(point) != t.Dimensions() {
		return nil, fmt.Errorf("%w: point has %d dimensions, index has %d", ErrDimensionMismatch, len(point), t.Dimensions())
	}
	if k <= 0 {
		return []storage.Record{}, nil
	}

	root, err := t.root()
	if err != nil {
		return nil, err
	}

	queue := btree.NewG[pendingEntry](queueDegree, lessPending)
	var seq int64
	enqueue := func(entries []Entry) {
		for _, e := range entries {
			seq++
			queue.ReplaceOrInsert(pendingEntry{dist: e.MBR.MinDistance(point), seq: seq, entry: e})
		}
	}
	enqueue(root.Entries)

	best := newNearest(k)
	for queue.Len() > 0 {
		next, _ := queue.DeleteMin()
		if best.full() && next.dist > best.worst() {
			break
		}

		if next.entry.IsLeaf() {
			records, err := t.ps.ReadDataPage(next.entry.Child)
			if err != nil {
				return nil, err
			}
			for _, r := range records {
				best.offer(neighbour{dist: geometry.Distance(point, r.Coordinates), record: r})
			}
			continue
		}

		child, err := t.store.readNode(next.entry.Child)
		if err != nil {
			return nil, err
		}
		enqueue(child.Entries)
	}

	return best.records(), nil
}
