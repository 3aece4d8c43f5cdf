package index

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/jobala/rstar/geometry"
	"github.com/jobala/rstar/util"
	"go.uber.org/zap"
)

// treePath is a root to node descent. indices[i] is the position in nodes[i] of
// the entry pointing at nodes[i+1].
type treePath struct {
	nodes   []*Node
	indices []int
}

func (p *treePath) last() *Node {
	return p.nodes[len(p.nodes)-1]
}

func (p *treePath) push(n *Node, idx int) {
	p.indices = append(p.indices, idx)
	p.nodes = append(p.nodes, n)
}

// insertEntry is a top level insertion: it resets the per level reinsertion
// bookkeeping before placing e into a node at level.
func (t *Tree) insertEntry(e Entry, level int) error {
	clear(t.levelsInserted)
	return t.insert(e, level)
}

func (t *Tree) insert(e Entry, level int) error {
	path, err := t.choosePath(e.MBR, level)
	if err != nil {
		return err
	}

	target := path.last()
	target.Entries = append(target.Entries, e)
	return t.adjustPath(path)
}

func (t *Tree) choosePath(mbr geometry.MBR, level int) (*treePath, error) {
	root, err := t.root()
	if err != nil {
		return nil, err
	}
	if level > root.Level {
		panic(util.NewInvariantError(fmt.Sprintf("inserting at level %d above the root at level %d", level, root.Level)))
	}

	path := &treePath{nodes: []*Node{root}}
	for n := root; n.Level > level; {
		idx := t.chooseSubtree(n, mbr, level)
		child, err := t.store.readNode(n.Entries[idx].Child)
		if err != nil {
			return nil, err
		}
		path.push(child, idx)
		n = child
	}
	return path, nil
}

// adjustPath walks the path bottom up after its last node gained an entry,
// treating overflows and tightening every parent entry.
func (t *Tree) adjustPath(path *treePath) error {
	for i := len(path.nodes) - 1; i >= 0; i-- {
		n := path.nodes[i]

		var sibling *Node
		if n.getSize() > t.maxEntries {
			if i > 0 && !t.levelsInserted[n.Level] {
				t.levelsInserted[n.Level] = true
				return t.reinsert(path, i)
			}

			if i == 0 {
				return t.growRoot(n)
			}

			var err error
			if sibling, err = t.split(n); err != nil {
				return err
			}
		}

		if err := t.store.writeNode(n); err != nil {
			return err
		}

		if i > 0 {
			parent := path.nodes[i-1]
			parent.Entries[path.indices[i-1]].MBR = n.MBR()
			if sibling != nil {
				parent.Entries = append(parent.Entries, sibling.asEntry())
			}
		}
	}
	return nil
}

// tightenPath writes nodes[:depth+1] bottom up, refitting each parent entry.
func (t *Tree) tightenPath(path *treePath, depth int) error {
	for i := depth; i >= 0; i-- {
		n := path.nodes[i]
		if err := t.store.writeNode(n); err != nil {
			return err
		}
		if i > 0 {
			path.nodes[i-1].Entries[path.indices[i-1]].MBR = n.MBR()
		}
	}
	return nil
}

// reinsert removes the entries of an overflowing node lying farthest from its
// center and inserts them again from the root, farthest first.
func (t *Tree) reinsert(path *treePath, depth int) error {
	n := path.nodes[depth]
	if n.getSize() != t.maxEntries+1 {
		panic(util.NewInvariantError(fmt.Sprintf("reinsert entered with %d entries, want %d", n.getSize(), t.maxEntries+1)))
	}

	center := n.MBR()
	slices.SortStableFunc(n.Entries, func(a, b Entry) int {
		return cmp.Compare(geometry.CenterDistance(b.MBR, center), geometry.CenterDistance(a.MBR, center))
	})

	removed := slices.Clone(n.Entries[:t.reinsertCount])
	n.Entries = slices.Delete(n.Entries, 0, t.reinsertCount)

	if err := t.tightenPath(path, depth); err != nil {
		return err
	}

	t.metrics.ForcedReinserts.Inc()
	t.log.Debug("forced reinsertion", zap.Int64("page_id", n.PageID), zap.Int("level", n.Level), zap.Int("entries", len(removed)))

	for _, e := range removed {
		if err := t.insert(e, n.Level); err != nil {
			return err
		}
	}
	return nil
}

// split keeps the first group in n and moves the second into a new sibling,
// which is written before returning.
func (t *Tree) split(n *Node) (*Node, error) {
	first, second := splitEntries(n.Entries, t.minEntries)

	sibling, err := t.store.allocNode(n.Level)
	if err != nil {
		return nil, err
	}
	n.Entries = first
	sibling.Entries = second

	if err := t.store.writeNode(sibling); err != nil {
		return nil, err
	}

	t.metrics.NodeSplits.Inc()
	t.log.Debug("split node",
		zap.Int64("page_id", n.PageID),
		zap.Int64("sibling", sibling.PageID),
		zap.Int("level", n.Level))
	return sibling, nil
}

// growRoot splits an overflowing root into two new children and raises the
// root one level. The root stays at ROOT_PAGE_ID.
func (t *Tree) growRoot(root *Node) error {
	first, second := splitEntries(root.Entries, t.minEntries)

	left, err := t.store.allocNode(root.Level)
	if err != nil {
		return err
	}
	right, err := t.store.allocNode(root.Level)
	if err != nil {
		return err
	}
	left.Entries, right.Entries = first, second

	if err := t.store.writeNode(left); err != nil {
		return err
	}
	if err := t.store.writeNode(right); err != nil {
		return err
	}

	root.Level++
	root.Entries = []Entry{left.asEntry(), right.asEntry()}
	if err := t.store.writeNode(root); err != nil {
		return err
	}

	t.metrics.NodeSplits.Inc()
	t.log.Debug("grew root", zap.Int("height", root.Level))
	return t.ps.SetTreeHeight(root.Level)
}
