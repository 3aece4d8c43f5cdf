package index

import (
	"fmt"

	"github.com/jobala/rstar/geometry"
	"github.com/jobala/rstar/storage"
)

// RangeQuery returns every record inside q, in no particular order.
func (t *Tree) RangeQuery(q geometry.MBR) ([]storage.Record, error) {
	if q.Dimensions() != t.Dimensions() {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, q.Dimensions(), t.Dimensions())
	}

	root, err := t.root()
	if err != nil {
		return nil, err
	}

	res := []storage.Record{}
	if err := t.rangeSearch(root, q, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (t *Tree) rangeSearch(n *Node, q geometry.MBR, res *[]storage.Record) error {
	for _, e := range n.Entries {
		if !geometry.Overlaps(e.MBR, q) {
			continue
		}

		if e.IsLeaf() {
			records, err := t.ps.ReadDataPage(e.Child)
			if err != nil {
				return err
			}
			for _, r := range records {
				if q.ContainsPoint(r.Coordinates) {
					*res = append(*res, r)
				}
			}
			continue
		}

		child, err := t.store.readNode(e.Child)
		if err != nil {
			return err
		}
		if err := t.rangeSearch(child, q, res); err != nil {
			return err
		}
	}
	return nil
}
