// Package export writes read-only diagnostic dumps of an index.
package export

import (
	"github.com/jobala/rstar/index"
)

// Traverser is the read-only view of a tree the exporters need.
type Traverser interface {
	RootPage() int64
	ReadNode(pageId int64) (*index.Node, error)
	IsLeafLevel(level int) bool
}

// visit walks the tree depth first in entry order.
func visit(tr Traverser, pageId int64, fn func(n *index.Node) error) error {
	n, err := tr.ReadNode(pageId)
	if err != nil {
		return err
	}
	if err := fn(n); err != nil {
		return err
	}
	if tr.IsLeafLevel(n.Level) {
		return nil
	}

	for _, e := range n.Entries {
		if err := visit(tr, e.Child, fn); err != nil {
			return err
		}
	}
	return nil
}
