package export

import (
	"bufio"
	"fmt"
	"io"

	"github.com/jobala/rstar/index"
)

// WriteDOT writes the node structure as a Graphviz digraph, one vertex per
// index page and one edge per internal entry.
func WriteDOT(w io.Writer, tr Traverser) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph RStarTree {")
	fmt.Fprintln(bw, "  node [shape=record, fontname=Helvetica];")

	err := visit(tr, tr.RootPage(), func(n *index.Node) error {
		fmt.Fprintf(bw, "  n%d [label=\"Node %d\\nLevel: %d\\nEntries: %d\"];\n", n.PageID, n.PageID, n.Level, len(n.Entries))
		if tr.IsLeafLevel(n.Level) {
			return nil
		}
		for _, e := range n.Entries {
			fmt.Fprintf(bw, "  n%d -> n%d;\n", n.PageID, e.Child)
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
