package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/jobala/rstar/index"
)

var csvHeader = []string{"node_page", "level", "is_leaf", "data_page", "bounding_box"}

// WriteCSV writes one row per entry. data_page is empty for internal entries;
// bounding_box lists lower:upper per dimension separated by semicolons.
func WriteCSV(w io.Writer, tr Traverser) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	err := visit(tr, tr.RootPage(), func(n *index.Node) error {
		leaf := tr.IsLeafLevel(n.Level)
		for _, e := range n.Entries {
			dataPage := ""
			if leaf {
				dataPage = strconv.FormatInt(e.Child, 10)
			}

			row := []string{
				strconv.FormatInt(n.PageID, 10),
				strconv.Itoa(n.Level),
				strconv.FormatBool(leaf),
				dataPage,
				formatBox(e),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

func formatBox(e index.Entry) string {
	bounds := e.MBR.Bounds()
	parts := make([]string, len(bounds))
	for d, b := range bounds {
		parts[d] = strconv.FormatFloat(b.Lower, 'g', -1, 64) + ":" + strconv.FormatFloat(b.Upper, 'g', -1, 64)
	}
	return strings.Join(parts, ";")
}
