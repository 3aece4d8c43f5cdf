package index

import (
	"fmt"
	"math"

	"github.com/jobala/rstar/geometry"
	"github.com/jobala/rstar/util"
)

// nodePage is the on disk form of a Node.
type nodePage struct {
	Level   int32       `msgpack:"l"`
	Entries []entryPage `msgpack:"e"`
}

type entryPage struct {
	Leaf  bool      `msgpack:"k"`
	Child int64     `msgpack:"c"`
	Lower []float64 `msgpack:"lo"`
	Upper []float64 `msgpack:"hi"`
}

func encodeNode(n *Node, pageSize int) ([]byte, error) {
	return util.ToByteSlice(toNodePage(n), pageSize)
}

func toNodePage(n *Node) nodePage {
	p := nodePage{Level: int32(n.Level), Entries: make([]entryPage, len(n.Entries))}
	for i, e := range n.Entries {
		p.Entries[i] = entryPage{
			Leaf:  e.IsLeaf(),
			Child: e.Child,
			Lower: e.MBR.LowerCorner(),
			Upper: e.MBR.UpperCorner(),
		}
	}
	return p
}

func decodeNode(pageId int64, page []byte) (*Node, error) {
	p, err := util.ToStruct[nodePage](page)
	if err != nil {
		return nil, util.NewCorruptionError(fmt.Sprintf("decoding index page %d", pageId), err)
	}

	n := &Node{PageID: pageId, Level: int(p.Level), Entries: make([]Entry, len(p.Entries))}
	for i, e := range p.Entries {
		mbr, err := geometry.FromCorners(e.Lower, e.Upper)
		if err != nil {
			return nil, util.NewCorruptionError(fmt.Sprintf("entry %d of index page %d", i, pageId), err)
		}

		kind := InternalEntry
		if e.Leaf {
			kind = LeafEntry
		}
		n.Entries[i] = Entry{Kind: kind, MBR: mbr, Child: e.Child}
	}
	return n, nil
}

// MaxEntriesForPage is the largest entry count whose worst case encoding
// still fits one page of pageSize bytes.
func MaxEntriesForPage(pageSize, dimensions int) int {
	fits := func(count int) bool {
		size, err := util.EncodedSize(worstCaseNode(count, dimensions))
		return err == nil && size <= pageSize
	}

	lo, hi := 0, pageSize
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if fits(mid) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

func worstCaseNode(count, dimensions int) nodePage {
	corner := make([]float64, dimensions)
	for d := range corner {
		corner[d] = math.MaxFloat64
	}

	p := nodePage{Level: math.MaxInt32, Entries: make([]entryPage, count)}
	for i := range p.Entries {
		p.Entries[i] = entryPage{Leaf: true, Child: math.MaxInt64, Lower: corner, Upper: corner}
	}
	return p
}
