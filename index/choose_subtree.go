package index

import (
	"cmp"
	"slices"

	"github.com/jobala/rstar/geometry"
)

// chooseSubtree returns the index of the entry of n to descend into when
// inserting mbr at targetLevel. When the children of n are at targetLevel the
// entry whose enlargement adds the least overlap with its siblings wins;
// otherwise the one needing the least area enlargement.
func (t *Tree) chooseSubtree(n *Node, mbr geometry.MBR, targetLevel int) int {
	if n.Level-1 == targetLevel {
		return chooseByOverlap(n.Entries, mbr, t.candidates)
	}
	return chooseByArea(n.Entries, mbr)
}

type candidate struct {
	idx         int
	enlargement float64
	area        float64
	enlarged    geometry.MBR
}

func candidates(entries []Entry, mbr geometry.MBR) []candidate {
	res := make([]candidate, len(entries))
	for i, e := range entries {
		enlarged := geometry.Union(e.MBR, mbr)
		res[i] = candidate{
			idx:         i,
			enlargement: enlarged.Area() - e.MBR.Area(),
			area:        e.MBR.Area(),
			enlarged:    enlarged,
		}
	}
	return res
}

func byEnlargement(a, b candidate) int {
	return cmp.Or(
		cmp.Compare(a.enlargement, b.enlargement),
		cmp.Compare(a.area, b.area),
		cmp.Compare(a.idx, b.idx),
	)
}

func chooseByArea(entries []Entry, mbr geometry.MBR) int {
	return slices.MinFunc(candidates(entries, mbr), byEnlargement).idx
}

// chooseByOverlap only considers the limit entries with the smallest area
// enlargement when the node is wider than that.
func chooseByOverlap(entries []Entry, mbr geometry.MBR, limit int) int {
	cands := candidates(entries, mbr)
	if len(cands) > limit {
		slices.SortFunc(cands, byEnlargement)
		cands = cands[:limit]
	}

	best := -1
	bestOverlap := 0.0
	for i, c := range cands {
		overlap := overlapEnlargement(entries, c)
		if best < 0 || overlap < bestOverlap || (overlap == bestOverlap && byEnlargement(c, cands[best]) < 0) {
			best, bestOverlap = i, overlap
		}
	}
	return cands[best].idx
}

// overlapEnlargement is how much the overlap between c and the other entries
// grows when c is enlarged.
func overlapEnlargement(entries []Entry, c candidate) float64 {
	before, after := 0.0, 0.0
	original := entries[c.idx].MBR
	for j, other := range entries {
		if j == c.idx {
			continue
		}
		before += geometry.OverlapArea(original, other.MBR)
		after += geometry.OverlapArea(c.enlarged, other.MBR)
	}
	return after - before
}
