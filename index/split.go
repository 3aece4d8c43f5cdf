package index

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/jobala/rstar/geometry"
	"github.com/jobala/rstar/util"
)

// distribution is one candidate split of a sorted entry list at index k:
// entries[:k] form the first group, entries[k:] the second.
type distribution struct {
	entries []Entry
	k       int
	first   geometry.MBR
	second  geometry.MBR
}

func (d distribution) groups() ([]Entry, []Entry) {
	return slices.Clone(d.entries[:d.k]), slices.Clone(d.entries[d.k:])
}

// splitEntries distributes entries into two groups of at least minEntries each,
// choosing the axis with the smallest margin sum and then the distribution with
// the least overlap, ties broken by total area.
func splitEntries(entries []Entry, minEntries int) ([]Entry, []Entry) {
	if len(entries) == 0 {
		panic(util.NewInvariantError("splitting an empty node"))
	}

	dims := entries[0].MBR.Dimensions()
	bestMargin := math.Inf(1)
	var axis []distribution

	for d := range dims {
		byLower := slices.Clone(entries)
		slices.SortStableFunc(byLower, func(a, b Entry) int {
			return cmp.Or(
				cmp.Compare(a.MBR.Bound(d).Lower, b.MBR.Bound(d).Lower),
				cmp.Compare(a.MBR.Bound(d).Upper, b.MBR.Bound(d).Upper),
			)
		})
		byUpper := slices.Clone(entries)
		slices.SortStableFunc(byUpper, func(a, b Entry) int {
			return cmp.Or(
				cmp.Compare(a.MBR.Bound(d).Upper, b.MBR.Bound(d).Upper),
				cmp.Compare(a.MBR.Bound(d).Lower, b.MBR.Bound(d).Lower),
			)
		})

		candidates := append(distributions(byLower, minEntries), distributions(byUpper, minEntries)...)
		if len(candidates) == 0 {
			continue
		}

		marginSum := 0.0
		for _, c := range candidates {
			marginSum += c.first.Margin() + c.second.Margin()
		}
		if marginSum < bestMargin {
			bestMargin = marginSum
			axis = candidates
		}
	}

	if len(axis) == 0 {
		panic(util.NewInvariantError(fmt.Sprintf("no split distribution for %d entries with minimum %d", len(entries), minEntries)))
	}

	best := axis[0]
	bestOverlap := geometry.OverlapArea(best.first, best.second)
	bestArea := best.first.Area() + best.second.Area()
	for _, c := range axis[1:] {
		overlap := geometry.OverlapArea(c.first, c.second)
		area := c.first.Area() + c.second.Area()
		if overlap < bestOverlap || (overlap == bestOverlap && area < bestArea) {
			best, bestOverlap, bestArea = c, overlap, area
		}
	}

	return best.groups()
}

// distributions enumerates every split of sorted that leaves at least
// minEntries on each side. Sizes that cannot satisfy that are skipped.
func distributions(sorted []Entry, minEntries int) []distribution {
	n := len(sorted)
	if n < 2*minEntries || minEntries < 1 {
		return nil
	}

	prefix := make([]geometry.MBR, n)
	suffix := make([]geometry.MBR, n)
	prefix[0] = sorted[0].MBR
	for i := 1; i < n; i++ {
		prefix[i] = geometry.Union(prefix[i-1], sorted[i].MBR)
	}
	suffix[n-1] = sorted[n-1].MBR
	for i := n - 2; i >= 0; i-- {
		suffix[i] = geometry.Union(suffix[i+1], sorted[i].MBR)
	}

	res := make([]distribution, 0, n-2*minEntries+1)
	for k := minEntries; k <= n-minEntries; k++ {
		res = append(res, distribution{
			entries: sorted,
			k:       k,
			first:   prefix[k-1],
			second:  suffix[k],
		})
	}
	return res
}
