package index

import (
	"testing"

	"github.com/jobala/rstar/geometry"
	"github.com/jobala/rstar/util"
	"github.com/stretchr/testify/assert"
)

func pointEntry(child int64, x, y float64) Entry {
	return Entry{Kind: LeafEntry, MBR: geometry.PointMBR([]float64{x, y}), Child: child}
}

func TestSplitEntries(t *testing.T) {
	t.Run("splits along the axis with the smallest margin", func(t *testing.T) {
		entries := []Entry{
			pointEntry(1, 10, 0),
			pointEntry(2, 0, 0),
			pointEntry(3, 11, 0),
			pointEntry(4, 1, 0),
			pointEntry(5, 2, 0),
		}

		first, second := splitEntries(entries, 2)

		assert.Len(t, append(first, second...), 5)
		assert.GreaterOrEqual(t, len(first), 2)
		assert.GreaterOrEqual(t, len(second), 2)
		assert.Less(t, geometry.UnionAll(entryMBRs(first)).Bound(0).Upper, geometry.UnionAll(entryMBRs(second)).Bound(0).Lower)
	})

	t.Run("prefers the distribution without overlap", func(t *testing.T) {
		entries := []Entry{
			{Kind: InternalEntry, MBR: mustBox([]float64{0, 0}, []float64{2, 2}), Child: 1},
			{Kind: InternalEntry, MBR: mustBox([]float64{1, 1}, []float64{3, 3}), Child: 2},
			{Kind: InternalEntry, MBR: mustBox([]float64{10, 0}, []float64{12, 2}), Child: 3},
			{Kind: InternalEntry, MBR: mustBox([]float64{11, 1}, []float64{13, 3}), Child: 4},
			{Kind: InternalEntry, MBR: mustBox([]float64{12, 0}, []float64{14, 2}), Child: 5},
		}

		first, second := splitEntries(entries, 2)

		assert.Equal(t, 0.0, geometry.OverlapArea(geometry.UnionAll(entryMBRs(first)), geometry.UnionAll(entryMBRs(second))))
		assert.ElementsMatch(t, []int64{1, 2}, children(first))
		assert.ElementsMatch(t, []int64{3, 4, 5}, children(second))
	})

	t.Run("too few entries is an invariant violation", func(t *testing.T) {
		entries := []Entry{pointEntry(1, 0, 0), pointEntry(2, 1, 1), pointEntry(3, 2, 2)}

		assert.PanicsWithError(t, util.NewInvariantError("no split distribution for 3 entries with minimum 2").Error(), func() {
			splitEntries(entries, 2)
		})
	})

	t.Run("skips distributions that would leave a group short", func(t *testing.T) {
		sorted := []Entry{pointEntry(1, 0, 0), pointEntry(2, 1, 1), pointEntry(3, 2, 2), pointEntry(4, 3, 3)}

		assert.Len(t, distributions(sorted, 2), 1)
		assert.Len(t, distributions(sorted, 1), 3)
		assert.Empty(t, distributions(sorted, 3))
	})
}

func TestChooseSubtree(t *testing.T) {
	entries := []Entry{
		{Kind: InternalEntry, MBR: mustBox([]float64{0, 0}, []float64{5, 5}), Child: 1},
		{Kind: InternalEntry, MBR: mustBox([]float64{4, 0}, []float64{10, 5}), Child: 2},
		{Kind: InternalEntry, MBR: mustBox([]float64{0, 6}, []float64{10, 10}), Child: 3},
	}

	t.Run("area rule picks the entry needing no enlargement", func(t *testing.T) {
		assert.Equal(t, 2, chooseByArea(entries, geometry.PointMBR([]float64{5, 8})))
	})

	t.Run("area rule breaks ties by smaller area", func(t *testing.T) {
		// inside both of the first two entries
		assert.Equal(t, 0, chooseByArea(entries, geometry.PointMBR([]float64{4.5, 2})))
	})

	t.Run("overlap rule avoids growing into a sibling", func(t *testing.T) {
		// enlarging entry 0 to x=8 would overlap entry 1 much more than
		// enlarging entry 1, which already covers it
		assert.Equal(t, 1, chooseByOverlap(entries, geometry.PointMBR([]float64{8, 2}), DEFAULT_CANDIDATES))
	})

	t.Run("overlap rule only weighs the best candidates by area", func(t *testing.T) {
		assert.Equal(t, 2, chooseByOverlap(entries, geometry.PointMBR([]float64{5, 8}), 1))
	})
}

func TestSTRGroups(t *testing.T) {
	var entries []Entry
	for i := range 23 {
		entries = append(entries, pointEntry(int64(i+1), float64(i%5), float64(i/5)))
	}

	groups := strGroups(entries, 4, 2)

	total := 0
	for _, g := range groups {
		assert.LessOrEqual(t, len(g), 4)
		assert.GreaterOrEqual(t, len(g), 2)
		total += len(g)
	}
	assert.Equal(t, 23, total)
	assert.Len(t, strGroups(entries[:4], 4, 2), 1)
}

func TestNodeCodec(t *testing.T) {
	n := &Node{
		PageID: 7,
		Level:  2,
		Entries: []Entry{
			{Kind: InternalEntry, MBR: mustBox([]float64{0, 1}, []float64{2, 3}), Child: 9},
			{Kind: InternalEntry, MBR: mustBox([]float64{-1, -1}, []float64{0, 0}), Child: 11},
		},
	}

	page, err := encodeNode(n, testPageSize)
	assert.NoError(t, err)

	decoded, err := decodeNode(7, page)
	assert.NoError(t, err)
	assert.Equal(t, n.Level, decoded.Level)
	assert.Equal(t, children(n.Entries), children(decoded.Entries))
	assert.True(t, n.MBR().Equal(decoded.MBR()))
}

func children(entries []Entry) []int64 {
	res := make([]int64, len(entries))
	for i, e := range entries {
		res[i] = e.Child
	}
	return res
}
