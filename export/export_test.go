package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/jobala/rstar/geometry"
	"github.com/jobala/rstar/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTree is a two level tree: a root with two leaves.
type fakeTree map[int64]*index.Node

func (f fakeTree) RootPage() int64 { return index.ROOT_PAGE_ID }

func (f fakeTree) ReadNode(pageId int64) (*index.Node, error) {
	n, ok := f[pageId]
	if !ok {
		return nil, errors.New("no such node")
	}
	return n, nil
}

func (f fakeTree) IsLeafLevel(level int) bool { return level == index.LEAF_LEVEL }

func box(lower, upper []float64) geometry.MBR {
	m, err := geometry.FromCorners(lower, upper)
	if err != nil {
		panic(err)
	}
	return m
}

func newFakeTree() fakeTree {
	return fakeTree{
		1: {PageID: 1, Level: 2, Entries: []index.Entry{
			{Kind: index.InternalEntry, MBR: box([]float64{0, 0}, []float64{5, 5}), Child: 2},
			{Kind: index.InternalEntry, MBR: box([]float64{-1.5, 6}, []float64{10, 10}), Child: 3},
		}},
		2: {PageID: 2, Level: 1, Entries: []index.Entry{
			{Kind: index.LeafEntry, MBR: box([]float64{0, 0}, []float64{5, 5}), Child: 1},
		}},
		3: {PageID: 3, Level: 1, Entries: []index.Entry{
			{Kind: index.LeafEntry, MBR: box([]float64{-1.5, 6}, []float64{10, 10}), Child: 2},
		}},
	}
}

func TestWriteDOT(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDOT(&buf, newFakeTree()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "digraph RStarTree {\n"))
	assert.Contains(t, out, "n1 -> n2;")
	assert.Contains(t, out, "n1 -> n3;")
	assert.Contains(t, out, `n3 [label="Node 3\nLevel: 1\nEntries: 1"];`)
	assert.True(t, strings.HasSuffix(out, "}\n"))
}

func TestWriteCSV(t *testing.T) {
	t.Run("writes one row per entry", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteCSV(&buf, newFakeTree()))

		rows, err := csv.NewReader(&buf).ReadAll()
		require.NoError(t, err)

		assert.Equal(t, [][]string{
			csvHeader,
			{"1", "2", "false", "", "0:5;0:5"},
			{"1", "2", "false", "", "-1.5:10;6:10"},
			{"2", "1", "true", "1", "0:5;0:5"},
			{"3", "1", "true", "2", "-1.5:10;6:10"},
		}, rows)
	})

	t.Run("read errors stop the export", func(t *testing.T) {
		tree := newFakeTree()
		delete(tree, 3)

		err := WriteCSV(&bytes.Buffer{}, tree)
		assert.ErrorContains(t, err, "no such node")
	})
}
