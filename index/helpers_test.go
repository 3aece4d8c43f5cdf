package index

import (
	"fmt"
	"iter"
	"math/rand/v2"
	"path"
	"testing"

	"github.com/jobala/rstar/geometry"
	"github.com/jobala/rstar/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPageSize   = 512
	testMaxEntries = 4
)

func testStoreOptions(t *testing.T) storage.Options {
	t.Helper()
	dir := t.TempDir()
	return storage.Options{
		DataPath:   path.Join(dir, "data.db"),
		IndexPath:  path.Join(dir, "index.db"),
		PageSize:   testPageSize,
		Dimensions: 2,
		CachePages: 8,
		Registerer: prometheus.NewRegistry(),
	}
}

// CreateTestTree returns an empty tree over a fresh store whose data file
// already holds records.
func CreateTestTree(t *testing.T, records []storage.Record) (*Tree, storage.Options) {
	t.Helper()
	opts := testStoreOptions(t)

	ps, err := storage.Create(opts)
	require.NoError(t, err)
	require.NoError(t, ps.LoadRecords(seq(records)))

	tree, err := Create(ps, Options{MaxEntries: testMaxEntries})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tree.Close() })

	return tree, opts
}

func seq(records []storage.Record) iter.Seq2[storage.Record, error] {
	return func(yield func(storage.Record, error) bool) {
		for _, r := range records {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func randomRecords(rng *rand.Rand, n int, firstID int64) []storage.Record {
	records := make([]storage.Record, n)
	for i := range records {
		records[i] = storage.Record{
			ID:          firstID + int64(i),
			Name:        fmt.Sprintf("p%d", firstID+int64(i)),
			Coordinates: []float64{rng.Float64() * 100, rng.Float64() * 100},
		}
	}
	return records
}

func randomBox(rng *rand.Rand) geometry.MBR {
	x1, x2 := rng.Float64()*100, rng.Float64()*100
	y1, y2 := rng.Float64()*100, rng.Float64()*100
	return mustBox([]float64{min(x1, x2), min(y1, y2)}, []float64{max(x1, x2), max(y1, y2)})
}

func mustBox(lower, upper []float64) geometry.MBR {
	m, err := geometry.FromCorners(lower, upper)
	if err != nil {
		panic(err)
	}
	return m
}

// checkInvariants verifies fan-out bounds, levels, tightness of internal
// entries and coverage of leaf entries for the whole tree.
func checkInvariants(t *testing.T, tree *Tree) {
	t.Helper()

	root, err := tree.ReadNode(tree.RootPage())
	require.NoError(t, err)
	assert.Equal(t, tree.Height(), root.Level)

	seen := 0
	var visit func(n *Node, isRoot bool)
	visit = func(n *Node, isRoot bool) {
		assert.LessOrEqual(t, n.getSize(), tree.MaxEntries(), "node %d overflows", n.PageID)
		if !isRoot {
			assert.GreaterOrEqual(t, n.getSize(), tree.MinEntries(), "node %d underflows", n.PageID)
		}

		for _, e := range n.Entries {
			if n.IsLeaf() {
				assert.Equal(t, LeafEntry, e.Kind)
				records, err := tree.ps.ReadDataPage(e.Child)
				require.NoError(t, err)
				assert.NotEmpty(t, records)
				for _, r := range records {
					assert.True(t, e.MBR.ContainsPoint(r.Coordinates), "leaf entry %v misses record %d", e.MBR, r.ID)
					seen++
				}
				continue
			}

			assert.Equal(t, InternalEntry, e.Kind)
			child, err := tree.ReadNode(e.Child)
			require.NoError(t, err)
			assert.Equal(t, n.Level-1, child.Level)
			assert.True(t, e.MBR.Equal(child.MBR()), "entry %v is not tight over node %d", e.MBR, child.PageID)
			visit(child, false)
		}
	}
	visit(root, true)

	assert.Equal(t, tree.Len(), seen)
}

func assertSameAnswers(t *testing.T, tree *Tree, rng *rand.Rand) {
	t.Helper()

	for range 10 {
		q := randomBox(rng)
		got, err := tree.RangeQuery(q)
		require.NoError(t, err)
		want, err := LinearRangeQuery(tree.ps, q)
		require.NoError(t, err)
		assert.Equal(t, storage.IDs(want), storage.IDs(got), "range %v", q)

		point := []float64{rng.Float64() * 100, rng.Float64() * 100}
		k := 1 + rng.IntN(12)
		nearest, err := tree.KNearestNeighbours(point, k)
		require.NoError(t, err)
		oracle, err := LinearKNearestNeighbours(tree.ps, point, k)
		require.NoError(t, err)
		assert.Equal(t, recordIDs(oracle), recordIDs(nearest), "knn %v k=%d", point, k)
	}

	skyline, err := tree.Skyline()
	require.NoError(t, err)
	oracle, err := LinearSkyline(tree.ps)
	require.NoError(t, err)
	assert.Equal(t, storage.IDs(oracle), storage.IDs(skyline))
}

// recordIDs keeps the order of records.
func recordIDs(records []storage.Record) []int64 {
	res := make([]int64, len(records))
	for i, r := range records {
		res[i] = r.ID
	}
	return res
}
