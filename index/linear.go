package index

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/jobala/rstar/geometry"
	"github.com/jobala/rstar/storage"
)

// LinearRangeQuery scans every data page for records inside q.
func LinearRangeQuery(ps *storage.PageStore, q geometry.MBR) ([]storage.Record, error) {
	if q.Dimensions() != ps.Dimensions() {
		return nil, fmt.Errorf("%w: query has %d dimensions, store has %d", ErrDimensionMismatch, q.Dimensions(), ps.Dimensions())
	}

	res := []storage.Record{}
	err := ps.ForEachDataPage(func(_ int64, records []storage.Record) error {
		for _, r := range records {
			if q.ContainsPoint(r.Coordinates) {
				res = append(res, r)
			}
		}
		return nil
	})
	return res, err
}

// LinearKNearestNeighbours sorts every record by distance to point, then id,
// and keeps the first k.
func LinearKNearestNeighbours(ps *storage.PageStore, point []float64, k int) ([]storage.Record, error) {
	if len(point) != ps.Dimensions() {
		return nil, fmt.Errorf("%w: point has %d dimensions, store has %d", ErrDimensionMismatch, len(point), ps.Dimensions())
	}

	var all []neighbour
	err := ps.ForEachDataPage(func(_ int64, records []storage.Record) error {
		for _, r := range records {
			all = append(all, neighbour{dist: geometry.Distance(point, r.Coordinates), record: r})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(all, func(a, b neighbour) int {
		return cmp.Or(cmp.Compare(a.dist, b.dist), cmp.Compare(a.record.ID, b.record.ID))
	})

	res := make([]storage.Record, 0, min(max(k, 0), len(all)))
	for _, n := range all[:min(max(k, 0), len(all))] {
		res = append(res, n.record)
	}
	return res, nil
}

// LinearSkyline compares every record with every other one.
func LinearSkyline(ps *storage.PageStore) ([]storage.Record, error) {
	var all []storage.Record
	err := ps.ForEachDataPage(func(_ int64, records []storage.Record) error {
		all = append(all, records...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := []storage.Record{}
	for _, candidate := range all {
		dominated := slices.ContainsFunc(all, func(other storage.Record) bool {
			return geometry.Dominates(other.Coordinates, candidate.Coordinates)
		})
		if !dominated {
			res = append(res, candidate)
		}
	}
	return res, nil
}
