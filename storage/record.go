// Package storage keeps records and tree nodes in two fixed page files, each
// with a metadata page at page 0.
package storage

import (
	"fmt"
	"slices"
)

// Record is one indexed point. Records are immutable once created.
type Record struct {
	ID          int64     `msgpack:"id"`
	Name        string    `msgpack:"name"`
	Coordinates []float64 `msgpack:"coords"`
}

func (r Record) String() string {
	return fmt.Sprintf("%d %q %v", r.ID, r.Name, r.Coordinates)
}

// Points returns the coordinates of every record.
func Points(records []Record) [][]float64 {
	res := make([][]float64, len(records))
	for i, r := range records {
		res[i] = r.Coordinates
	}
	return res
}

// IDs returns the sorted ids of records.
func IDs(records []Record) []int64 {
	res := make([]int64, len(records))
	for i, r := range records {
		res[i] = r.ID
	}
	slices.Sort(res)
	return res
}
