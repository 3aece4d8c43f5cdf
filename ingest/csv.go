// Package ingest turns raw point files into the record stream a page store loads.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/jobala/rstar/storage"
)

var ErrBadRow = errors.New("malformed row")

// ReadCSV yields one record per row of id,name,coord1,...,coordN after a header
// line. Iteration stops at the first malformed row, which is yielded as an error.
func ReadCSV(r io.Reader, dimensions int) iter.Seq2[storage.Record, error] {
	return func(yield func(storage.Record, error) bool) {
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = 2 + dimensions
		cr.TrimLeadingSpace = true

		if _, err := cr.Read(); err != nil {
			if !errors.Is(err, io.EOF) {
				yield(storage.Record{}, fmt.Errorf("reading header: %w", err))
			}
			return
		}

		for {
			row, err := cr.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(storage.Record{}, fmt.Errorf("%w: %w", ErrBadRow, err))
				return
			}

			rec, err := parseRow(row)
			if err != nil {
				line, _ := cr.FieldPos(0)
				yield(storage.Record{}, fmt.Errorf("%w at line %d: %w", ErrBadRow, line, err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func parseRow(row []string) (storage.Record, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(row[0]), 10, 64)
	if err != nil {
		return storage.Record{}, fmt.Errorf("id: %w", err)
	}

	coords := make([]float64, len(row)-2)
	for d, field := range row[2:] {
		if coords[d], err = strconv.ParseFloat(strings.TrimSpace(field), 64); err != nil {
			return storage.Record{}, fmt.Errorf("coordinate %d: %w", d+1, err)
		}
	}

	return storage.Record{ID: id, Name: row[1], Coordinates: coords}, nil
}
