package storage

import (
	"fmt"
	"iter"

	"github.com/jobala/rstar/util"
	"go.uber.org/zap"
)

// msgpack array headers take at most this many bytes.
const arrayHeaderSize = 5

// LoadRecords packs a record stream into data pages in arrival order, filling
// each page greedily before starting the next one. A record too large to fit
// an empty page is a configuration error.
func (ps *PageStore) LoadRecords(records iter.Seq2[Record, error]) error {
	capacity := ps.PageSize() - util.LENGTH_PREFIX_SIZE - arrayHeaderSize

	var (
		page      []Record
		pageBytes int
		pages     int
		total     int
	)

	flush := func() error {
		if len(page) == 0 {
			return nil
		}
		if _, err := ps.AppendDataPage(page); err != nil {
			return err
		}
		pages++
		page, pageBytes = nil, 0
		return nil
	}

	for r, err := range records {
		if err != nil {
			return fmt.Errorf("reading record %d: %w", total+1, err)
		}
		if len(r.Coordinates) != ps.Dimensions() {
			return util.NewConfigError(fmt.Sprintf("record %d has %d coordinates, want %d", r.ID, len(r.Coordinates), ps.Dimensions()), nil)
		}

		size, err := recordSize(r)
		if err != nil {
			return err
		}
		if size > capacity {
			return util.NewConfigError(fmt.Sprintf("record %d needs %d bytes, a page holds %d", r.ID, size, capacity), util.ErrPageOverflow)
		}

		if pageBytes+size > capacity {
			if err := flush(); err != nil {
				return err
			}
		}
		page = append(page, r)
		pageBytes += size
		total++
	}

	if err := flush(); err != nil {
		return err
	}

	ps.log.Info("loaded records", zap.Int("records", total), zap.Int("pages", pages))
	return nil
}

func recordSize(r Record) (int, error) {
	size, err := util.EncodedSize(r)
	if err != nil {
		return 0, err
	}
	return size - util.LENGTH_PREFIX_SIZE, nil
}
