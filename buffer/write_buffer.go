package buffer

import (
	"maps"
	"slices"
)

// WriteBuffer stages page writes in memory so a bulk build can touch a page
// many times and hit the disk once.
type WriteBuffer[V any] struct {
	pending map[int64]V
}

func NewWriteBuffer[V any]() *WriteBuffer[V] {
	return &WriteBuffer[V]{pending: map[int64]V{}}
}

func (b *WriteBuffer[V]) Put(pageId int64, v V) {
	b.pending[pageId] = v
}

func (b *WriteBuffer[V]) Get(pageId int64) (V, bool) {
	v, ok := b.pending[pageId]
	return v, ok
}

func (b *WriteBuffer[V]) Delete(pageId int64) {
	delete(b.pending, pageId)
}

func (b *WriteBuffer[V]) Len() int {
	return len(b.pending)
}

// Flush hands every staged page to write in ascending page id order. The buffer
// is emptied only when every write succeeded.
func (b *WriteBuffer[V]) Flush(write func(pageId int64, v V) error) error {
	for _, pageId := range slices.Sorted(maps.Keys(b.pending)) {
		if err := write(pageId, b.pending[pageId]); err != nil {
			return err
		}
	}

	clear(b.pending)
	return nil
}

// Discard empties the buffer without writing and returns the page ids it held,
// in ascending order.
func (b *WriteBuffer[V]) Discard() []int64 {
	ids := slices.Sorted(maps.Keys(b.pending))
	clear(b.pending)
	return ids
}
