package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLrukNode(t *testing.T) {
	t.Run("has k accesses once the ring is full", func(t *testing.T) {
		node := newLrukNode(1, 3)
		assert.False(t, node.hasKAccess())

		node.touch(1)
		node.touch(2)
		assert.False(t, node.hasKAccess())

		node.touch(3)
		assert.True(t, node.hasKAccess())
	})

	t.Run("oldest access is the first one until the ring fills", func(t *testing.T) {
		node := newLrukNode(1, 3)
		node.touch(5)
		node.touch(8)

		assert.Equal(t, uint64(5), node.oldestAccess())
	})

	t.Run("oldest access follows the ring once it wraps", func(t *testing.T) {
		node := newLrukNode(1, 3)
		for ts := uint64(1); ts <= 5; ts++ {
			node.touch(ts)
		}

		assert.Equal(t, uint64(3), node.oldestAccess())
	})

	t.Run("zero k still remembers the last access", func(t *testing.T) {
		node := newLrukNode(1, 0)
		node.touch(4)
		node.touch(9)

		assert.True(t, node.hasKAccess())
		assert.Equal(t, uint64(9), node.oldestAccess())
	})

	t.Run("pages short of k accesses evict first", func(t *testing.T) {
		hot := newLrukNode(1, 2)
		hot.touch(1)
		hot.touch(2)
		cold := newLrukNode(2, 2)
		cold.touch(3)

		assert.True(t, cold.evictsBefore(hot))
		assert.False(t, hot.evictsBefore(cold))
	})

	t.Run("older k-th access evicts first", func(t *testing.T) {
		a := newLrukNode(1, 2)
		a.touch(1)
		a.touch(4)
		b := newLrukNode(2, 2)
		b.touch(2)
		b.touch(3)

		assert.True(t, a.evictsBefore(b))
	})
}
