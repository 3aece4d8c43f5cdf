package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLrukReplacer(t *testing.T) {
	t.Run("tracks pages up to capacity", func(t *testing.T) {
		replacer := NewLrukReplacer(2, 2)

		require.NoError(t, replacer.recordAccess(1))
		require.NoError(t, replacer.recordAccess(2))
		assert.Error(t, replacer.recordAccess(3))

		// known pages can still be accessed
		assert.NoError(t, replacer.recordAccess(1))
	})

	t.Run("test only evictable nodes are removed", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 5)

		require.NoError(t, replacer.recordAccess(1))
		require.NoError(t, replacer.recordAccess(2))
		replacer.setEvictable(2, true)

		// this will return an error, 1 is not evictable
		assert.Error(t, replacer.remove(1))

		// this will work, 2 is evictable
		assert.NoError(t, replacer.remove(2))
		assert.Equal(t, 0, replacer.size())
	})

	t.Run("setEvictable adjusts size once", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 2)

		require.NoError(t, replacer.recordAccess(1))
		replacer.setEvictable(1, true)
		replacer.setEvictable(1, true)
		assert.Equal(t, 1, replacer.size())

		replacer.setEvictable(1, false)
		assert.Equal(t, 0, replacer.size())
	})
}

func TestEviction(t *testing.T) {
	t.Run("only evicts evictable nodes", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 5)

		require.NoError(t, replacer.recordAccess(2))
		require.NoError(t, replacer.recordAccess(3))
		require.NoError(t, replacer.recordAccess(1))

		evicted, err := replacer.evict()
		assert.NoError(t, err)
		assert.Equal(t, int64(INVALID_PAGE_ID), evicted)
	})

	t.Run("prefers to evict node with < k accesses", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 2)

		require.NoError(t, replacer.recordAccess(2))

		// access 3 k times, k = 2
		require.NoError(t, replacer.recordAccess(3))
		require.NoError(t, replacer.recordAccess(3))

		// access 1 k times, k = 2
		require.NoError(t, replacer.recordAccess(1))
		require.NoError(t, replacer.recordAccess(1))

		replacer.setEvictable(1, true)
		replacer.setEvictable(2, true)
		replacer.setEvictable(3, true)

		evicted, err := replacer.evict()
		assert.NoError(t, err)
		assert.Equal(t, int64(2), evicted)
	})

	t.Run("prefers to evict oldest node if all nodes have < k access", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 2)

		// all nodes have < k access, k = 2
		require.NoError(t, replacer.recordAccess(2))
		require.NoError(t, replacer.recordAccess(3))
		require.NoError(t, replacer.recordAccess(1))

		replacer.setEvictable(1, true)
		replacer.setEvictable(2, true)
		replacer.setEvictable(3, true)
		assert.Equal(t, 3, replacer.size())

		evicted, err := replacer.evict()
		assert.NoError(t, err)
		assert.Equal(t, int64(2), evicted)
		assert.Equal(t, 2, replacer.size())
	})

	t.Run("prefers to evict oldest kth access if all nodes have k access", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 2)

		require.NoError(t, replacer.recordAccess(3))
		require.NoError(t, replacer.recordAccess(3))
		require.NoError(t, replacer.recordAccess(2))
		require.NoError(t, replacer.recordAccess(2))
		require.NoError(t, replacer.recordAccess(1))
		require.NoError(t, replacer.recordAccess(1))

		replacer.setEvictable(1, true)
		replacer.setEvictable(2, true)
		replacer.setEvictable(3, true)

		evicted, err := replacer.evict()
		assert.NoError(t, err)
		assert.Equal(t, int64(3), evicted)
	})
}
