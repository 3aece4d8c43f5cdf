package buffer

const INVALID_PAGE_ID = -1

// lrukNode is the access history of one cached page: its last k access times
// kept in a ring, overwriting the oldest once full.
type lrukNode struct {
	pageId      int64
	accesses    []uint64
	seen        int
	next        int
	isEvictable bool
}

func newLrukNode(pageId int64, k int) *lrukNode {
	return &lrukNode{pageId: pageId, accesses: make([]uint64, max(k, 1))}
}

func (n *lrukNode) touch(now uint64) {
	n.accesses[n.next] = now
	n.next = (n.next + 1) % len(n.accesses)
	n.seen = min(n.seen+1, len(n.accesses))
}

func (n *lrukNode) hasKAccess() bool {
	return n.seen == len(n.accesses)
}

// oldestAccess is the k-th most recent access once the ring is full, and the
// first access before that.
func (n *lrukNode) oldestAccess() uint64 {
	if !n.hasKAccess() {
		return n.accesses[0]
	}
	return n.accesses[n.next]
}

// evictsBefore orders victims: pages seen fewer than k times have an infinite
// backward k-distance and go first, oldest first; then the page whose k-th
// most recent access is oldest.
func (n *lrukNode) evictsBefore(other *lrukNode) bool {
	if n.hasKAccess() != other.hasKAccess() {
		return !n.hasKAccess()
	}
	return n.oldestAccess() < other.oldestAccess()
}
