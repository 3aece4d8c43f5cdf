package index

import (
	"slices"

	"github.com/jobala/rstar/geometry"
)

const (
	ROOT_PAGE_ID = 1
	LEAF_LEVEL   = 1
)

type EntryKind uint8

const (
	// InternalEntry points at a child node one level down.
	InternalEntry EntryKind = iota
	// LeafEntry points at a data page.
	LeafEntry
)

func (k EntryKind) String() string {
	if k == LeafEntry {
		return "leaf"
	}
	return "internal"
}

// Entry is a bounding box plus the page it covers. Child is an index page id
// for InternalEntry and a data page id for LeafEntry.
type Entry struct {
	Kind  EntryKind
	MBR   geometry.MBR
	Child int64
}

func (e Entry) IsLeaf() bool {
	return e.Kind == LeafEntry
}

// Node is one index page. Level 1 nodes hold leaf entries; the root always
// lives at ROOT_PAGE_ID and its level is the tree height.
type Node struct {
	PageID  int64
	Level   int
	Entries []Entry
}

func (n *Node) IsLeaf() bool {
	return n.Level == LEAF_LEVEL
}

func (n *Node) getSize() int {
	return len(n.Entries)
}

// MBR is the tight box over every entry of n.
func (n *Node) MBR() geometry.MBR {
	return geometry.UnionAll(entryMBRs(n.Entries))
}

// entryKind is the kind of entry a node at this level holds.
func (n *Node) entryKind() EntryKind {
	if n.IsLeaf() {
		return LeafEntry
	}
	return InternalEntry
}

// asEntry is the entry a parent uses to point at n.
func (n *Node) asEntry() Entry {
	return Entry{Kind: InternalEntry, MBR: n.MBR(), Child: n.PageID}
}

func (n *Node) findEntry(child int64) int {
	return slices.IndexFunc(n.Entries, func(e Entry) bool { return e.Child == child })
}

func (n *Node) clone() *Node {
	return &Node{
		PageID:  n.PageID,
		Level:   n.Level,
		Entries: slices.Clone(n.Entries),
	}
}

func entryMBRs(entries []Entry) []geometry.MBR {
	res := make([]geometry.MBR, len(entries))
	for i, e := range entries {
		res[i] = e.MBR
	}
	return res
}
