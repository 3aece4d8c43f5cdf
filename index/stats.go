package index

type Stats struct {
	Height     int
	Records    int
	MaxEntries int
	MinEntries int
	// NodesPerLevel is indexed by level; index 0 is unused.
	NodesPerLevel []int
	Entries       int
	DataPages     int
}

func (s Stats) Nodes() int {
	total := 0
	for _, n := range s.NodesPerLevel {
		total += n
	}
	return total
}

// Stats walks the whole tree.
func (t *Tree) Stats() (Stats, error) {
	height := t.Height()
	s := Stats{
		Height:        height,
		Records:       t.Len(),
		MaxEntries:    t.maxEntries,
		MinEntries:    t.minEntries,
		NodesPerLevel: make([]int, height+1),
	}

	err := t.walk(func(n *Node) error {
		for n.Level >= len(s.NodesPerLevel) {
			s.NodesPerLevel = append(s.NodesPerLevel, 0)
		}
		s.NodesPerLevel[n.Level]++
		s.Entries += n.getSize()
		if n.IsLeaf() {
			s.DataPages += n.getSize()
		}
		return nil
	})
	return s, err
}
