package merkle

// Tree is a fully-built canonical Merkle tree over an ordered leaf sequence.
// Construction never sorts the input — leaf order is authoritative and is
// preserved in Tree.Leaves and in every proof's implicit index.
//
// Odd-count levels promote the trailing hash unchanged rather than
// duplicating it (see DESIGN.md for why duplication was rejected).
type Tree struct {
	Leaves []Leaf
	levels [][]Hash // levels[0] is leaf hashes, levels[len-1] is {root}
}

// Build constructs a tree over leaves in the given order. It does not
// validate uniqueness of claimants; callers (internal/shard) enforce that
// across the whole input before sharding.
func Build(leaves []Leaf) *Tree {
	t := &Tree{Leaves: leaves}
	if len(leaves) == 0 {
		t.levels = [][]Hash{{}}
		return t
	}

	leafHashes := make([]Hash, len(leaves))
	for i, l := range leaves {
		leafHashes[i] = HashLeaf(l)
	}

	levels := [][]Hash{leafHashes}
	current := leafHashes
	for len(current) > 1 {
		next := make([]Hash, 0, (len(current)+1)/2)
		for i := 0; i < len(current); i += 2 {
			if i+1 < len(current) {
				next = append(next, HashInternal(current[i], current[i+1]))
			} else {
				// Odd trailing element: promote unchanged, do not duplicate.
				next = append(next, current[i])
			}
		}
		levels = append(levels, next)
		current = next
	}
	t.levels = levels
	return t
}

// Root returns the tree's root hash. The zero Hash is returned for an empty
// tree.
func (t *Tree) Root() Hash {
	top := t.levels[len(t.levels)-1]
	if len(top) == 0 {
		return Hash{}
	}
	return top[0]
}

// NumLeaves returns the number of leaves the tree was built over.
func (t *Tree) NumLeaves() int {
	return len(t.Leaves)
}
