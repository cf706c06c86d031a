package merkle

// ProofStep is one sibling hash on the path from a leaf to the root, and
// the side that sibling sits on relative to the running hash.
type ProofStep struct {
	Sibling Hash
	IsLeft  bool // true if Sibling combines on the left: H(sibling ‖ running)
}

// Proof is the ordered sequence of sibling hashes needed to reconstruct a
// shard's root from one leaf.
type Proof []ProofStep

// Proof returns the inclusion proof for the leaf at the given index. It
// panics if the index is out of range — callers always derive the index
// from the same leaf slice the tree was built from.
func (t *Tree) Proof(index int) Proof {
	if index < 0 || index >= len(t.Leaves) {
		panic("merkle: leaf index out of range")
	}

	var proof Proof
	idx := index
	for level := 0; level < len(t.levels)-1; level++ {
		current := t.levels[level]
		n := len(current)

		if idx == n-1 && n%2 == 1 {
			// Trailing odd node: promoted unchanged, no sibling at this level.
			idx = idx / 2
			continue
		}

		var siblingIdx int
		var isLeft bool
		if idx%2 == 0 {
			siblingIdx = idx + 1
			isLeft = false // sibling is on the right
		} else {
			siblingIdx = idx - 1
			isLeft = true // sibling is on the left
		}
		proof = append(proof, ProofStep{Sibling: current[siblingIdx], IsLeft: isLeft})
		idx = idx / 2
	}
	return proof
}

// Verify reconstructs a root from a leaf and its proof, and reports
// whether it equals root. This is the pure function the on-chain verifier
// in new_claim performs.
func Verify(leaf Leaf, proof Proof, root Hash) bool {
	return Reconstruct(HashLeaf(leaf), proof) == root
}

// Reconstruct replays a proof starting from a leaf hash (or, for testing
// the promotion edge case, any starting hash) and returns the resulting
// root candidate.
func Reconstruct(start Hash, proof Proof) Hash {
	current := start
	for _, step := range proof {
		if step.IsLeft {
			current = HashInternal(step.Sibling, current)
		} else {
			current = HashInternal(current, step.Sibling)
		}
	}
	return current
}

// AllProofs returns the proof for every leaf, in leaf order. Used by the
// shard builder when writing a shard artifact.
func (t *Tree) AllProofs() []Proof {
	proofs := make([]Proof, len(t.Leaves))
	for i := range t.Leaves {
		proofs[i] = t.Proof(i)
	}
	return proofs
}

// ProofSides recomputes the left/right flag for each step of leafIndex's
// proof from nothing but its position and the shard's leaf count. The walk
// that produces these flags depends only on level sizes (which shrink
// deterministically by the promotion rule) and the running index's parity,
// never on hash content — so a shard artifact that stores only sibling
// hashes (the wire format omits the flag) can still be verified:
// the verifier already knows which index within the shard a claimant's
// leaf occupies, and recomputes sides with this function instead of
// reading them off the wire.
func ProofSides(leafIndex, numLeaves int) []bool {
	if leafIndex < 0 || leafIndex >= numLeaves {
		panic("merkle: leaf index out of range")
	}

	var sides []bool
	idx := leafIndex
	n := numLeaves
	for n > 1 {
		if idx == n-1 && n%2 == 1 {
			idx = idx / 2
			n = (n + 1) / 2
			continue
		}
		sides = append(sides, idx%2 == 1) // true: our node is on the right, sibling on the left
		idx = idx / 2
		n = (n + 1) / 2
	}
	return sides
}
