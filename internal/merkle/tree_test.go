package merkle

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokendrop/distributor/internal/chain"
)

func addr(b byte) chain.Address {
	var a chain.Address
	a[0] = b
	return a
}

func makeLeaves(n int) []Leaf {
	leaves := make([]Leaf, n)
	for i := 0; i < n; i++ {
		leaves[i] = Leaf{
			Claimant: addr(byte(i + 1)),
			Unlocked: uint64(i * 10),
			Locked:   uint64(i * 90),
		}
	}
	return leaves
}

func TestBuildAndVerify_EverySize(t *testing.T) {
	for n := 1; n <= 37; n++ {
		leaves := makeLeaves(n)
		tree := Build(leaves)
		root := tree.Root()

		for i, l := range leaves {
			proof := tree.Proof(i)
			assert.Truef(t, Verify(l, proof, root), "leaf %d/%d failed to verify", i, n)
		}
	}
}

func TestVerify_RejectsWrongLeaf(t *testing.T) {
	leaves := makeLeaves(5)
	tree := Build(leaves)
	root := tree.Root()

	proof := tree.Proof(2)
	wrong := Leaf{Claimant: addr(99), Unlocked: 1, Locked: 1}
	assert.False(t, Verify(wrong, proof, root))
}

func TestVerify_RejectsTamperedSibling(t *testing.T) {
	leaves := makeLeaves(8)
	tree := Build(leaves)
	root := tree.Root()

	for i := range leaves {
		proof := tree.Proof(i)
		if len(proof) == 0 {
			continue
		}
		tampered := make(Proof, len(proof))
		copy(tampered, proof)
		tampered[0].Sibling[0] ^= 0xFF
		assert.False(t, Verify(leaves[i], tampered, root))
	}
}

// TestOddPromotionFixture fixes a 3-leaf tree and checks the *exact*
// expected root under the promotion (not duplication) policy, so a future
// change to the trailing-hash policy is caught immediately.
func TestOddPromotionFixture(t *testing.T) {
	leaves := makeLeaves(3)
	tree := Build(leaves)

	h0 := HashLeaf(leaves[0])
	h1 := HashLeaf(leaves[1])
	h2 := HashLeaf(leaves[2])

	level1Pair := HashInternal(h0, h1)
	// h2 is the trailing odd node: promoted unchanged into level 1.
	wantRoot := HashInternal(level1Pair, h2)

	require.Equal(t, wantRoot, tree.Root())

	// Leaf 2's proof should be exactly one step: sibling = level1Pair, on
	// the left (leaf2 is the "right" running hash at the final combine).
	proof := tree.Proof(2)
	require.Len(t, proof, 1)
	assert.Equal(t, level1Pair, proof[0].Sibling)
	assert.True(t, proof[0].IsLeft)
}

func TestBuild_PropertySizes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	sizes := []int{1, 2, 3, 4, 7, 8, 15, 16, 17, 100, 4096, 16384}
	for _, n := range sizes {
		leaves := make([]Leaf, n)
		for i := 0; i < n; i++ {
			var a chain.Address
			rng.Read(a[:])
			leaves[i] = Leaf{Claimant: a, Unlocked: uint64(rng.Intn(1_000_000)), Locked: uint64(rng.Intn(1_000_000))}
		}
		tree := Build(leaves)
		root := tree.Root()
		// Spot check a handful of indices rather than all 16384, to keep
		// the test fast; proof correctness for small N is covered above.
		checks := []int{0, n / 2, n - 1}
		for _, i := range checks {
			proof := tree.Proof(i)
			assert.True(t, Verify(leaves[i], proof, root))
		}
	}
}
