package shard

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tokendrop/distributor/internal/chain"
	"github.com/tokendrop/distributor/internal/merkle"
)

// Metadata describes the distribution a shard artifact belongs to, carried
// for operator convenience — it is not re-derived on load.
type Metadata struct {
	Mint           chain.Address `json:"mint"`
	VestingStartTs int64         `json:"vesting_start_ts"`
	VestingEndTs   int64         `json:"vesting_end_ts"`
	TotalAmount    uint64        `json:"total_amount"`
}

// TreeNode is one leaf's wire representation inside a shard artifact.
type TreeNode struct {
	Claimant       chain.Address `json:"claimant"`
	AmountUnlocked uint64        `json:"amount_unlocked"`
	AmountLocked   uint64        `json:"amount_locked"`
	Proof          [][32]byte    `json:"proof"`
}

// Artifact is one shard's self-describing, read-only output file.
type Artifact struct {
	ShardIndex    int           `json:"shard_index"`
	MerkleRoot    [32]byte      `json:"merkle_root"`
	MaxNumNodes   uint64        `json:"max_num_nodes"`
	MaxTotalClaim uint64        `json:"max_total_claim"`
	Metadata      Metadata      `json:"metadata"`
	TreeNodes     []TreeNode    `json:"tree_nodes"`
}

// BuildArtifact builds the Merkle tree over rows (in their given order) and
// assembles the full shard artifact, including every leaf's proof.
func BuildArtifact(shardIndex int, rows []Row, meta Metadata) (*Artifact, error) {
	leaves := ToLeaves(rows)
	tree := merkle.Build(leaves)
	root := tree.Root()

	var maxTotalClaim uint64
	nodes := make([]TreeNode, len(leaves))
	proofs := tree.AllProofs()
	for i, l := range leaves {
		proofBytes := make([][32]byte, len(proofs[i]))
		for j, step := range proofs[i] {
			proofBytes[j] = [32]byte(step.Sibling)
		}
		nodes[i] = TreeNode{
			Claimant:       l.Claimant,
			AmountUnlocked: l.Unlocked,
			AmountLocked:   l.Locked,
			Proof:          proofBytes,
		}
		sum, carry := addWithCarry(maxTotalClaim, l.Unlocked)
		if carry {
			return nil, fmt.Errorf("shard: max_total_claim overflow building shard %d", shardIndex)
		}
		maxTotalClaim = sum
		sum, carry = addWithCarry(maxTotalClaim, l.Locked)
		if carry {
			return nil, fmt.Errorf("shard: max_total_claim overflow building shard %d", shardIndex)
		}
		maxTotalClaim = sum
	}

	return &Artifact{
		ShardIndex:    shardIndex,
		MerkleRoot:    [32]byte(root),
		MaxNumNodes:   uint64(len(leaves)),
		MaxTotalClaim: maxTotalClaim,
		Metadata:      meta,
		TreeNodes:     nodes,
	}, nil
}

func addWithCarry(a, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum < a
}

// WriteJSON serializes the artifact as indented JSON.
func (a *Artifact) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(a)
}

// ReadArtifact deserializes a shard artifact previously written by
// WriteJSON.
func ReadArtifact(r io.Reader) (*Artifact, error) {
	var a Artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("shard: decoding artifact: %w", err)
	}
	return &a, nil
}

// ToMerkleProof reconstructs a merkle.Proof from a TreeNode's flat sibling
// list. The artifact's wire format stores only sibling hashes, no
// left/right flag; leafIndex is the node's position within the
// shard (its index in Artifact.TreeNodes), from which merkle.ProofSides
// recomputes the flags deterministically.
func (n TreeNode) ToMerkleProof(leafIndex, numLeaves int) merkle.Proof {
	sides := merkle.ProofSides(leafIndex, numLeaves)
	proof := make(merkle.Proof, len(n.Proof))
	for i, sib := range n.Proof {
		isLeft := i < len(sides) && sides[i]
		proof[i] = merkle.ProofStep{Sibling: merkle.Hash(sib), IsLeft: isLeft}
	}
	return proof
}
