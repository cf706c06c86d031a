// Package merkle builds the canonical Merkle tree used to commit a shard's
// allocation list on-chain, and generates/verifies inclusion proofs against
// that commitment.
package merkle

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/tokendrop/distributor/internal/chain"
)

const (
	leafPrefix     = 0x00
	internalPrefix = 0x01
)

// Hash is a 32-byte domain-separated digest. It is the unit the tree is
// built from, and the unit a Proof carries as sibling values.
type Hash [32]byte

// Leaf is the authoritative tuple committed under a shard's root.
type Leaf struct {
	Claimant chain.Address
	Unlocked uint64
	Locked   uint64
}

// Encode produces the canonical byte serialization of a leaf:
// claimant (32 bytes) ‖ unlocked (8 bytes LE) ‖ locked (8 bytes LE).
func (l Leaf) Encode() []byte {
	buf := make([]byte, 48)
	copy(buf[0:32], l.Claimant[:])
	binary.LittleEndian.PutUint64(buf[32:40], l.Unlocked)
	binary.LittleEndian.PutUint64(buf[40:48], l.Locked)
	return buf
}

// HashLeaf returns H(0x00 ‖ encode(leaf)).
func HashLeaf(l Leaf) Hash {
	h := sha256.New()
	h.Write([]byte{leafPrefix})
	h.Write(l.Encode())
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// HashInternal returns H(0x01 ‖ left ‖ right). The domain byte prevents an
// internal node hash from ever colliding with a leaf hash.
func HashInternal(left, right Hash) Hash {
	h := sha256.New()
	h.Write([]byte{internalPrefix})
	h.Write(left[:])
	h.Write(right[:])
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}
