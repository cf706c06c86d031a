package chain

import (
	"crypto/sha256"
	"encoding/binary"
)

// DistributorLayout mirrors the on-chain account layout byte for byte. It exists so an eventual real program (or an off-chain indexer
// reading raw account data) can decode exactly what this module would have
// written, even though nothing in this module talks to a real account
// store. All integers are little-endian.
type DistributorLayout struct {
	Bump            uint8
	Version         uint64
	Root            [32]byte
	Mint            Address
	Vault           Address
	MaxTotalClaim   uint64
	MaxNumNodes     uint64
	TotalClaimed    uint64
	TotalForgone    uint64
	NodesClaimed    uint64
	StartTs         int64
	EndTs           int64
	ClawbackStartTs int64
	ClawbackReceiver Address
	Admin           Address
	ClawedBack      bool
	EnableTs        int64
	Closable        bool
	// Buffer reserves forward-compatibility space, three 32-byte slots,
	// encoded as a flat 96-byte tail.
	Buffer [96]byte
}

const distributorLayoutSize = 1 + 8 + 32 + 32 + 32 + 8 + 8 + 8 + 8 + 8 + 8 + 8 + 8 + 32 + 32 + 1 + 8 + 1 + 96

// Encode serializes the layout to its fixed-width on-chain byte
// representation.
func (d DistributorLayout) Encode() []byte {
	buf := make([]byte, 0, distributorLayoutSize)
	putU8 := func(v uint8) { buf = append(buf, v) }
	putBool := func(v bool) {
		if v {
			putU8(1)
		} else {
			putU8(0)
		}
	}
	putU64 := func(v uint64) {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v)
		buf = append(buf, b[:]...)
	}
	putI64 := func(v int64) { putU64(uint64(v)) }
	putAddr := func(a Address) { buf = append(buf, a[:]...) }

	putU8(d.Bump)
	putU64(d.Version)
	buf = append(buf, d.Root[:]...)
	putAddr(d.Mint)
	putAddr(d.Vault)
	putU64(d.MaxTotalClaim)
	putU64(d.MaxNumNodes)
	putU64(d.TotalClaimed)
	putU64(d.TotalForgone)
	putU64(d.NodesClaimed)
	putI64(d.StartTs)
	putI64(d.EndTs)
	putI64(d.ClawbackStartTs)
	putAddr(d.ClawbackReceiver)
	putAddr(d.Admin)
	putBool(d.ClawedBack)
	putI64(d.EnableTs)
	putBool(d.Closable)
	buf = append(buf, d.Buffer[:]...)
	return buf
}

// ClaimStatusLayout mirrors the on-chain ClaimStatus account layout.
type ClaimStatusLayout struct {
	Claimant               Address
	LockedAmount           uint64
	LockedAmountWithdrawn  uint64
	UnlockedAmount         uint64
	UnlockedAmountClaimed  uint64
	Closable               bool
	Admin                  Address
}

const claimStatusLayoutSize = 32 + 8 + 8 + 8 + 8 + 1 + 32

// Encode serializes the layout to its fixed-width on-chain byte
// representation.
func (c ClaimStatusLayout) Encode() []byte {
	buf := make([]byte, 0, claimStatusLayoutSize)
	buf = append(buf, c.Claimant[:]...)
	var b [8]byte
	putU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(b[:], v)
		buf = append(buf, b[:]...)
	}
	putU64(c.LockedAmount)
	putU64(c.LockedAmountWithdrawn)
	putU64(c.UnlockedAmount)
	putU64(c.UnlockedAmountClaimed)
	if c.Closable {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, c.Admin[:]...)
	return buf
}

// DeriveDistributorSeeds computes the deterministic seeds:
// ("MerkleDistributor", mint, version). The actual PDA derivation
// algorithm belongs to the runtime; this module only defines the seed
// material callers must use.
func DeriveDistributorSeeds(mint Address, version uint64) [][]byte {
	var v [8]byte
	binary.LittleEndian.PutUint64(v[:], version)
	return [][]byte{[]byte("MerkleDistributor"), mint[:], v[:]}
}

// DeriveClaimStatusSeeds computes the deterministic seeds:
// ("ClaimStatus", claimant, distributor).
func DeriveClaimStatusSeeds(claimant, distributor Address) [][]byte {
	return [][]byte{[]byte("ClaimStatus"), claimant[:], distributor[:]}
}

// DeriveDistributorAddress folds DeriveDistributorSeeds down to a single
// Address. A real runtime derives a PDA off-curve from these same seeds;
// this module has no curve to derive against, so it stands in a plain
// hash of the seed material, deterministic in exactly the way callers
// need: every component that identifies a distributor account by address
// (the account store, the cache, the HTTP layer) agrees on the same value
// for a given (mint, version).
func DeriveDistributorAddress(mint Address, version uint64) Address {
	h := sha256.New()
	for _, seed := range DeriveDistributorSeeds(mint, version) {
		h.Write(seed)
	}
	var addr Address
	copy(addr[:], h.Sum(nil))
	return addr
}
