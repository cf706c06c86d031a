// Package cache holds the two read-side indexes the API server (C7) and
// nothing else in this module depends on: the proof cache (this file),
// built once from shard artifacts at startup, and the claim-status cache
// (claim_cache.go), kept live by a streaming chain subscription.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tokendrop/distributor/internal/chain"
	"github.com/tokendrop/distributor/internal/merkle"
	"github.com/tokendrop/distributor/internal/shard"
)

// Eligibility is what the API returns for a claimant: their allocation in a
// specific distributor shard, plus the proof needed to submit new_claim.
type Eligibility struct {
	Mint           chain.Address `json:"mint"`
	ShardIndex     int           `json:"shard_index"`
	MerkleRoot     [32]byte      `json:"merkle_root"`
	AmountUnlocked uint64        `json:"amount_unlocked"`
	AmountLocked   uint64        `json:"amount_locked"`
	Proof          [][32]byte    `json:"proof"`
	LeafIndex      int           `json:"-"`
	NumLeaves      int           `json:"-"`
}

// SupabaseMirror is the narrow interface proof cache startup needs from
// internal/shard.SupabaseMirror — only download, never upload (this
// process only reads artifacts, it never builds them).
type SupabaseMirror interface {
	ListRemote(ctx context.Context) ([]string, error)
	DownloadArtifact(ctx context.Context, objectPath string) (*shard.Artifact, error)
}

// ShardSummary is one shard artifact's commitment header, without its leaf
// rows — what a caller needs to register the shard as a distributor
// against the chain (or, in this module, against internal/distributor's
// in-memory Program standing in for one).
type ShardSummary struct {
	ShardIndex     int
	Mint           chain.Address
	MerkleRoot     [32]byte
	MaxNumNodes    uint64
	MaxTotalClaim  uint64
	VestingStartTs int64
	VestingEndTs   int64
}

// ProofCache is a read-only, load-once index from claimant to eligibility
// across every shard artifact found at startup. It never changes after
// Load returns: new distributions require a process restart, since shard
// artifacts are immutable once published.
type ProofCache struct {
	byClaimant map[chain.Address]Eligibility
	shards     []ShardSummary
	numShards  int
	logger     *slog.Logger
}

// Load reads every *.json file in dir as a shard artifact, and if mirror is non-nil,
// additionally lists and downloads any remote artifact not already found
// locally (by object path's base name). Duplicate claimants across
// artifacts are rejected — an operator error the cache refuses to mask.
func Load(ctx context.Context, dir string, mirror SupabaseMirror) (*ProofCache, error) {
	logger := slog.Default().With("component", "cache.proof_cache")
	c := &ProofCache{
		byClaimant: make(map[chain.Address]Eligibility),
		logger:     logger,
	}

	seenPaths := make(map[string]bool)

	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("cache: reading shard dir %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("cache: opening %s: %w", path, err)
		}
		artifact, err := shard.ReadArtifact(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("cache: decoding %s: %w", path, err)
		}
		if err := c.absorb(artifact); err != nil {
			return nil, err
		}
		seenPaths[entry.Name()] = true
		c.numShards++
	}

	if mirror != nil {
		remote, err := mirror.ListRemote(ctx)
		if err != nil {
			logger.Warn("listing remote shard mirror failed, continuing with local artifacts only", "error", err)
		} else {
			for _, objectPath := range remote {
				base := filepath.Base(objectPath)
				if seenPaths[base] {
					continue
				}
				artifact, err := mirror.DownloadArtifact(ctx, objectPath)
				if err != nil {
					return nil, fmt.Errorf("cache: downloading remote artifact %s: %w", objectPath, err)
				}
				if err := c.absorb(artifact); err != nil {
					return nil, err
				}
				seenPaths[base] = true
				c.numShards++
			}
		}
	}

	logger.Info("proof cache loaded", "shards", c.numShards, "claimants", len(c.byClaimant))
	return c, nil
}

func (c *ProofCache) absorb(a *shard.Artifact) error {
	c.shards = append(c.shards, ShardSummary{
		ShardIndex:     a.ShardIndex,
		Mint:           a.Metadata.Mint,
		MerkleRoot:     a.MerkleRoot,
		MaxNumNodes:    a.MaxNumNodes,
		MaxTotalClaim:  a.MaxTotalClaim,
		VestingStartTs: a.Metadata.VestingStartTs,
		VestingEndTs:   a.Metadata.VestingEndTs,
	})

	numLeaves := len(a.TreeNodes)
	for i, node := range a.TreeNodes {
		if _, exists := c.byClaimant[node.Claimant]; exists {
			return fmt.Errorf("cache: claimant %s appears in more than one shard artifact", node.Claimant)
		}
		c.byClaimant[node.Claimant] = Eligibility{
			Mint:           a.Metadata.Mint,
			ShardIndex:     a.ShardIndex,
			MerkleRoot:     a.MerkleRoot,
			AmountUnlocked: node.AmountUnlocked,
			AmountLocked:   node.AmountLocked,
			Proof:          node.Proof,
			LeafIndex:      i,
			NumLeaves:      numLeaves,
		}
	}
	return nil
}

// Lookup returns the claimant's eligibility, if any shard artifact contains
// them.
func (c *ProofCache) Lookup(claimant chain.Address) (Eligibility, bool) {
	e, ok := c.byClaimant[claimant]
	return e, ok
}

// NumShards reports how many shard artifacts were loaded.
func (c *ProofCache) NumShards() int {
	return c.numShards
}

// NumClaimants reports the total number of indexed claimants across every
// shard.
func (c *ProofCache) NumClaimants() int {
	return len(c.byClaimant)
}

// Shards returns every loaded shard's commitment header, in load order.
func (c *ProofCache) Shards() []ShardSummary {
	return c.shards
}

// ProofFor reconstructs a merkle.Proof from an indexed Eligibility, for
// callers that want to locally re-verify before submitting new_claim.
func ProofFor(e Eligibility) merkle.Proof {
	sides := merkle.ProofSides(e.LeafIndex, e.NumLeaves)
	proof := make(merkle.Proof, len(e.Proof))
	for i, sib := range e.Proof {
		isLeft := i < len(sides) && sides[i]
		proof[i] = merkle.ProofStep{Sibling: merkle.Hash(sib), IsLeft: isLeft}
	}
	return proof
}
