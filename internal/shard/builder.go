package shard

import (
	"fmt"

	"github.com/tokendrop/distributor/internal/chain"
)

// DefaultMaxShardSize is the default bound on leaves per shard, chosen to
// keep proof depth — and therefore on-chain compute per claim — bounded at
// ⌈log2(N)⌉ ≈ 14.
const DefaultMaxShardSize = 12_000

// BuildShards partitions rows into contiguous chunks of at most maxShardSize
// and builds a complete Artifact for each chunk. Rows are taken in input
// order; the last shard may be shorter. Duplicate claimant IDs anywhere in
// the input are rejected — a claimant may appear in exactly one shard.
func BuildShards(rows []Row, maxShardSize int, meta Metadata) ([]*Artifact, error) {
	if maxShardSize <= 0 {
		maxShardSize = DefaultMaxShardSize
	}
	if err := rejectDuplicateClaimants(rows); err != nil {
		return nil, err
	}

	var artifacts []*Artifact
	for start, shardIndex := 0, 0; start < len(rows); start, shardIndex = start+maxShardSize, shardIndex+1 {
		end := start + maxShardSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		var chunkTotal uint64
		for _, r := range chunk {
			chunkTotal += r.Unlocked + r.Locked
		}
		chunkMeta := meta
		chunkMeta.TotalAmount = chunkTotal

		artifact, err := BuildArtifact(shardIndex, chunk, chunkMeta)
		if err != nil {
			return nil, fmt.Errorf("shard: building shard %d: %w", shardIndex, err)
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, nil
}

func rejectDuplicateClaimants(rows []Row) error {
	seen := make(map[chain.Address]int, len(rows))
	for i, r := range rows {
		if first, ok := seen[r.Claimant]; ok {
			return fmt.Errorf("shard: duplicate claimant %s at rows %d and %d", r.Claimant, first+1, i+1)
		}
		seen[r.Claimant] = i
	}
	return nil
}

// NumShards reports how many shards BuildShards would produce for a given
// row count and shard size, i.e. ⌈rows/N⌉.
func NumShards(numRows, maxShardSize int) int {
	if maxShardSize <= 0 {
		maxShardSize = DefaultMaxShardSize
	}
	return (numRows + maxShardSize - 1) / maxShardSize
}
