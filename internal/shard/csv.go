// Package shard partitions an arbitrarily large allocation list into
// bounded shards, builds each shard's Merkle tree, and persists the result
// as a self-describing artifact (root, leaves, per-leaf proofs).
package shard

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/tokendrop/distributor/internal/chain"
	"github.com/tokendrop/distributor/internal/merkle"
)

// Row is one parsed CSV allocation row, in input order.
type Row struct {
	Claimant chain.Address
	Unlocked uint64
	Locked   uint64
}

// ReadCSV parses the builder's input CSV: header "pubkey,unlocked,locked",
// rows ordered as the operator wishes leaves to appear. Row order is
// preserved exactly — the builder never sorts.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("shard: reading CSV header: %w", err)
	}
	if len(header) != 3 || header[0] != "pubkey" || header[1] != "unlocked" || header[2] != "locked" {
		return nil, fmt.Errorf("shard: unexpected CSV header %v, want [pubkey unlocked locked]", header)
	}

	var rows []Row
	lineNo := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("shard: reading CSV row %d: %w", lineNo+1, err)
		}
		lineNo++

		addr, err := chain.ParseAddress(rec[0])
		if err != nil {
			return nil, fmt.Errorf("shard: row %d: %w", lineNo, err)
		}
		unlocked, err := strconv.ParseUint(rec[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("shard: row %d: invalid unlocked amount %q: %w", lineNo, rec[1], err)
		}
		locked, err := strconv.ParseUint(rec[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("shard: row %d: invalid locked amount %q: %w", lineNo, rec[2], err)
		}
		rows = append(rows, Row{Claimant: addr, Unlocked: unlocked, Locked: locked})
	}
	return rows, nil
}

// ToLeaves converts parsed rows into merkle leaves, preserving order.
func ToLeaves(rows []Row) []merkle.Leaf {
	leaves := make([]merkle.Leaf, len(rows))
	for i, r := range rows {
		leaves[i] = merkle.Leaf{Claimant: r.Claimant, Unlocked: r.Unlocked, Locked: r.Locked}
	}
	return leaves
}
