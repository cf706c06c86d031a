package distributor

import (
	"context"

	"github.com/tokendrop/distributor/internal/chain"
)

// ProgramAccountStore adapts a Program's own distributor and claim records
// to the chain.AccountStore interface the claim-status cache (C6)
// bootstraps and reconciles from. A deployment talking to a real runtime
// would back AccountStore with an RPC bulk account query instead; here the
// Program already holds every claim record in memory, so the cache can
// read it directly rather than round-tripping through a wire format.
type ProgramAccountStore struct {
	program *Program
}

// NewProgramAccountStore wraps program as a chain.AccountStore.
func NewProgramAccountStore(program *Program) *ProgramAccountStore {
	return &ProgramAccountStore{program: program}
}

// ListClaimRecords returns every claim record across every distributor the
// program currently tracks, addressed by each distributor's derived
// address.
func (s *ProgramAccountStore) ListClaimRecords(ctx context.Context) ([]chain.ClaimRecord, error) {
	var out []chain.ClaimRecord
	for _, d := range s.program.ListDistributors() {
		distAddr := chain.DeriveDistributorAddress(d.Mint, d.Version)
		for _, c := range s.program.ListClaimsForDistributor(d.Mint, d.Version) {
			out = append(out, chain.ClaimRecord{
				Distributor:           distAddr,
				Claimant:              c.Claimant,
				LockedAmount:          c.LockedAmount,
				LockedAmountWithdrawn: c.LockedAmountWithdrawn,
				UnlockedAmount:        c.UnlockedAmount,
				UnlockedAmountClaimed: c.UnlockedAmountClaimed,
				Closable:              c.Closable,
				Admin:                 c.Admin,
			})
		}
	}
	return out, nil
}
