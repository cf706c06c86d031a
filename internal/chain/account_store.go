package chain

import "context"

// ClaimRecord is the decoded form of a ClaimStatusLayout, as delivered by a
// bulk account query or a streamed account update.
type ClaimRecord struct {
	Distributor           Address
	Claimant               Address
	LockedAmount           uint64
	LockedAmountWithdrawn  uint64
	UnlockedAmount         uint64
	UnlockedAmountClaimed  uint64
	Closable               bool
	Admin                  Address
}

// AccountStore is the bulk-query side of the program's account index: "give
// me every claim record that exists right now". C6 (internal/cache) calls
// this once at startup and again after every stream reconnect to
// reconcile missed updates.
type AccountStore interface {
	ListClaimRecords(ctx context.Context) ([]ClaimRecord, error)
}
