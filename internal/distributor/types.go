package distributor

import "github.com/tokendrop/distributor/internal/chain"

// MinClawbackDelay is the minimum gap required between a distributor's
// vesting end and its clawback start: at least one day.
const MinClawbackDelay = int64(24 * 60 * 60)

// MaxClawbackHorizon bounds how far in the future clawback_start_ts may be
// set at creation time. 180 days is long enough to cover any realistic
// vesting schedule without letting an operator set an effectively
// unbounded delay.
const MaxClawbackHorizon = int64(180 * 24 * 60 * 60)

// Distributor is the on-chain record governing one shard: its commitment
// root, schedule, vault, admin, and running counters. One Distributor
// exists per (mint, version).
type Distributor struct {
	Bump    uint8
	Version uint64
	Root    [32]byte

	Mint  chain.Address
	Vault chain.Address

	MaxTotalClaim uint64
	MaxNumNodes   uint64

	TotalClaimed uint64
	TotalForgone uint64
	NodesClaimed uint64

	StartTs         int64
	EndTs           int64
	ClawbackStartTs int64

	ClawbackReceiver chain.Address
	Admin            chain.Address

	ClawedBack bool
	EnableTs   int64
	Closable   bool
}

// ClaimRecord is the on-chain record for one (claimant, distributor) pair.
type ClaimRecord struct {
	Claimant chain.Address

	LockedAmount          uint64
	LockedAmountWithdrawn uint64

	UnlockedAmount        uint64
	UnlockedAmountClaimed uint64

	Closable bool
	Admin    chain.Address // cached for closure authorization
}

// State classifies a Distributor's lifecycle stage at a point in time.
type State int

const (
	StatePending State = iota
	StateActive
	StateExpired
	StateClawedBack
)

// StateAt returns d's lifecycle state as of now.
func (d *Distributor) StateAt(now int64) State {
	if d.ClawedBack {
		return StateClawedBack
	}
	if now < d.EnableTs {
		return StatePending
	}
	if now < d.ClawbackStartTs {
		return StateActive
	}
	return StateExpired
}

// ClaimState classifies a ClaimRecord's lifecycle stage.
type ClaimState int

const (
	ClaimStateOpened ClaimState = iota
	ClaimStateFullyPaid
)

// StateOf returns c's lifecycle state. A ClaimRecord only exists once
// new_claim has run, so there is no "None" value here — the cache/store
// layer represents "None" as the record's absence.
func (c *ClaimRecord) StateOf() ClaimState {
	if c.LockedAmountWithdrawn >= c.LockedAmount {
		return ClaimStateFullyPaid
	}
	return ClaimStateOpened
}
