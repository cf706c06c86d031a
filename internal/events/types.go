package events

import "github.com/tokendrop/distributor/internal/chain"

// Event type strings emitted by internal/distributor. Source is always
// "distributor/<mint>/<version>"; Subject is the claimant address where
// one applies.
const (
	TypeDistributorCreated = "distributor.created"
	TypeNewClaim            = "distributor.claim.new"
	TypeClaimed             = "distributor.claim.locked"
	TypeClawback            = "distributor.clawback"
	TypeAdminChanged        = "distributor.admin.changed"
	TypeClawbackReceiverSet = "distributor.clawback_receiver.changed"
	TypeEnableSlotSet       = "distributor.enable_slot.changed"
	TypeDistributorClosed   = "distributor.closed"
	TypeClaimStatusClosed   = "distributor.claim.closed"
)

// NewClaimData builds the payload for a TypeNewClaim event: a claimant's
// first interaction with a distributor, recording the leaf's unlocked
// amount and its full locked amount. It does not record the amount paid
// out at claim time or the locked portion not yet vested.
func NewClaimData(claimant chain.Address, amountUnlocked, amountLocked uint64) map[string]interface{} {
	return map[string]interface{}{
		"claimant":        claimant.String(),
		"amount_unlocked": amountUnlocked,
		"amount_locked":   amountLocked,
	}
}

// ClaimedData builds the payload for a TypeClaimed event: a claim_locked
// withdrawal of newly-vested tokens.
func ClaimedData(claimant chain.Address, amountClaimed uint64) map[string]interface{} {
	return map[string]interface{}{
		"claimant":       claimant.String(),
		"amount_claimed": amountClaimed,
	}
}

// ClawbackData builds the payload for a TypeClawback event.
func ClawbackData(receiver chain.Address, amount uint64, clawbackTs int64) map[string]interface{} {
	return map[string]interface{}{
		"receiver":    receiver.String(),
		"amount":      amount,
		"clawback_ts": clawbackTs,
	}
}

// AdminChangedData builds the payload for a TypeAdminChanged event.
func AdminChangedData(oldAdmin, newAdmin chain.Address) map[string]interface{} {
	return map[string]interface{}{
		"old_admin": oldAdmin.String(),
		"new_admin": newAdmin.String(),
	}
}

// ClawbackReceiverChangedData builds the payload for a
// TypeClawbackReceiverSet event.
func ClawbackReceiverChangedData(oldReceiver, newReceiver chain.Address) map[string]interface{} {
	return map[string]interface{}{
		"old_receiver": oldReceiver.String(),
		"new_receiver": newReceiver.String(),
	}
}

// EnableSlotChangedData builds the payload for a TypeEnableSlotSet event.
func EnableSlotChangedData(oldTs, newTs int64) map[string]interface{} {
	return map[string]interface{}{
		"old_enable_ts": oldTs,
		"new_enable_ts": newTs,
	}
}

// ClaimStatusClosedData builds the payload for a TypeClaimStatusClosed
// event.
func ClaimStatusClosedData(claimant chain.Address) map[string]interface{} {
	return map[string]interface{}{
		"claimant": claimant.String(),
	}
}
