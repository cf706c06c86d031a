// Package distributor implements the on-chain distribution state machine:
// create, prove eligibility against a Merkle root, record per-claimant
// progress, enforce monetary/temporal invariants, and execute clawback. It
// is written to be driven by a real validator runtime through the narrow
// interfaces in internal/chain; this package contains only the portable
// business logic.
package distributor

import "errors"

// Sentinel errors for the state machine's error kinds. internal/api only
// reads distributor state and never calls an operation that returns one of
// these, so none is translated to an HTTP status; nothing in this package
// knows about HTTP.
var (
	ErrInvalidProof               = errors.New("distributor: merkle proof does not reconstruct to root")
	ErrExceededMaxClaim            = errors.New("distributor: claim would exceed max_total_claim")
	ErrMaxNodesExceeded            = errors.New("distributor: nodes_claimed already at max_num_nodes")
	ErrUnauthorized                 = errors.New("distributor: caller is not authorized for this operation")
	ErrOwnerMismatch                = errors.New("distributor: token account owner does not match caller")
	ErrClawbackDuringVesting        = errors.New("distributor: clawback_start_ts is before end_ts + min clawback delay")
	ErrClawbackBeforeStart           = errors.New("distributor: clawback attempted before clawback_start_ts")
	ErrClawbackAlreadyClaimed        = errors.New("distributor: distributor has already been clawed back")
	ErrInsufficientClawbackDelay     = errors.New("distributor: clawback_start_ts violates minimum clawback delay")
	ErrSameClawbackReceiver          = errors.New("distributor: new clawback receiver equals the current one")
	ErrSameAdmin                    = errors.New("distributor: new admin equals the current one")
	ErrClaimExpired                 = errors.New("distributor: claim attempted after clawback_start_ts")
	ErrClaimingIsNotStarted          = errors.New("distributor: claiming has not started (now < enable_ts)")
	ErrArithmeticError              = errors.New("distributor: arithmetic overflow or underflow")
	ErrStartTimestampAfterEnd        = errors.New("distributor: start_ts is not before end_ts")
	ErrTimestampsNotInFuture         = errors.New("distributor: start_ts or end_ts is not in the future")
	ErrStartTooFarInFuture           = errors.New("distributor: clawback_start_ts exceeds the maximum clawback horizon")
	ErrInvalidVersion                = errors.New("distributor: version mismatch during lookup")
	ErrInsufficientUnlockedTokens    = errors.New("distributor: no newly vested amount to claim")
	ErrCannotCloseDistributor        = errors.New("distributor: distributor is not closable")
	ErrCannotCloseClaimStatus        = errors.New("distributor: claim status is not closable")
	ErrClaimAlreadyExists            = errors.New("distributor: claim record already exists for this claimant")
	ErrClaimNotFound                 = errors.New("distributor: no claim record exists for this claimant")
	ErrInvalidSignature              = errors.New("distributor: creation signature does not verify")
)
