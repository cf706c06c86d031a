package distributor

// vestedAmount implements the linear vesting function for a locked total
// of `locked`, given the distributor's start/end timestamps.
//
//	now <= start:        0
//	now >= end:          locked
//	otherwise:           floor(locked * (now - start) / (end - start))
//
// Rounding is always down: any dust left after the final locked claim
// lingers in the vault until a clawback sweeps it.
func vestedAmount(locked uint64, start, end, now int64) (uint64, error) {
	if now <= start {
		return 0, nil
	}
	if now >= end {
		return locked, nil
	}
	elapsed := uint64(now - start)
	window := uint64(end - start)
	return safeMulDiv(locked, elapsed, window)
}

// VestedAmount exposes vestedAmount to callers outside the package (the
// HTTP query layer's eligibility endpoint interpolates claimable amounts
// without re-deriving the state machine's own vesting math).
func VestedAmount(locked uint64, start, end, now int64) (uint64, error) {
	return vestedAmount(locked, start, end, now)
}
