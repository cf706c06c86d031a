package chain

import "time"

// Clock supplies the current time to the distributor state machine. All
// timestamps in this module are Unix seconds; a timestamp is never
// compared against a slot number.
type Clock interface {
	Now() int64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() int64 { return time.Now().Unix() }

// FixedClock returns a constant time, for tests that walk through the
// distributor state machine's timestamp boundaries.
type FixedClock int64

func (c FixedClock) Now() int64 { return int64(c) }
