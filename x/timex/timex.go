package timex

import "time"

// Ticks counts kernel scheduler ticks. The tick rate is fixed at kernel
// construction; 1 kHz on every shipped target.
type Ticks int64

// TicksToDuration converts a tick count at the given tick rate.
// tickHz==0 is coerced to 1 to avoid division by zero.
func TicksToDuration(t Ticks, tickHz uint32) time.Duration {
	if tickHz == 0 {
		tickHz = 1
	}
	return time.Duration(t) * (time.Second / time.Duration(tickHz))
}

// DurationToTicks converts a duration to whole ticks at the given tick rate,
// rounding down.
func DurationToTicks(d time.Duration, tickHz uint32) Ticks {
	if tickHz == 0 {
		tickHz = 1
	}
	return Ticks(d / (time.Second / time.Duration(tickHz)))
}

// PeriodFromHz returns a nanosecond period for a requested frequency.
// freqHz==0 is coerced to 1 to avoid division by zero.
func PeriodFromHz(freqHz uint32) uint64 {
	if freqHz == 0 {
		freqHz = 1
	}
	return uint64(1_000_000_000 / uint64(freqHz))
}
