package telemetry

import "time"

// Timestamps on the wire are 100ns ticks since 1601-01-01 UTC.
const (
    TicksPerSecond = 10_000_000
    // EpochOffset is the number of ticks between 1601-01-01 and 1970-01-01.
    EpochOffset int64 = 116444736000000000
)

// TicksFromTime converts t to absolute ticks.
func TicksFromTime(t time.Time) int64 {
    return EpochOffset + t.UnixNano()/100
}

// TimeFromTicks converts absolute ticks back to wall-clock time.
func TimeFromTicks(ticks int64) time.Time {
    return time.Unix(0, (ticks-EpochOffset)*100).UTC()
}

// Clock maps device-relative ticks (ticks since the device clock started)
// to absolute ticks.
type Clock struct {
    base int64
}

// NewClock returns a Clock for a device clock that read zero at start.
func NewClock(start time.Time) Clock { return Clock{base: TicksFromTime(start)} }

// Absolute converts relative device ticks to absolute ticks.
func (c Clock) Absolute(rel int64) int64 { return c.base + rel }

// Relative returns the device ticks at wall-clock time t.
func (c Clock) Relative(t time.Time) int64 { return TicksFromTime(t) - c.base }
