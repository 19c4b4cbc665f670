package m1series

import "math"

// offsetEpsilon absorbs float error so exact interval multiples land on
// their own offset rather than the one before.
const offsetEpsilon = 1e-6

// SampleClock converts between time and sample offsets at a fixed interval.
type SampleClock struct {
	Interval float64 // seconds between samples
}

// OffsetFromTime returns the sample at or before t.
func (c SampleClock) OffsetFromTime(t float64) int {
	return int(math.Floor(t/c.Interval + offsetEpsilon))
}

// TimeFromOffset returns the time of sample offset.
func (c SampleClock) TimeFromOffset(offset int) float64 {
	return float64(offset) * c.Interval
}

// Leak returns the time elapsed past the sample at or before t.
func (c SampleClock) Leak(t float64) float64 {
	leak := t - c.TimeFromOffset(c.OffsetFromTime(t))
	if leak < 0 {
		return 0
	}
	return leak
}

// InterpFactor returns Leak(t) as a fraction of the interval, in [0, 1).
func (c SampleClock) InterpFactor(t float64) float64 {
	f := c.Leak(t) / c.Interval
	if f >= 1 {
		return math.Nextafter(1, 0)
	}
	return f
}
