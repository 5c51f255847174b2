package spike

import (
	"fmt"
	"math"
)

// Time is an absolute simulation time in nanoseconds since the start of the
// run. Arithmetic saturates instead of wrapping, so a delivery time computed
// from extreme inputs stays ordered rather than jumping backwards.
type Time uint64

// Duration is a span of simulation time in nanoseconds.
type Duration uint64

const (
	// TimeZero is the start of a simulation run.
	TimeZero Time = 0

	// TimeMax is the largest representable simulation time.
	TimeMax Time = ^Time(0)

	nanosPerMicro  = 1_000
	nanosPerMilli  = 1_000_000
	nanosPerSecond = 1_000_000_000
)

// TimeFromNanos constructs a Time from nanoseconds.
func TimeFromNanos(ns uint64) Time { return Time(ns) }

// TimeFromMillis constructs a Time from milliseconds.
func TimeFromMillis(ms uint64) Time { return Time(ms * nanosPerMilli) }

// TimeFromSecs constructs a Time from whole seconds.
func TimeFromSecs(s uint64) Time { return Time(s * nanosPerSecond) }

// Nanos returns the time in nanoseconds.
func (t Time) Nanos() uint64 { return uint64(t) }

// Millis returns the time in whole milliseconds, truncating.
func (t Time) Millis() uint64 { return uint64(t) / nanosPerMilli }

// Secs returns the time in seconds as a float.
func (t Time) Secs() float64 { return float64(t) / nanosPerSecond }

// Add returns t advanced by d, saturating at TimeMax.
func (t Time) Add(d Duration) Time {
	if uint64(t) > uint64(TimeMax)-uint64(d) {
		return TimeMax
	}
	return t + Time(d)
}

// Sub returns the span from earlier to t, saturating at zero when earlier
// is in t's future.
func (t Time) Sub(earlier Time) Duration {
	if earlier > t {
		return 0
	}
	return Duration(t - earlier)
}

// Before reports whether t is strictly earlier than other.
func (t Time) Before(other Time) bool { return t < other }

// After reports whether t is strictly later than other.
func (t Time) After(other Time) bool { return t > other }

// String formats the time using the largest unit that divides it cleanly
// enough to read.
func (t Time) String() string { return formatNanos(uint64(t)) }

// DurationFromNanos constructs a Duration from nanoseconds.
func DurationFromNanos(ns uint64) Duration { return Duration(ns) }

// DurationFromMicros constructs a Duration from microseconds.
func DurationFromMicros(us uint64) Duration { return Duration(us * nanosPerMicro) }

// DurationFromMillis constructs a Duration from milliseconds.
func DurationFromMillis(ms uint64) Duration { return Duration(ms * nanosPerMilli) }

// DurationFromSecs constructs a Duration from whole seconds.
func DurationFromSecs(s uint64) Duration { return Duration(s * nanosPerSecond) }

// DurationFromMillisF constructs a Duration from fractional milliseconds.
// Negative and non-finite values are rejected.
func DurationFromMillisF(ms float64) (Duration, error) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms < 0 {
		return 0, fmt.Errorf("duration must be a finite non-negative millisecond count, got %v", ms)
	}
	if ms > float64(^uint64(0))/nanosPerMilli {
		return Duration(^uint64(0)), nil
	}
	return Duration(ms * nanosPerMilli), nil
}

// Nanos returns the duration in nanoseconds.
func (d Duration) Nanos() uint64 { return uint64(d) }

// Micros returns the duration in whole microseconds, truncating.
func (d Duration) Micros() uint64 { return uint64(d) / nanosPerMicro }

// Millis returns the duration in whole milliseconds, truncating.
func (d Duration) Millis() uint64 { return uint64(d) / nanosPerMilli }

// MillisF returns the duration in fractional milliseconds.
func (d Duration) MillisF() float64 { return float64(d) / nanosPerMilli }

// Secs returns the duration in seconds as a float.
func (d Duration) Secs() float64 { return float64(d) / nanosPerSecond }

// Add returns the sum of two durations, saturating at the maximum.
func (d Duration) Add(other Duration) Duration {
	if uint64(d) > ^uint64(0)-uint64(other) {
		return Duration(^uint64(0))
	}
	return d + other
}

// String formats the duration using a readable unit.
func (d Duration) String() string { return formatNanos(uint64(d)) }

func formatNanos(ns uint64) string {
	switch {
	case ns >= nanosPerSecond:
		return fmt.Sprintf("%.3fs", float64(ns)/nanosPerSecond)
	case ns >= nanosPerMilli:
		return fmt.Sprintf("%.3fms", float64(ns)/nanosPerMilli)
	case ns >= nanosPerMicro:
		return fmt.Sprintf("%.3fµs", float64(ns)/nanosPerMicro)
	default:
		return fmt.Sprintf("%dns", ns)
	}
}
