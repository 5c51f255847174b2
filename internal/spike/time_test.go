package spike

import (
	"math"
	"testing"
)

func TestTime_AddSaturates(t *testing.T) {
	if got := TimeMax.Add(DurationFromMillis(1)); got != TimeMax {
		t.Errorf("TimeMax + 1ms = %v, want TimeMax", got)
	}
	if got := TimeFromMillis(2).Add(DurationFromMillis(3)); got != TimeFromMillis(5) {
		t.Errorf("2ms + 3ms = %v, want 5ms", got)
	}
}

func TestTime_SubSaturatesAtZero(t *testing.T) {
	if got := TimeFromMillis(2).Sub(TimeFromMillis(5)); got != 0 {
		t.Errorf("2ms - 5ms = %v, want 0", got)
	}
	if got := TimeFromMillis(5).Sub(TimeFromMillis(2)); got != DurationFromMillis(3) {
		t.Errorf("5ms - 2ms = %v, want 3ms", got)
	}
}

func TestTime_Ordering(t *testing.T) {
	early, late := TimeFromMillis(1), TimeFromMillis(2)
	if !early.Before(late) || late.Before(early) {
		t.Error("Before ordering wrong")
	}
	if !late.After(early) || early.After(late) {
		t.Error("After ordering wrong")
	}
	if early.Before(early) || early.After(early) {
		t.Error("a time is neither before nor after itself")
	}
}

func TestDuration_Conversions(t *testing.T) {
	d := DurationFromMillis(1500)
	if d.Nanos() != 1_500_000_000 {
		t.Errorf("Nanos = %d", d.Nanos())
	}
	if d.Micros() != 1_500_000 {
		t.Errorf("Micros = %d", d.Micros())
	}
	if d.Millis() != 1500 {
		t.Errorf("Millis = %d", d.Millis())
	}
	if d.Secs() != 1.5 {
		t.Errorf("Secs = %v", d.Secs())
	}
	if DurationFromMicros(250).Nanos() != 250_000 {
		t.Errorf("DurationFromMicros(250) = %d ns", DurationFromMicros(250).Nanos())
	}
	if DurationFromSecs(2) != DurationFromMillis(2000) {
		t.Error("DurationFromSecs(2) != 2000ms")
	}
}

func TestDurationFromMillisF(t *testing.T) {
	d, err := DurationFromMillisF(0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Nanos() != 500_000 {
		t.Errorf("0.5ms = %d ns, want 500000", d.Nanos())
	}

	for _, bad := range []float64{-1, math.NaN(), math.Inf(1)} {
		if _, err := DurationFromMillisF(bad); err == nil {
			t.Errorf("DurationFromMillisF(%v): expected error", bad)
		}
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		d    Duration
		want string
	}{
		{DurationFromNanos(12), "12ns"},
		{DurationFromMicros(3), "3.000µs"},
		{DurationFromMillis(7), "7.000ms"},
		{DurationFromSecs(2), "2.000s"},
	}
	for _, tc := range cases {
		if got := tc.d.String(); got != tc.want {
			t.Errorf("%d ns formats as %q, want %q", tc.d.Nanos(), got, tc.want)
		}
	}
}

