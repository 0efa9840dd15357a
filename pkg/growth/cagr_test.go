package growth

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestCAGR(t *testing.T) {
	got := CAGR(100, 200, 5)
	want := (math.Pow(2, 1.0/5) - 1) * 100
	if !almostEqual(got, want) {
		t.Errorf("CAGR(100, 200, 5) = %f, want %f", got, want)
	}
}

func TestCAGRDegenerateInputs(t *testing.T) {
	cases := []struct {
		name  string
		start float64
		end   float64
		years int
	}{
		{"zero start", 0, 200, 5},
		{"negative start", -10, 200, 5},
		{"zero end", 100, 0, 5},
		{"zero years", 100, 200, 0},
		{"nan start", math.NaN(), 200, 5},
		{"inf end", 100, math.Inf(1), 5},
	}

	for _, c := range cases {
		if got := CAGR(c.start, c.end, c.years); got != 0 {
			t.Errorf("%s: CAGR(%f, %f, %d) = %f, want 0", c.name, c.start, c.end, c.years, got)
		}
	}
}

func TestSafeFloat(t *testing.T) {
	if got := SafeFloat(math.NaN()); got != 0 {
		t.Errorf("SafeFloat(NaN) = %f, want 0", got)
	}
	if got := SafeFloat(math.Inf(-1)); got != 0 {
		t.Errorf("SafeFloat(-Inf) = %f, want 0", got)
	}
	if got := SafeFloat(42.5); got != 42.5 {
		t.Errorf("SafeFloat(42.5) = %f, want 42.5", got)
	}
}

func TestRecentTrend(t *testing.T) {
	// Two clean 10% steps over the last three values.
	got := RecentTrend([]float64{50, 100, 110, 121})
	if !almostEqual(got, 10) {
		t.Errorf("RecentTrend = %f, want 10", got)
	}
}

func TestRecentTrendSkipsNonPositiveBase(t *testing.T) {
	// Second step has a zero base and must be skipped.
	got := RecentTrend([]float64{5, 0, 10})
	if !almostEqual(got, -100) {
		t.Errorf("RecentTrend = %f, want -100", got)
	}
}

func TestRecentTrendShortSeries(t *testing.T) {
	if got := RecentTrend([]float64{100, 110}); got != 0 {
		t.Errorf("RecentTrend on short series = %f, want 0", got)
	}
}
