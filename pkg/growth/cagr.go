package growth

import "math"

// SafeFloat normalizes NaN and infinite values to zero so that a single
// bad data point from a provider cannot poison a whole series.
func SafeFloat(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0.0
	}
	return x
}

// CAGR computes the compound annual growth rate between a start and end
// value over the given number of years, in percent. Non-positive inputs
// make the rate undefined and return zero.
func CAGR(start, end float64, years int) float64 {
	start = SafeFloat(start)
	end = SafeFloat(end)

	if start <= 0 || end <= 0 || years <= 0 {
		return 0.0
	}

	return (math.Pow(end/start, 1.0/float64(years)) - 1) * 100
}
