package growth

// trendWindow is how many trailing values feed the recent-trend average.
// Three values give two year-over-year growth steps.
const trendWindow = 3

// RecentTrend averages the year-over-year growth of the most recent
// periods, in percent. It weights the near past by looking only at the
// last trendWindow values, so an acceleration or slowdown shows up even
// when the long-run CAGR is flat. Values are oldest first. Steps with a
// non-positive base are skipped; with no usable step the trend is zero.
func RecentTrend(values []float64) float64 {
	if len(values) < trendWindow {
		return 0.0
	}

	var sum float64
	var steps int
	for i := len(values) - trendWindow; i < len(values)-1; i++ {
		base := SafeFloat(values[i])
		if base <= 0 {
			continue
		}
		sum += (SafeFloat(values[i+1])/base - 1) * 100
		steps++
	}

	if steps == 0 {
		return 0.0
	}
	return sum / float64(steps)
}
