package features

import "math"

// IVPercentile computes the rolling percentile rank of each value against
// the preceding window: the share of the previous window-1 observations at
// or below the current value, scaled to 0..100. Positions with fewer than
// minPeriods observations in the window are NaN.
func IVPercentile(series []float64, window, minPeriods int) []float64 {
	if window < 2 {
		window = 2
	}
	if minPeriods <= 0 {
		minPeriods = window / 2
		if minPeriods < 1 {
			minPeriods = 1
		}
	}

	out := make([]float64, len(series))
	for i := range series {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		n := i - lo + 1
		if n < minPeriods || n < 2 {
			out[i] = math.NaN()
			continue
		}

		current := series[i]
		leq := 0
		for _, v := range series[lo:i] {
			if v <= current {
				leq++
			}
		}
		out[i] = float64(leq) / float64(i-lo) * 100
	}
	return out
}

// IVRank computes the rolling min-max rank: where the current value sits
// between the window minimum and maximum, scaled to 0..100. A flat window
// (min equals max) yields NaN.
func IVRank(series []float64, window, minPeriods int) []float64 {
	if window < 2 {
		window = 2
	}
	if minPeriods <= 0 {
		minPeriods = window / 2
		if minPeriods < 1 {
			minPeriods = 1
		}
	}

	out := make([]float64, len(series))
	for i := range series {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		if i-lo+1 < minPeriods {
			out[i] = math.NaN()
			continue
		}

		mn, mx := series[lo], series[lo]
		for _, v := range series[lo : i+1] {
			if v < mn {
				mn = v
			}
			if v > mx {
				mx = v
			}
		}
		if mx == mn {
			out[i] = math.NaN()
			continue
		}
		out[i] = (series[i] - mn) / (mx - mn) * 100
	}
	return out
}
