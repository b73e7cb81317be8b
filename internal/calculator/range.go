package calculator

import "math"

// trailingRange returns, for each index i, the highest high and lowest low
// over bars [max(0, i-n+1) .. i]. Early indices use the shorter window that
// is available.
func trailingRange(highs, lows []float64, n int) (hh, ll []float64) {
	hh = make([]float64, len(highs))
	ll = make([]float64, len(lows))
	for i := range highs {
		start := i - n + 1
		if start < 0 {
			start = 0
		}
		high := math.Inf(-1)
		low := math.Inf(1)
		for j := start; j <= i; j++ {
			if highs[j] > high {
				high = highs[j]
			}
			if lows[j] < low {
				low = lows[j]
			}
		}
		hh[i] = high
		ll[i] = low
	}
	return hh, ll
}

// position returns where price sits within [low, high] as 0..1. A flat
// range reads 0.5.
func position(price, high, low float64) float64 {
	if high == low {
		return 0.5
	}
	return (price - low) / (high - low)
}
