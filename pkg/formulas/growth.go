package formulas

import "math"

// GrowthRate returns (current - prior) / |prior|.
// ok is false when prior is zero, where the rate is undefined.
func GrowthRate(current, prior float64) (rate float64, ok bool) {
	if prior == 0 {
		return 0, false
	}
	return (current - prior) / math.Abs(prior), true
}

// CAGR returns the compound annual growth rate between two positive values
// `years` apart: (end/begin)^(1/years) - 1. Returns nil for non-positive inputs.
func CAGR(begin, end, years float64) *float64 {
	if begin <= 0 || end <= 0 || years <= 0 {
		return nil
	}
	cagr := math.Pow(end/begin, 1/years) - 1
	return &cagr
}
