package stats

import "gonum.org/v1/gonum/stat/distuv"

// ZVal returns the two-tailed Z-value associated with a specific confidence interval.
// The interval is a number from 0 to 100 percent.
func ZVal(confidenceInterval float64) float64 {
	dist := distuv.UnitNormal
	return dist.Quantile((1 + confidenceInterval/100) / 2)
}

// MarginOfError is the half-width of the confidence interval around the
// mean of s.
func (s *Statistic) MarginOfError(confidenceInterval float64) float64 {
	if s.n <= 1 {
		return 0
	}
	return ZVal(confidenceInterval) * s.StandardError()
}
