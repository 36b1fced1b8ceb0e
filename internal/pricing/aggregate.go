// Package pricing folds raw price observations into one price per material
// and year, and derives year-on-year inflation from those prices.
package pricing

import (
	"math"
)

// BandWidth is the outlier band half-width in population standard deviations.
const BandWidth = 1.5

// Summary describes one aggregated group.
type Summary struct {
	Mean     float64
	Kept     int
	Dropped  int
	Fallback bool
}

// Aggregate returns the mean of prices after removing outliers.
//
// Prices outside mean ± BandWidth·σ of the group are dropped, σ being the
// population standard deviation. An empty result falls back to the whole
// group. A group of n prices holds no point further than sqrt(n-1)·σ from
// its mean, so groups of three or fewer always keep every price.
func Aggregate(prices []float64) (Summary, bool) {
	if len(prices) == 0 {
		return Summary{}, false
	}
	kept := band(prices)
	s := Summary{Kept: len(kept), Dropped: len(prices) - len(kept)}
	if len(kept) == 0 {
		kept = prices
		s = Summary{Kept: len(prices), Fallback: true}
	}
	s.Mean, _ = meanStd(kept)
	return s, true
}

func band(xs []float64) []float64 {
	mu, sigma := meanStd(xs)
	if sigma == 0 {
		return xs
	}
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if within(x, mu, sigma) {
			out = append(out, x)
		}
	}
	return out
}

// within allows for rounding in the mean of identical prices.
func within(x, mu, sigma float64) bool {
	return math.Abs(x-mu) <= BandWidth*sigma+1e-9*math.Abs(mu)
}

// meanStd returns the mean and population standard deviation.
func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mu := sum / float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - mu) * (x - mu)
	}
	return mu, math.Sqrt(ss / float64(len(xs)))
}
