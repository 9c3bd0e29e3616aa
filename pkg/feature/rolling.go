package feature

import (
	"gonum.org/v1/gonum/stat"

	"github.com/tunogya/footprint/pkg/model"
)

// Rolling statistics over trailing windows. Each value is computed from
// its own window slice, so the result at index i depends only on
// values[i-n+1 : i+1]. Indices without a full window are left as the
// zero Stat.

// rollingMean calculates the trailing mean over n values
func rollingMean(values []float64, n int) []model.Stat {
	out := make([]model.Stat, len(values))
	for i := n - 1; i < len(values); i++ {
		out[i] = model.NewStat(stat.Mean(values[i-n+1:i+1], nil))
	}
	return out
}

// rollingStd calculates the trailing sample standard deviation over n values
func rollingStd(values []float64, n int) []model.Stat {
	out := make([]model.Stat, len(values))
	for i := n - 1; i < len(values); i++ {
		out[i] = model.NewStat(stat.StdDev(values[i-n+1:i+1], nil))
	}
	return out
}
