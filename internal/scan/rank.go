package scan

import (
	"math"
	"sort"
)

// rankEntries orders entries best first: higher mean level wins, then lower
// spread, then fewer failures, then the endpoint key so equal measurements
// always land in the same order.
func rankEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.MeanDB != b.MeanDB {
			return a.MeanDB > b.MeanDB
		}
		if a.StdDevDB != b.StdDevDB {
			return a.StdDevDB < b.StdDevDB
		}
		if a.Failures != b.Failures {
			return a.Failures < b.Failures
		}
		return a.Candidate.Key() < b.Candidate.Key()
	})
}

func meanStdDev(values []float64) (mean, stddev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}
