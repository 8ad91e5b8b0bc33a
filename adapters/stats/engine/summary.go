package engine

import (
	"github.com/montanaflynn/stats"

	"goedm/domain/edm"
)

// CrossMapSummary describes the off-diagonal cells of a cross map
type CrossMapSummary struct {
	Pairs            int     `json:"pairs"`
	Mean             float64 `json:"mean"`
	Median           float64 `json:"median"`
	StdDev           float64 `json:"std_dev"`
	Max              float64 `json:"max"`
	StrongestLibrary int     `json:"strongest_library"`
	StrongestTarget  int     `json:"strongest_target"`
}

// Summarize reduces a cross map to distribution statistics of its
// off-diagonal skills. A 1x1 map has no pairs and reports -1 for the
// strongest cell.
func Summarize(cm *edm.CrossMap) (CrossMapSummary, error) {
	summary := CrossMapSummary{StrongestLibrary: -1, StrongestTarget: -1}

	n := cm.Size()
	data := make(stats.Float64Data, 0, n*(n-1))
	best := -2.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			v := float64(cm.At(i, j))
			data = append(data, v)
			if v > best {
				best = v
				summary.StrongestLibrary, summary.StrongestTarget = i, j
			}
		}
	}
	summary.Pairs = len(data)
	if len(data) == 0 {
		return summary, nil
	}

	var err error
	if summary.Mean, err = stats.Mean(data); err != nil {
		return summary, err
	}
	if summary.Median, err = stats.Median(data); err != nil {
		return summary, err
	}
	if summary.StdDev, err = stats.StandardDeviation(data); err != nil {
		return summary, err
	}
	if summary.Max, err = stats.Max(data); err != nil {
		return summary, err
	}
	return summary, nil
}
