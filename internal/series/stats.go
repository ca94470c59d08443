package series

import (
	"math"
	"sort"
)

// Statistics summarises one column of a merged frame.
type Statistics struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	Std    float64
	Median float64
	First  float64
	Last   float64
}

// Change is the absolute move from the first to the last value.
func (s Statistics) Change() float64 {
	return s.Last - s.First
}

// ChangePercent is the move as a percentage of the first value, or zero
// when the series starts at zero.
func (s Statistics) ChangePercent() float64 {
	if s.First == 0 {
		return 0
	}
	return (s.Last - s.First) / s.First * 100
}

// ColumnStatistics summarises a frame column, skipping leading NaN cells
// from before the column's first observation. ok is false when the column
// does not exist or holds no values.
func ColumnStatistics(f *Frame, name string) (Statistics, bool) {
	col, exists := f.Column(name)
	if !exists {
		return Statistics{}, false
	}
	stats := Statistics{Min: math.Inf(1), Max: math.Inf(-1)}
	sum := 0.0
	var observed []float64
	for _, v := range col {
		if math.IsNaN(v) {
			continue
		}
		if stats.Count == 0 {
			stats.First = v
		}
		stats.Last = v
		stats.Min = math.Min(stats.Min, v)
		stats.Max = math.Max(stats.Max, v)
		sum += v
		observed = append(observed, v)
		stats.Count++
	}
	if stats.Count == 0 {
		return Statistics{}, false
	}
	stats.Mean = sum / float64(stats.Count)

	variance := 0.0
	for _, v := range observed {
		d := v - stats.Mean
		variance += d * d
	}
	stats.Std = math.Sqrt(variance / float64(stats.Count))

	sort.Float64s(observed)
	mid := len(observed) / 2
	if len(observed)%2 == 1 {
		stats.Median = observed[mid]
	} else {
		stats.Median = (observed[mid-1] + observed[mid]) / 2
	}
	return stats, true
}
