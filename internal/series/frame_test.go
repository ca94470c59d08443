package series

import (
	"math"
	"testing"
	"time"
)

func ts(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func TestMerge_OuterJoinForwardFill(t *testing.T) {
	inputs := []Series{
		{
			Name:   "a",
			Times:  []time.Time{ts(10), ts(30)},
			Values: []float64{0.1, 0.3},
		},
		{
			Name:   "b",
			Times:  []time.Time{ts(20), ts(30), ts(40)},
			Values: []float64{0.5, 0.6, 0.7},
		},
	}

	f := Merge(inputs)
	if f.Len() != 4 {
		t.Fatalf("rows = %d, want 4 (union of timestamps)", f.Len())
	}
	for i, want := range []int64{10, 20, 30, 40} {
		if f.Timestamps[i].Unix() != want {
			t.Fatalf("timestamps[%d] = %d, want %d", i, f.Timestamps[i].Unix(), want)
		}
	}

	a, _ := f.Column("a")
	// a has no observation at 20 and 40: carried forward from 10 and 30.
	wantA := []float64{0.1, 0.1, 0.3, 0.3}
	for i := range wantA {
		if a[i] != wantA[i] {
			t.Fatalf("a[%d] = %v, want %v", i, a[i], wantA[i])
		}
	}

	b, _ := f.Column("b")
	// b starts at 20: the row before its first observation stays NaN.
	if !math.IsNaN(b[0]) {
		t.Fatalf("b[0] = %v, want NaN before first observation", b[0])
	}
	wantB := []float64{0.5, 0.6, 0.7}
	for i := range wantB {
		if b[i+1] != wantB[i] {
			t.Fatalf("b[%d] = %v, want %v", i+1, b[i+1], wantB[i])
		}
	}
}

func TestMerge_Empty(t *testing.T) {
	f := Merge(nil)
	if !f.Empty() {
		t.Fatal("merging no inputs must yield an empty frame")
	}
	if _, ok := f.Column("anything"); ok {
		t.Fatal("empty frame must have no columns")
	}
}

func TestRowIter_MatchesMerge(t *testing.T) {
	inputs := []Series{
		{Name: "a", Times: []time.Time{ts(10), ts(30)}, Values: []float64{0.1, 0.3}},
		{Name: "b", Times: []time.Time{ts(20), ts(40)}, Values: []float64{0.5, 0.7}},
	}
	f := Merge(inputs)
	it := NewRowIter(inputs)

	for i := 0; i < f.Len(); i++ {
		row, ok := it.Next()
		if !ok {
			t.Fatalf("iterator exhausted at row %d of %d", i, f.Len())
		}
		if !row.Timestamp.Equal(f.Timestamps[i]) {
			t.Fatalf("row %d timestamp %v, want %v", i, row.Timestamp, f.Timestamps[i])
		}
		for _, col := range f.Columns {
			want := f.Data[col][i]
			got, present := row.Values[col]
			if math.IsNaN(want) {
				if present {
					t.Fatalf("row %d column %q present before first observation", i, col)
				}
				continue
			}
			if !present || got != want {
				t.Fatalf("row %d column %q = %v (present=%v), want %v", i, col, got, present, want)
			}
		}
	}
	if _, ok := it.Next(); ok {
		t.Fatal("iterator must be exhausted after the last frame row")
	}
}

func TestColumnStatistics(t *testing.T) {
	f := Merge([]Series{
		{Name: "p", Times: []time.Time{ts(1), ts(2), ts(3)}, Values: []float64{0.2, 0.8, 0.5}},
		{Name: "late", Times: []time.Time{ts(3)}, Values: []float64{0.9}},
	})

	stats, ok := ColumnStatistics(f, "p")
	if !ok {
		t.Fatal("expected statistics for p")
	}
	if stats.Count != 3 || stats.Min != 0.2 || stats.Max != 0.8 || stats.First != 0.2 || stats.Last != 0.5 {
		t.Fatalf("stats = %+v", stats)
	}
	if mean := stats.Mean; math.Abs(mean-0.5) > 1e-9 {
		t.Fatalf("mean = %v, want 0.5", mean)
	}
	if math.Abs(stats.Median-0.5) > 1e-9 {
		t.Fatalf("median = %v, want 0.5", stats.Median)
	}
	if math.Abs(stats.Std-math.Sqrt(0.06)) > 1e-9 {
		t.Fatalf("std = %v, want sqrt(0.06)", stats.Std)
	}
	if math.Abs(stats.Change()-0.3) > 1e-9 {
		t.Fatalf("change = %v, want 0.3", stats.Change())
	}
	if math.Abs(stats.ChangePercent()-150) > 1e-9 {
		t.Fatalf("change%% = %v, want 150", stats.ChangePercent())
	}

	// NaN rows before the late column's first observation are skipped.
	late, ok := ColumnStatistics(f, "late")
	if !ok || late.Count != 1 || late.First != 0.9 {
		t.Fatalf("late stats = %+v, ok=%v", late, ok)
	}

	if _, ok := ColumnStatistics(f, "missing"); ok {
		t.Fatal("missing column must report ok=false")
	}
}
