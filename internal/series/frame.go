// Package series merges per-outcome price histories into aligned time
// series, forward-filling gaps so every column carries its last known value.
package series

import (
	"math"
	"sort"
	"time"
)

// Frame is a timestamp-indexed table of float columns. Cells with no
// observed or carried value are NaN.
type Frame struct {
	Timestamps []time.Time
	Columns    []string
	Data       map[string][]float64
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Timestamps)
}

// Empty reports whether the frame has no rows.
func (f *Frame) Empty() bool {
	return len(f.Timestamps) == 0
}

// Column returns the values of a column and whether it exists.
func (f *Frame) Column(name string) ([]float64, bool) {
	vals, ok := f.Data[name]
	return vals, ok
}

// Series is one named input column: observations at arbitrary timestamps.
type Series struct {
	Name   string
	Times  []time.Time
	Values []float64
}

// Merge outer-joins the input series on their timestamps and forward-fills
// each column, so after a column's first observation every later row carries
// its most recent value. Rows before a column's first observation stay NaN.
func Merge(inputs []Series) *Frame {
	frame := &Frame{Data: make(map[string][]float64)}
	if len(inputs) == 0 {
		return frame
	}

	stamps := make(map[int64]time.Time)
	for _, s := range inputs {
		for _, t := range s.Times {
			stamps[t.Unix()] = t
		}
	}
	keys := make([]int64, 0, len(stamps))
	for k := range stamps {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	index := make(map[int64]int, len(keys))
	frame.Timestamps = make([]time.Time, len(keys))
	for i, k := range keys {
		frame.Timestamps[i] = stamps[k]
		index[k] = i
	}

	for _, s := range inputs {
		col := make([]float64, len(keys))
		for i := range col {
			col[i] = math.NaN()
		}
		for i, t := range s.Times {
			col[index[t.Unix()]] = s.Values[i]
		}
		last := math.NaN()
		for i := range col {
			if math.IsNaN(col[i]) {
				col[i] = last
			} else {
				last = col[i]
			}
		}
		frame.Columns = append(frame.Columns, s.Name)
		frame.Data[s.Name] = col
	}
	return frame
}

// Row is one emitted row of a streaming merge: a timestamp and the
// forward-filled value of every column observed so far.
type Row struct {
	Timestamp time.Time
	Values    map[string]float64
}

// RowIter streams the merged rows one at a time without materialising the
// full frame, producing exactly the rows Merge would.
type RowIter struct {
	columns []string
	keys    []int64
	stamps  map[int64]time.Time
	cells   map[int64]map[string]float64
	prev    map[string]float64
	pos     int
}

// NewRowIter prepares a streaming merge over the input series.
func NewRowIter(inputs []Series) *RowIter {
	it := &RowIter{
		stamps: make(map[int64]time.Time),
		cells:  make(map[int64]map[string]float64),
		prev:   make(map[string]float64),
	}
	for _, s := range inputs {
		it.columns = append(it.columns, s.Name)
		for i, t := range s.Times {
			k := t.Unix()
			it.stamps[k] = t
			cell, ok := it.cells[k]
			if !ok {
				cell = make(map[string]float64)
				it.cells[k] = cell
			}
			cell[s.Name] = s.Values[i]
		}
	}
	it.keys = make([]int64, 0, len(it.stamps))
	for k := range it.stamps {
		it.keys = append(it.keys, k)
	}
	sort.Slice(it.keys, func(i, j int) bool { return it.keys[i] < it.keys[j] })
	return it
}

// Columns returns the column names in input order.
func (it *RowIter) Columns() []string {
	return it.columns
}

// Next emits the next row, forward-filling columns from their last observed
// value. It returns false when the rows are exhausted.
func (it *RowIter) Next() (Row, bool) {
	if it.pos >= len(it.keys) {
		return Row{}, false
	}
	k := it.keys[it.pos]
	it.pos++
	for name, v := range it.cells[k] {
		it.prev[name] = v
	}
	row := Row{
		Timestamp: it.stamps[k],
		Values:    make(map[string]float64, len(it.prev)),
	}
	for name, v := range it.prev {
		row.Values[name] = v
	}
	return row, true
}
