// Package stats computes descriptive statistics over a dataset snapshot. All
// functions are pure: they read the snapshot and return fresh values.
//
// Aggregates follow pandas semantics: nulls are skipped, the standard
// deviation is the sample one (n-1), and an aggregate over zero values is NaN.
package stats

import (
	"encoding/json"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"fareqa/internal/dataset"
)

// DefaultFareColumn is the fare column of the flight dataset.
const DefaultFareColumn = "Total Fare (BDT)"

// Statistics is the summary attached to every validation result.
type Statistics struct {
	TotalRows     int            `json:"total_rows"`
	TotalColumns  int            `json:"total_columns"`
	MissingValues map[string]int `json:"missing_values"`
	DuplicateRows int            `json:"duplicate_rows"`
	FareStats     *FareStats     `json:"fare_stats,omitempty"`
}

// FareStats aggregates the fare column. Any field may be NaN.
type FareStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Std    float64 `json:"std"`
}

// MarshalJSON writes NaN and infinities as null.
func (f FareStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Mean   *float64 `json:"mean"`
		Median *float64 `json:"median"`
		Min    *float64 `json:"min"`
		Max    *float64 `json:"max"`
		Std    *float64 `json:"std"`
	}{finite(f.Mean), finite(f.Median), finite(f.Min), finite(f.Max), finite(f.Std)})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Summarize computes Statistics. FareStats is nil when fareColumn is not in
// the snapshot.
func Summarize(snap *dataset.Snapshot, fareColumn string) Statistics {
	st := Statistics{
		TotalRows:     snap.Nrow(),
		TotalColumns:  snap.Ncol(),
		MissingValues: make(map[string]int, snap.Ncol()),
	}
	for _, c := range snap.Columns() {
		st.MissingValues[c.Name()] = c.Nulls()
	}
	st.DuplicateRows, _ = snap.CountDuplicated()

	if col, ok := snap.Column(fareColumn); ok {
		s := summarize(col.Floats())
		st.FareStats = &FareStats{Mean: s.Mean, Median: s.Median, Min: s.Min, Max: s.Max, Std: s.Std}
	}
	return st
}

// Summary describes one numeric column.
type Summary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Std    float64 `json:"std"`
}

func summarize(x []float64) Summary {
	nan := math.NaN()
	s := Summary{Count: len(x), Mean: nan, Median: nan, Min: nan, Max: nan, Std: nan}
	if len(x) == 0 {
		return s
	}
	s.Mean = stat.Mean(x, nil)
	s.Median = Median(x)
	s.Min = floats.Min(x)
	s.Max = floats.Max(x)
	if len(x) > 1 {
		s.Std = stat.StdDev(x, nil)
	}
	return s
}

// Describe summarises a numeric column. ok is false when the column is
// missing or not numeric.
func Describe(snap *dataset.Snapshot, column string) (Summary, bool) {
	col, ok := snap.Column(column)
	if !ok || !col.Numeric() {
		return Summary{}, false
	}
	s := summarize(col.Floats())
	s.Column = column
	return s, true
}

// DescribeNumeric summarises every numeric column in file order.
func DescribeNumeric(snap *dataset.Snapshot) []Summary {
	var out []Summary
	for _, c := range snap.Columns() {
		if !c.Numeric() {
			continue
		}
		s := summarize(c.Floats())
		s.Column = c.Name()
		out = append(out, s)
	}
	return out
}

// Median returns the middle value of x (the mean of the two middle values
// for even lengths), or NaN when x is empty. x is not modified.
func Median(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return math.NaN()
	}
	s := sortedCopy(x)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// Quantile returns the p-quantile of x with linear interpolation between
// order statistics, the pandas default. p is clamped to [0, 1].
func Quantile(x []float64, p float64) float64 {
	if len(x) == 0 || math.IsNaN(p) {
		return math.NaN()
	}
	p = math.Max(0, math.Min(1, p))
	s := sortedCopy(x)
	h := float64(len(s)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(s) {
		return s[len(s)-1]
	}
	return s[i] + (h-lo)*(s[i+1]-s[i])
}

// IQR holds the bounds of the 1.5×IQR outlier rule.
type IQR struct {
	Q1       float64 `json:"q1"`
	Q3       float64 `json:"q3"`
	Lower    float64 `json:"lower"`
	Upper    float64 `json:"upper"`
	Outliers int     `json:"outliers"`
}

// IQROutliers counts values of column outside [Q1-1.5·IQR, Q3+1.5·IQR].
func IQROutliers(snap *dataset.Snapshot, column string) (IQR, bool) {
	col, ok := snap.Column(column)
	if !ok || !col.Numeric() {
		return IQR{}, false
	}
	x := col.Floats()
	if len(x) == 0 {
		return IQR{}, false
	}
	q1, q3 := Quantile(x, 0.25), Quantile(x, 0.75)
	r := IQR{Q1: q1, Q3: q3, Lower: q1 - 1.5*(q3-q1), Upper: q3 + 1.5*(q3-q1)}
	for _, v := range x {
		if v < r.Lower || v > r.Upper {
			r.Outliers++
		}
	}
	return r, true
}

func sortedCopy(x []float64) []float64 {
	s := make([]float64, len(x))
	copy(s, x)
	sort.Float64s(s)
	return s
}
