// Package quality scores a dataset on completeness and uniqueness.
//
// An empty dataset scores 100 on every axis: it has no incomplete and no
// duplicate rows.
package quality

import (
	"fmt"

	"fareqa/internal/dataset"
	"fareqa/internal/stats"
)

// Pass thresholds used by Status.
const (
	CompletenessThreshold = 95.0
	UniquenessThreshold   = 95.0
	OverallThreshold      = 90.0
)

// Score is a composite quality score. Every field is in [0, 100].
type Score struct {
	Completeness float64 `json:"completeness"`
	Uniqueness   float64 `json:"uniqueness"`
	Overall      float64 `json:"overall"`
}

// Compute derives the score from row counts. completeRows is the number of
// rows without any null field; duplicateRows counts exact duplicates after
// the first occurrence.
func Compute(totalRows, completeRows, duplicateRows int) Score {
	if totalRows <= 0 {
		return Score{Completeness: 100, Uniqueness: 100, Overall: 100}
	}
	n := float64(totalRows)
	s := Score{
		Completeness: clamp(float64(completeRows) * 100 / n),
		Uniqueness:   clamp(float64(totalRows-duplicateRows) * 100 / n),
	}
	s.Overall = (s.Completeness + s.Uniqueness) / 2
	return s
}

// FromSnapshot scores snap directly.
func FromSnapshot(snap *dataset.Snapshot) Score {
	dup, _ := snap.CountDuplicated()
	return Compute(snap.Nrow(), stats.CompleteRows(snap), dup)
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// Check is one pass/fail line of the score.
type Check struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Pass      bool    `json:"pass"`
}

// Status evaluates each axis against its threshold. A value passes when it
// is strictly above the threshold.
func (s Score) Status() []Check {
	return []Check{
		{Name: "completeness", Value: s.Completeness, Threshold: CompletenessThreshold, Pass: s.Completeness > CompletenessThreshold},
		{Name: "uniqueness", Value: s.Uniqueness, Threshold: UniquenessThreshold, Pass: s.Uniqueness > UniquenessThreshold},
		{Name: "overall", Value: s.Overall, Threshold: OverallThreshold, Pass: s.Overall > OverallThreshold},
	}
}

// Pass reports whether every axis passes.
func (s Score) Pass() bool {
	for _, c := range s.Status() {
		if !c.Pass {
			return false
		}
	}
	return true
}

func (s Score) String() string {
	return fmt.Sprintf("completeness %.2f%%, uniqueness %.2f%%, overall %.2f%%",
		s.Completeness, s.Uniqueness, s.Overall)
}

// CellScore is the cell-level metric 100 × (1 − (missing cells + duplicate
// rows) / (rows × columns)), floored at 0. An empty table scores 100.
func CellScore(st stats.Statistics) float64 {
	cells := st.TotalRows * st.TotalColumns
	if cells == 0 {
		return 100
	}
	return clamp(100 - float64(MissingCells(st)+st.DuplicateRows)*100/float64(cells))
}
