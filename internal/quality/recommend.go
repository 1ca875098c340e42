package quality

import (
	"fmt"

	"fareqa/internal/stats"
)

// Findings are the inputs to Recommend.
type Findings struct {
	MissingCells   int
	DuplicateRows  int
	FareMismatches int
	FareOutliers   int
	FareColumn     string
}

// Recommend lists preprocessing steps for the dataset. Data fixes come first,
// followed by the feature engineering steps every modeling run needs.
func Recommend(f Findings) []string {
	var out []string
	if f.MissingCells > 0 {
		out = append(out, "Handle missing values with appropriate imputation strategy")
	}
	if f.DuplicateRows > 0 {
		out = append(out, "Investigate and remove duplicate rows")
	}
	if f.FareMismatches > 0 {
		out = append(out, fmt.Sprintf("Verify %d rows with fare calculation mismatches", f.FareMismatches))
	}
	if f.FareOutliers > 0 {
		col := f.FareColumn
		if col == "" {
			col = stats.DefaultFareColumn
		}
		out = append(out, fmt.Sprintf("Investigate %d potential outliers in %s", f.FareOutliers, col))
	}
	return append(out,
		"Create temporal features from date columns",
		"Encode categorical variables for modeling",
		"Normalize/scale numerical features",
	)
}

// MissingCells sums the per-column null counts of st.
func MissingCells(st stats.Statistics) int {
	n := 0
	for _, v := range st.MissingValues {
		n += v
	}
	return n
}
