// Package validation checks a dataset snapshot against a column schema and a
// set of advisory business rules.
//
// Every finding is returned in a Result. Schema violations are hard errors
// and make the result invalid; business-rule findings are warnings and never
// do. Nothing in this package logs.
package validation

import (
	"fareqa/internal/stats"
)

// Column-level failure checks. Failures of these kinds have Row == -1,
// except row_readable which names the unreadable row.
const (
	CheckType              = "type"
	CheckNotNullable       = "not_nullable"
	CheckColumnInDataframe = "column_in_dataframe"
	CheckColumnInSchema    = "column_in_schema"
	CheckRowReadable       = "row_readable"
)

// FailureCase is one schema violation.
type FailureCase struct {
	Column string `json:"column"`
	// Check is the failed check kind (e.g. "greater_than") or one of the
	// Check* constants.
	Check string `json:"check"`
	// Row is the 0-based data row, or -1 for column-level failures.
	Row int `json:"row"`
	// Value is the offending cell text. For type failures it is the inferred
	// type; for unreadable rows the reader's reason.
	Value   string `json:"value"`
	Message string `json:"message"`
}

// Severity grades a business-rule warning.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Warning is one business-rule finding.
type Warning struct {
	Rule     string   `json:"rule"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Rows     int      `json:"rows"`
}

// Result is the outcome of one validation run. IsValid is true exactly when
// Errors is empty.
type Result struct {
	IsValid  bool             `json:"is_valid"`
	Errors   []FailureCase    `json:"errors"`
	Warnings []Warning        `json:"warnings"`
	Stats    stats.Statistics `json:"stats"`
}

// ErrorsByColumn counts failures per column.
func (r Result) ErrorsByColumn() map[string]int {
	out := make(map[string]int)
	for _, f := range r.Errors {
		out[f.Column]++
	}
	return out
}
