package validation

import (
	"fmt"
	"math"

	"fareqa/internal/config"
	"fareqa/internal/dataset"
	"fareqa/internal/stats"
)

// Rule names as they appear in warnings.
const (
	RuleFareCalculation  = "Total Fare Calculation"
	RuleDuplicateFlights = "Duplicate Flights"
	RuleFareOutliers     = "Fare Outliers"
)

// Rules parameterises the business-rule checks.
type Rules struct {
	// FareTolerance is the largest accepted |Total - (Base + Tax)|.
	FareTolerance float64

	// A fare is an outlier above OutlierHigh × median or below
	// OutlierLow × median.
	OutlierHigh float64
	OutlierLow  float64

	BaseFare  string
	Tax       string
	TotalFare string

	// DuplicateKey identifies one flight.
	DuplicateKey []string
}

// DefaultRules returns the rules for the flight dataset.
func DefaultRules() Rules {
	return Rules{
		FareTolerance: 1.0,
		OutlierHigh:   10,
		OutlierLow:    0.1,
		BaseFare:      stats.BaseFareColumn,
		Tax:           stats.TaxColumn,
		TotalFare:     stats.DefaultFareColumn,
		DuplicateKey:  []string{"Airline", "Source", "Destination", "Departure Date & Time"},
	}
}

// WithConfig overrides the numeric parameters that are set in c. A set
// fare tolerance of 0 demands exact totals.
func (r Rules) WithConfig(c config.Rules) Rules {
	if c.FareTolerance != nil {
		r.FareTolerance = *c.FareTolerance
	}
	if c.OutlierHigh > 0 {
		r.OutlierHigh = c.OutlierHigh
	}
	if c.OutlierLow > 0 {
		r.OutlierLow = c.OutlierLow
	}
	return r
}

// CheckRules runs the fare calculation, duplicate flight and fare outlier
// rules, in that order. A rule whose columns are missing is skipped, and a
// rule that finds nothing adds no warning.
func CheckRules(snap *dataset.Snapshot, r Rules) []Warning {
	warnings := []Warning{}

	if m, ok := FareMismatches(snap, r); ok && len(m) > 0 {
		warnings = append(warnings, Warning{
			Rule:     RuleFareCalculation,
			Message:  fmt.Sprintf("%d rows have Total Fare != Base Fare + Tax", len(m)),
			Severity: SeverityWarning,
			Rows:     len(m),
		})
	}
	if d, ok := DuplicateFlightRows(snap, r); ok && len(d) > 0 {
		warnings = append(warnings, Warning{
			Rule:     RuleDuplicateFlights,
			Message:  fmt.Sprintf("%d potential duplicate flight records found", len(d)),
			Severity: SeverityInfo,
			Rows:     len(d),
		})
	}
	if o, ok := FareOutlierRows(snap, r); ok && len(o) > 0 {
		warnings = append(warnings, Warning{
			Rule: RuleFareOutliers,
			Message: fmt.Sprintf("%d rows with extreme fares (%gx or %gx median)",
				len(o), r.OutlierHigh, r.OutlierLow),
			Severity: SeverityInfo,
			Rows:     len(o),
		})
	}
	return warnings
}

// Mismatch is a row whose total fare differs from base fare plus tax.
type Mismatch struct {
	Row   int     `json:"row"`
	Base  float64 `json:"base"`
	Tax   float64 `json:"tax"`
	Total float64 `json:"total"`
	Diff  float64 `json:"diff"`
}

// FareMismatches returns the rows where |Total - (Base + Tax)| exceeds the
// tolerance. Rows with a null operand are skipped. ok is false when a fare
// column is missing or not numeric.
func FareMismatches(snap *dataset.Snapshot, r Rules) (out []Mismatch, ok bool) {
	base, ok1 := numericColumn(snap, r.BaseFare)
	tax, ok2 := numericColumn(snap, r.Tax)
	total, ok3 := numericColumn(snap, r.TotalFare)
	if !ok1 || !ok2 || !ok3 {
		return nil, false
	}
	for row := 0; row < snap.Nrow(); row++ {
		b, okb := base.Float(row)
		t, okt := tax.Float(row)
		tot, oktot := total.Float(row)
		if !okb || !okt || !oktot {
			continue
		}
		if d := math.Abs(tot - (b + t)); d > r.FareTolerance {
			out = append(out, Mismatch{Row: row, Base: b, Tax: t, Total: tot, Diff: d})
		}
	}
	return out, true
}

// DuplicateFlightRows returns every row that repeats an earlier row on the
// duplicate key. ok is false when a key column is missing.
func DuplicateFlightRows(snap *dataset.Snapshot, r Rules) (rows []int, ok bool) {
	if len(r.DuplicateKey) == 0 || !snap.HasAll(r.DuplicateKey...) {
		return nil, false
	}
	dup, err := snap.Duplicated(r.DuplicateKey...)
	if err != nil {
		return nil, false
	}
	for row, d := range dup {
		if d {
			rows = append(rows, row)
		}
	}
	return rows, true
}

// FareOutlierRows returns the rows whose total fare is above OutlierHigh ×
// median or below OutlierLow × median. ok is false when the fare column is
// missing or not numeric.
func FareOutlierRows(snap *dataset.Snapshot, r Rules) (rows []int, ok bool) {
	fare, ok := numericColumn(snap, r.TotalFare)
	if !ok {
		return nil, false
	}
	median := stats.Median(fare.Floats())
	if math.IsNaN(median) {
		return nil, true
	}
	hi, lo := median*r.OutlierHigh, median*r.OutlierLow
	for row := 0; row < fare.Len(); row++ {
		v, ok := fare.Float(row)
		if ok && (v > hi || v < lo) {
			rows = append(rows, row)
		}
	}
	return rows, true
}

func numericColumn(snap *dataset.Snapshot, name string) (dataset.Column, bool) {
	c, ok := snap.Column(name)
	if !ok || (!c.Numeric() && c.NonNull() > 0) {
		return dataset.Column{}, false
	}
	return c, true
}
