package report

import (
	"io"

	"fareqa/internal/dataset"
	"fareqa/internal/quality"
	"fareqa/internal/stats"
	"fareqa/internal/validation"
)

const wideRule = "======================================================================"

// CategoricalColumns are summarised with their top values.
var CategoricalColumns = []string{"Airline", "Class", "Stopovers", "Seasonality", "Booking Source"}

// Route lists keep this many entries; expensive routes need at least
// MinRouteFlights flights.
const (
	TopN            = 5
	MinRouteFlights = 10
)

// DataSummary is the data summary report of one snapshot.
type DataSummary struct {
	Source           string                `json:"source"`
	Rows             int                   `json:"rows"`
	Columns          []stats.ColumnInfo    `json:"columns"`
	Missing          []stats.MissingColumn `json:"missing"`
	MissingCells     int                   `json:"missing_cells"`
	DuplicateRows    int                   `json:"duplicate_rows"`
	DuplicateFlights int                   `json:"duplicate_flights"`
	Numeric          []stats.Summary       `json:"numeric"`
	Categorical      []stats.Counts        `json:"categorical"`
	ByAirline        []stats.GroupStat     `json:"by_airline"`
	BySeason         []stats.GroupStat     `json:"by_season"`
	ByClass          []stats.GroupStat     `json:"by_class"`
	TopRoutes        []stats.Route         `json:"top_routes"`
	ExpensiveRoutes  []stats.Route         `json:"expensive_routes"`
	Tax              *stats.Tax            `json:"tax,omitempty"`
	FareMismatches   int                   `json:"fare_mismatches"`
	FareOutliers     int                   `json:"fare_outliers"`
	Quality          quality.Score         `json:"quality"`
	CellScore        float64               `json:"cell_score"`
	Recommendations  []string              `json:"recommendations"`
}

// NewSummary computes the data summary of snap. Sections whose columns are
// missing are left empty.
func NewSummary(snap *dataset.Snapshot, source string, rules validation.Rules) DataSummary {
	fare := rules.TotalFare
	st := stats.Summarize(snap, fare)

	s := DataSummary{
		Source:        source,
		Rows:          snap.Nrow(),
		Columns:       stats.Columns(snap),
		Missing:       stats.Missing(snap),
		MissingCells:  quality.MissingCells(st),
		DuplicateRows: st.DuplicateRows,
		Numeric:       stats.DescribeNumeric(snap),
		Quality:       quality.Compute(snap.Nrow(), stats.CompleteRows(snap), st.DuplicateRows),
		CellScore:     quality.CellScore(st),
	}
	if rows, ok := validation.DuplicateFlightRows(snap, rules); ok {
		s.DuplicateFlights = len(rows)
	}
	for _, col := range CategoricalColumns {
		if c, ok := stats.ValueCounts(snap, col, TopN); ok {
			s.Categorical = append(s.Categorical, c)
		}
	}

	s.ByAirline = groups(snap, "Airline", fare, TopN)
	s.BySeason = groups(snap, "Seasonality", fare, 0)
	s.ByClass = groups(snap, "Class", fare, 0)

	routes := stats.Routes(snap, fare)
	s.TopRoutes = head(routes, TopN)
	s.ExpensiveRoutes = head(stats.ExpensiveRoutes(routes, MinRouteFlights), TopN)

	if t, ok := stats.TaxShare(snap, fare); ok {
		s.Tax = &t
	}
	if m, ok := validation.FareMismatches(snap, rules); ok {
		s.FareMismatches = len(m)
	}
	if iqr, ok := stats.IQROutliers(snap, fare); ok {
		s.FareOutliers = iqr.Outliers
	}

	s.Recommendations = quality.Recommend(quality.Findings{
		MissingCells:   s.MissingCells,
		DuplicateRows:  s.DuplicateRows,
		FareMismatches: s.FareMismatches,
		FareOutliers:   s.FareOutliers,
		FareColumn:     fare,
	})
	return s
}

func groups(snap *dataset.Snapshot, by, fare string, n int) []stats.GroupStat {
	g, err := stats.GroupFare(snap, by, fare)
	if err != nil {
		return nil
	}
	if n > 0 && len(g) > n {
		g = g[:n]
	}
	return g
}

func head(r []stats.Route, n int) []stats.Route {
	if len(r) > n {
		return r[:n]
	}
	return r
}

// Summary writes the data summary report.
func Summary(w io.Writer, s DataSummary) error {
	p := newPrinter(w)
	section := func(title string) {
		p.line("")
		p.line(wideRule)
		p.line(title)
		p.line(wideRule)
	}

	section("FLIGHT PRICE DATASET - DATA SUMMARY REPORT")
	if s.Source != "" {
		p.line("Source: %s", s.Source)
	}

	section("DATASET OVERVIEW")
	p.line("Total Rows:    %15d", s.Rows)
	p.line("Total Columns: %15d", len(s.Columns))

	section("COLUMNS")
	for i, c := range s.Columns {
		p.line("%2d. %-40s %-10s (Unique: %7d)", i+1, c.Column, c.Type, c.Unique)
	}

	section("MISSING VALUES")
	if len(s.Missing) == 0 {
		p.line("   No missing values found!")
	}
	for _, m := range s.Missing {
		p.line("   %-40s %8d (%5.2f%%)", m.Column, m.Count, m.Percent)
	}

	section("DUPLICATE ANALYSIS")
	p.line("Duplicate Rows:          %10d (%5.2f%%)", s.DuplicateRows, percent(s.DuplicateRows, s.Rows))
	p.line("Duplicate Flight Records:%10d", s.DuplicateFlights)

	section("NUMERICAL FEATURES SUMMARY")
	for _, n := range s.Numeric {
		p.line("")
		p.line("%s:", n.Column)
		p.line("   Mean:   %15s", p.amount(n.Mean))
		p.line("   Median: %15s", p.amount(n.Median))
		p.line("   Min:    %15s", p.amount(n.Min))
		p.line("   Max:    %15s", p.amount(n.Max))
		p.line("   Std:    %15s", p.amount(n.Std))
	}

	section("CATEGORICAL FEATURES SUMMARY")
	for _, c := range s.Categorical {
		p.line("")
		p.line("%s:", c.Column)
		for _, v := range c.Top {
			p.line("   %-30s %8d (%5.2f%%)", v.Value, v.Count, percent(v.Count, s.Rows))
		}
		if c.Rest > 0 {
			p.line("   ... and %d more", c.Rest)
		}
	}

	section("KEY BUSINESS INSIGHTS")
	groupLines := func(title string, g []stats.GroupStat) {
		if len(g) == 0 {
			return
		}
		p.line("")
		p.line(title)
		for i, x := range g {
			p.line("   %d. %-30s %12s BDT (n=%d)", i+1, x.Key, p.amount(x.Mean), x.Count)
		}
	}
	groupLines("Average Fare by Airline (Top 5):", s.ByAirline)
	if len(s.TopRoutes) > 0 {
		p.line("")
		p.line("Most Popular Routes (Top 5):")
		for i, r := range s.TopRoutes {
			p.line("   %d. %-30s %6d flights, Avg: %10s BDT", i+1, r.Route, r.Flights, p.amount(r.MeanFare))
		}
	}
	if len(s.ExpensiveRoutes) > 0 {
		p.line("")
		p.line("Most Expensive Routes (min %d flights):", MinRouteFlights)
		for i, r := range s.ExpensiveRoutes {
			p.line("   %d. %-30s %10s BDT (%d flights)", i+1, r.Route, p.amount(r.MeanFare), r.Flights)
		}
	}
	groupLines("Seasonal Fare Variation:", s.BySeason)
	groupLines("Class Impact:", s.ByClass)
	if s.Tax != nil {
		p.line("")
		p.line("Tax & Surcharge:")
		p.line("   Mean Base Fare: %12s BDT", p.amount(s.Tax.MeanBase))
		p.line("   Mean Tax:       %12s BDT", p.amount(s.Tax.MeanTax))
		p.line("   Mean Total:     %12s BDT", p.amount(s.Tax.MeanTotal))
		p.line("   Tax / Base:     %11s%%", p.amount(s.Tax.MeanPercent))
	}

	section("DATA QUALITY SCORE")
	for _, c := range s.Quality.Status() {
		p.line("%-14s %6.2f%%  %s", label(c.Name)+":", c.Value, mark(c.Pass))
	}
	p.line("%-14s %6.2f%%", "Cell Score:", s.CellScore)

	section("RECOMMENDATIONS")
	for _, r := range s.Recommendations {
		p.line("   • %s", r)
	}

	section("DATA SUMMARY COMPLETE!")
	return p.err
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
