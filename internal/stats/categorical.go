package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/stat"

	"fareqa/internal/dataset"
)

// Flight dataset columns used by the route and tax helpers.
const (
	SourceColumn      = "Source"
	DestinationColumn = "Destination"
	BaseFareColumn    = "Base Fare (BDT)"
	TaxColumn         = "Tax & Surcharge (BDT)"
)

// MissingColumn is one column with at least one null cell.
type MissingColumn struct {
	Column  string  `json:"column"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Missing lists the columns that have nulls, most nulls first.
func Missing(snap *dataset.Snapshot) []MissingColumn {
	var out []MissingColumn
	for _, c := range snap.Columns() {
		if n := c.Nulls(); n > 0 {
			out = append(out, MissingColumn{
				Column:  c.Name(),
				Count:   n,
				Percent: float64(n) / float64(snap.Nrow()) * 100,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// CompleteRows counts rows without any null field.
func CompleteRows(snap *dataset.Snapshot) int {
	n := 0
	for r := 0; r < snap.Nrow(); r++ {
		if !snap.RowHasNull(r) {
			n++
		}
	}
	return n
}

// ValueCount is the frequency of one category.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Counts holds the top categories of a column.
type Counts struct {
	Column string       `json:"column"`
	Top    []ValueCount `json:"top"`
	// Rest is the number of distinct values not listed in Top.
	Rest int `json:"rest"`
}

// ValueCounts returns the topN most frequent non-null values of column,
// ordered by count then value. topN <= 0 returns every value.
func ValueCounts(snap *dataset.Snapshot, column string, topN int) (Counts, bool) {
	col, ok := snap.Column(column)
	if !ok {
		return Counts{}, false
	}
	freq := make(map[string]int)
	for r := 0; r < col.Len(); r++ {
		if col.IsNull(r) {
			continue
		}
		freq[col.Text(r)]++
	}
	all := make([]ValueCount, 0, len(freq))
	for v, n := range freq {
		all = append(all, ValueCount{Value: v, Count: n})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		return all[i].Value < all[j].Value
	})
	out := Counts{Column: column, Top: all}
	if topN > 0 && len(all) > topN {
		out.Top = all[:topN]
		out.Rest = len(all) - topN
	}
	return out, true
}

// GroupStat aggregates the fare of one category.
type GroupStat struct {
	Key    string  `json:"key"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Count  int     `json:"count"`
}

// GroupFare returns the mean, median and count of fare per value of by,
// highest mean first. Rows where either column is null are left out.
func GroupFare(snap *dataset.Snapshot, by, fare string) ([]GroupStat, error) {
	if by == fare {
		return nil, fmt.Errorf("stats: group column and fare column are both %q", by)
	}
	col, ok := snap.Column(fare)
	if !ok {
		return nil, fmt.Errorf("stats: no column %q", fare)
	}
	if !col.Numeric() {
		return nil, fmt.Errorf("stats: column %q is %s, not numeric", fare, col.Type())
	}
	if !snap.Has(by) {
		return nil, fmt.Errorf("stats: no column %q", by)
	}

	notNull := func(el series.Element) bool { return !el.IsNA() }
	df := snap.Frame().Select([]string{by, fare}).
		FilterAggregation(dataframe.And,
			dataframe.F{Colname: by, Comparator: series.CompFunc, Comparando: notNull},
			dataframe.F{Colname: fare, Comparator: series.CompFunc, Comparando: notNull},
		)
	if df.Err != nil {
		return nil, fmt.Errorf("stats: group %q: %w", by, df.Err)
	}
	if df.Nrow() == 0 {
		return []GroupStat{}, nil
	}

	groups := df.GroupBy(by)
	if groups.Err != nil {
		return nil, fmt.Errorf("stats: group %q: %w", by, groups.Err)
	}
	agg := groups.Aggregation(
		[]dataframe.AggregationType{dataframe.Aggregation_MEAN, dataframe.Aggregation_MEDIAN, dataframe.Aggregation_COUNT},
		[]string{fare, fare, fare},
	)
	if agg.Err != nil {
		return nil, fmt.Errorf("stats: aggregate %q by %q: %w", fare, by, agg.Err)
	}

	keys := agg.Col(by)
	means := agg.Col(fare + "_" + dataframe.Aggregation_MEAN.String())
	medians := agg.Col(fare + "_" + dataframe.Aggregation_MEDIAN.String())
	counts := agg.Col(fare + "_" + dataframe.Aggregation_COUNT.String())

	out := make([]GroupStat, agg.Nrow())
	for i := range out {
		out[i] = GroupStat{
			Key:    keys.Elem(i).String(),
			Mean:   means.Elem(i).Float(),
			Median: medians.Elem(i).Float(),
			Count:  int(counts.Elem(i).Float()),
		}
	}
	sortGroups(out)
	return out, nil
}

func sortGroups(g []GroupStat) {
	sort.Slice(g, func(i, j int) bool {
		if g[i].Mean != g[j].Mean {
			return g[i].Mean > g[j].Mean
		}
		return g[i].Key < g[j].Key
	})
}

// Route is the traffic and average fare of one Source → Destination pair.
type Route struct {
	Route    string  `json:"route"`
	Flights  int     `json:"flights"`
	MeanFare float64 `json:"mean_fare"`
}

// Routes counts flights per route, busiest first. MeanFare is NaN when no
// flight on the route has a fare.
func Routes(snap *dataset.Snapshot, fare string) []Route {
	src, ok1 := snap.Column(SourceColumn)
	dst, ok2 := snap.Column(DestinationColumn)
	if !ok1 || !ok2 {
		return nil
	}
	fareCol, hasFare := snap.Column(fare)

	type acc struct {
		flights int
		fares   []float64
	}
	byRoute := make(map[string]*acc)
	for r := 0; r < snap.Nrow(); r++ {
		if src.IsNull(r) || dst.IsNull(r) {
			continue
		}
		key := src.Text(r) + " → " + dst.Text(r)
		a := byRoute[key]
		if a == nil {
			a = &acc{}
			byRoute[key] = a
		}
		a.flights++
		if hasFare {
			if v, ok := fareCol.Float(r); ok {
				a.fares = append(a.fares, v)
			}
		}
	}

	out := make([]Route, 0, len(byRoute))
	for k, a := range byRoute {
		mean := math.NaN()
		if len(a.fares) > 0 {
			mean = stat.Mean(a.fares, nil)
		}
		out = append(out, Route{Route: k, Flights: a.flights, MeanFare: mean})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Flights != out[j].Flights {
			return out[i].Flights > out[j].Flights
		}
		return out[i].Route < out[j].Route
	})
	return out
}

// ExpensiveRoutes returns the routes with at least minFlights flights,
// highest mean fare first.
func ExpensiveRoutes(routes []Route, minFlights int) []Route {
	var out []Route
	for _, r := range routes {
		if r.Flights >= minFlights && !math.IsNaN(r.MeanFare) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MeanFare > out[j].MeanFare })
	return out
}

// Tax summarises how much of the fare is tax.
type Tax struct {
	MeanBase    float64 `json:"mean_base"`
	MeanTax     float64 `json:"mean_tax"`
	MeanTotal   float64 `json:"mean_total"`
	MeanPercent float64 `json:"mean_percent"`
}

// TaxShare computes the mean base fare, tax, total and tax as a percentage of
// base. ok is false when the base, tax or total column is missing.
func TaxShare(snap *dataset.Snapshot, total string) (Tax, bool) {
	base, ok1 := snap.Column(BaseFareColumn)
	tax, ok2 := snap.Column(TaxColumn)
	tot, ok3 := snap.Column(total)
	if !ok1 || !ok2 || !ok3 {
		return Tax{}, false
	}
	out := Tax{
		MeanBase:  meanOrNaN(base.Floats()),
		MeanTax:   meanOrNaN(tax.Floats()),
		MeanTotal: meanOrNaN(tot.Floats()),
	}
	var pct []float64
	for r := 0; r < snap.Nrow(); r++ {
		b, okb := base.Float(r)
		t, okt := tax.Float(r)
		if okb && okt && b != 0 {
			pct = append(pct, t/b*100)
		}
	}
	out.MeanPercent = meanOrNaN(pct)
	return out, true
}

func meanOrNaN(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}

// ColumnInfo is the inferred type and cardinality of a column.
type ColumnInfo struct {
	Column  string       `json:"column"`
	Type    dataset.Type `json:"type"`
	Unique  int          `json:"unique"`
	NonNull int          `json:"non_null"`
}

// Columns describes every column in file order. Unique counts distinct
// non-null values.
func Columns(snap *dataset.Snapshot) []ColumnInfo {
	cols := snap.Columns()
	out := make([]ColumnInfo, len(cols))
	for i, c := range cols {
		seen := make(map[string]struct{})
		for r := 0; r < c.Len(); r++ {
			if !c.IsNull(r) {
				seen[c.Text(r)] = struct{}{}
			}
		}
		out[i] = ColumnInfo{Column: c.Name(), Type: c.Type(), Unique: len(seen), NonNull: c.NonNull()}
	}
	return out
}
