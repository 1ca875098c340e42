package validation

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"fareqa/internal/config"
	"fareqa/internal/dataset"
	"fareqa/internal/schema"
)

var flightHeader = []string{
	"Airline", "Source", "Source Name", "Destination", "Destination Name",
	"Departure Date & Time", "Arrival Date & Time", "Duration (hrs)", "Stopovers",
	"Aircraft Type", "Class", "Booking Source", "Base Fare (BDT)",
	"Tax & Surcharge (BDT)", "Total Fare (BDT)", "Seasonality", "Days Before Departure",
}

// flight is one row of the flight dataset; zero fields get valid defaults.
type flight struct {
	Airline, Source, Destination, Departure, Class string
	Base, Tax, Total, Days                         string
}

func (f flight) record() []string {
	def := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}
	return []string{
		def(f.Airline, "Biman"),
		def(f.Source, "DAC"),
		"Dhaka",
		def(f.Destination, "CXB"),
		"Cox's Bazar",
		def(f.Departure, "2025-01-01 10:00:00"),
		"2025-01-01 11:00:00",
		"1.5",
		"Direct",
		"ATR 72",
		def(f.Class, "Economy"),
		"Online Website",
		def(f.Base, "100"),
		def(f.Tax, "20"),
		def(f.Total, "120"),
		"Regular",
		def(f.Days, "10"),
	}
}

func snapshot(t *testing.T, rows ...flight) *dataset.Snapshot {
	t.Helper()
	records := [][]string{flightHeader}
	for _, r := range rows {
		records = append(records, r.record())
	}
	s, err := dataset.FromRecords(records, dataset.Options{})
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}
	return s
}

func validate(t *testing.T, s *dataset.Snapshot) Result {
	t.Helper()
	res, err := Validate(context.Background(), s)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return res
}

func TestValidate_Clean(t *testing.T) {
	t.Parallel()

	res := validate(t, snapshot(t,
		flight{Departure: "2025-01-01 08:00:00"},
		flight{Departure: "2025-01-02 08:00:00", Airline: "NovoAir"},
		flight{Departure: "2025-01-03 08:00:00", Class: "Business", Base: "300", Tax: "60", Total: "360"},
	))
	if !res.IsValid || len(res.Errors) != 0 || len(res.Warnings) != 0 {
		t.Fatalf("clean data: valid=%v errors=%+v warnings=%+v", res.IsValid, res.Errors, res.Warnings)
	}
	if res.Stats.TotalRows != 3 || res.Stats.TotalColumns != 17 || res.Stats.FareStats == nil {
		t.Fatalf("stats = %+v", res.Stats)
	}
}

func TestValidate_IsValidMatchesErrors(t *testing.T) {
	t.Parallel()

	snaps := []*dataset.Snapshot{
		snapshot(t),
		snapshot(t, flight{}),
		snapshot(t, flight{Source: "dac"}),
		snapshot(t, flight{Total: "999"}),
		snapshot(t, flight{Days: "soon"}),
	}
	for i, s := range snaps {
		res := validate(t, s)
		if res.IsValid != (len(res.Errors) == 0) {
			t.Errorf("snapshot %d: IsValid=%v with %d errors", i, res.IsValid, len(res.Errors))
		}
	}
}

func TestValidate_ZeroRows(t *testing.T) {
	t.Parallel()

	res := validate(t, snapshot(t))
	if !res.IsValid || res.Stats.TotalRows != 0 {
		t.Fatalf("zero rows: valid=%v total=%d errors=%+v", res.IsValid, res.Stats.TotalRows, res.Errors)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("zero rows produced warnings: %+v", res.Warnings)
	}

	unrelated, err := dataset.ReadCSV(strings.NewReader("x,y\n"), dataset.Options{})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	res = validate(t, unrelated)
	if !res.IsValid || len(res.Errors) != 0 {
		t.Fatalf("header-only x,y: valid=%v errors=%+v", res.IsValid, res.Errors)
	}
}

func TestValidate_Idempotent(t *testing.T) {
	t.Parallel()

	s := snapshot(t,
		flight{Source: "dac", Class: "Premium"},
		flight{Total: "500"},
		flight{Total: "500"},
	)
	a, b := validate(t, s), validate(t, s)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("two runs differ:\n%+v\n%+v", a, b)
	}
}

func TestValidate_SchemaFailures(t *testing.T) {
	t.Parallel()

	res := validate(t, snapshot(t,
		flight{Airline: "NA", Source: "dac"},
		flight{Departure: "2025-02-01 10:00:00", Class: "Premium", Base: "-5", Total: "15"},
	))
	want := []FailureCase{
		{Column: "Airline", Check: CheckNotNullable, Row: 0, Message: "non-nullable column contains null values"},
		{Column: "Source", Check: "uppercase", Row: 0, Value: "dac", Message: "Source should be uppercase"},
		{Column: "Class", Check: "isin", Row: 1, Value: "Premium", Message: "isin(['Economy', 'Business', 'First'])"},
		{Column: "Base Fare (BDT)", Check: "greater_than", Row: 1, Value: "-5", Message: "Base fare must be positive"},
	}
	if res.IsValid || !reflect.DeepEqual(res.Errors, want) {
		t.Fatalf("errors = %+v\nwant %+v", res.Errors, want)
	}
	if got := res.ErrorsByColumn(); got["Source"] != 1 || len(got) != 4 {
		t.Fatalf("ErrorsByColumn = %v", got)
	}
}

func TestValidate_TypeMismatchShortCircuits(t *testing.T) {
	t.Parallel()

	res := validate(t, snapshot(t,
		flight{Days: "soon"},
		flight{Departure: "2025-02-01 10:00:00", Days: "-4"},
	))
	want := []FailureCase{{
		Column:  "Days Before Departure",
		Check:   CheckType,
		Row:     -1,
		Value:   "string",
		Message: "expected int, got string",
	}}
	if !reflect.DeepEqual(res.Errors, want) {
		t.Fatalf("errors = %+v", res.Errors)
	}
}

func TestCheckSchema_MissingColumns(t *testing.T) {
	t.Parallel()

	s, err := dataset.ReadCSV(strings.NewReader("Airline,Notes\nBiman,x\n"), dataset.Options{})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	sch := schema.Schema{Columns: []schema.Column{
		{Name: "Airline", Type: schema.String},
		{Name: "Seasonality", Type: schema.String},
		{Name: "Aircraft Type", Type: schema.String, Nullable: true},
	}}
	got, err := CheckSchema(context.Background(), s, sch)
	if err != nil {
		t.Fatalf("CheckSchema: %v", err)
	}
	want := []FailureCase{{
		Column:  "Seasonality",
		Check:   CheckColumnInDataframe,
		Row:     -1,
		Message: `column "Seasonality" not in dataframe`,
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("failures = %+v", got)
	}

	sch.Strict = true
	got, err = CheckSchema(context.Background(), s, sch)
	if err != nil {
		t.Fatalf("CheckSchema: %v", err)
	}
	if len(got) != 2 || got[1].Check != CheckColumnInSchema || got[1].Column != "Notes" {
		t.Fatalf("strict failures = %+v", got)
	}
}

func TestCheckSchema_UnreadableRows(t *testing.T) {
	t.Parallel()

	s, err := dataset.ReadCSV(strings.NewReader("Airline,Class\nBiman,Economy\nbroken\nNovoAir,First\n"), dataset.Options{})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	sch := schema.Schema{Columns: []schema.Column{
		{Name: "Airline", Type: schema.String},
		{Name: "Class", Type: schema.String, Checks: []schema.Check{schema.IsIn("Economy", "First")}},
	}}
	got, err := CheckSchema(context.Background(), s, sch)
	if err != nil {
		t.Fatalf("CheckSchema: %v", err)
	}
	if len(got) != 1 || got[0].Check != CheckRowReadable || got[0].Row != 1 {
		t.Fatalf("failures = %+v", got)
	}
}

func TestCheckSchema_WorkersDoNotChangeOrder(t *testing.T) {
	t.Parallel()

	s := snapshot(t,
		flight{Source: "dac", Class: "Premium", Base: "-1"},
		flight{Destination: "cxb", Days: "400", Departure: "x"},
	)
	var runs [][]FailureCase
	for _, w := range []int{1, 3, 16} {
		v, err := New(schema.Flight(), DefaultRules(), Options{Workers: w})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		res, err := v.Validate(context.Background(), s)
		if err != nil {
			t.Fatalf("Validate: %v", err)
		}
		runs = append(runs, res.Errors)
	}
	if !reflect.DeepEqual(runs[0], runs[1]) || !reflect.DeepEqual(runs[0], runs[2]) {
		t.Fatalf("worker count changed the result:\n%+v\n%+v\n%+v", runs[0], runs[1], runs[2])
	}
	if len(runs[0]) != 5 {
		t.Fatalf("failures = %+v", runs[0])
	}
}

func TestValidate_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v, err := New(schema.Flight(), DefaultRules(), Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := v.Validate(ctx, snapshot(t, flight{})); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNew_BadSchema(t *testing.T) {
	t.Parallel()

	bad := []schema.Schema{
		{Columns: []schema.Column{{Name: "a", Type: schema.Float, Checks: []schema.Check{{Kind: "between"}}}}},
		{Columns: []schema.Column{{Name: "a", Type: "decimal"}}},
		{Columns: []schema.Column{{Name: "a", Type: schema.Int}, {Name: "a", Type: schema.Int}}},
	}
	for i, s := range bad {
		if _, err := New(s, DefaultRules(), Options{}); err == nil {
			t.Errorf("schema %d: expected compile error", i)
		}
	}
}

func TestRules_FareCalculation(t *testing.T) {
	t.Parallel()

	s := snapshot(t,
		flight{Base: "100", Tax: "20", Total: "120"},
		flight{Departure: "2025-02-01 10:00:00", Base: "100", Tax: "20", Total: "200"},
	)
	got := CheckRules(s, DefaultRules())
	want := []Warning{{
		Rule:     RuleFareCalculation,
		Message:  "1 rows have Total Fare != Base Fare + Tax",
		Severity: SeverityWarning,
		Rows:     1,
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("warnings = %+v", got)
	}

	m, ok := FareMismatches(s, DefaultRules())
	if !ok || len(m) != 1 || m[0] != (Mismatch{Row: 1, Base: 100, Tax: 20, Total: 200, Diff: 80}) {
		t.Fatalf("FareMismatches = %+v, %v", m, ok)
	}

	loose := DefaultRules().WithConfig(config.Rules{FareTolerance: config.Float(100)})
	if w := CheckRules(s, loose); len(w) != 0 {
		t.Fatalf("tolerance 100 still warns: %+v", w)
	}
}

func TestRules_WithConfigZeroTolerance(t *testing.T) {
	t.Parallel()

	if r := DefaultRules().WithConfig(config.Rules{}); r.FareTolerance != 1.0 {
		t.Fatalf("unset tolerance = %v, want default 1.0", r.FareTolerance)
	}

	exact := DefaultRules().WithConfig(config.Rules{FareTolerance: config.Float(0)})
	if exact.FareTolerance != 0 {
		t.Fatalf("tolerance = %v, want 0", exact.FareTolerance)
	}
	s := snapshot(t, flight{Base: "100", Tax: "20", Total: "120.5"})
	if w := CheckRules(s, DefaultRules()); len(w) != 0 {
		t.Fatalf("default tolerance warns on 0.5 gap: %+v", w)
	}
	w := CheckRules(s, exact)
	if len(w) != 1 || w[0].Rule != RuleFareCalculation || w[0].Rows != 1 {
		t.Fatalf("exact tolerance warnings = %+v", w)
	}
}

func TestRules_DuplicateFlightsVersusFullRows(t *testing.T) {
	t.Parallel()

	s := snapshot(t,
		flight{Class: "Economy"},
		flight{Class: "Business"},
	)
	res := validate(t, s)
	if res.Stats.DuplicateRows != 0 {
		t.Fatalf("full-row duplicates = %d, want 0", res.Stats.DuplicateRows)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Rule != RuleDuplicateFlights ||
		res.Warnings[0].Rows != 1 || res.Warnings[0].Severity != SeverityInfo {
		t.Fatalf("warnings = %+v", res.Warnings)
	}
	rows, ok := DuplicateFlightRows(s, DefaultRules())
	if !ok || !reflect.DeepEqual(rows, []int{1}) {
		t.Fatalf("DuplicateFlightRows = %v, %v", rows, ok)
	}
}

func TestRules_FareOutliers(t *testing.T) {
	t.Parallel()

	var rows []flight
	for i, total := range []string{"1000", "1000", "1000", "1000", "15000"} {
		rows = append(rows, flight{
			Departure: "2025-01-0" + string(rune('1'+i)) + " 10:00:00",
			Base:      total,
			Tax:       "0",
			Total:     total,
		})
	}
	s := snapshot(t, rows...)
	got := CheckRules(s, DefaultRules())
	want := []Warning{{
		Rule:     RuleFareOutliers,
		Message:  "1 rows with extreme fares (10x or 0.1x median)",
		Severity: SeverityInfo,
		Rows:     1,
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("warnings = %+v", got)
	}
	out, _ := FareOutlierRows(s, DefaultRules())
	if !reflect.DeepEqual(out, []int{4}) {
		t.Fatalf("FareOutlierRows = %v", out)
	}
}

func TestRules_SkipMissingColumns(t *testing.T) {
	t.Parallel()

	s, err := dataset.ReadCSV(strings.NewReader("Airline\nBiman\nBiman\n"), dataset.Options{})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if w := CheckRules(s, DefaultRules()); len(w) != 0 {
		t.Fatalf("warnings = %+v", w)
	}
	if _, ok := FareMismatches(s, DefaultRules()); ok {
		t.Fatalf("FareMismatches must report missing columns")
	}
}
