package report

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	SheetSummary  = "Summary"
	SheetErrors   = "Errors"
	SheetWarnings = "Warnings"
	SheetMissing  = "Missing"
)

// WriteXLSX saves env as an Excel workbook with one sheet each for the
// summary, the failure cases, the warnings and the missing values.
func WriteXLSX(path string, env Envelope) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("report: xlsx: %w", err)
	}
	for _, name := range []string{SheetErrors, SheetWarnings, SheetMissing} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("report: xlsx: new sheet %s: %w", name, err)
		}
	}

	res := env.Result
	summary := [][]any{
		{"Field", "Value"},
		{"Run ID", env.RunID},
		{"Source", env.Source},
		{"Schema", env.Schema},
		{"Generated At", env.GeneratedAt.Format(time.RFC3339)},
		{"Valid", res.IsValid},
		{"Total Rows", res.Stats.TotalRows},
		{"Total Columns", res.Stats.TotalColumns},
		{"Duplicate Rows", res.Stats.DuplicateRows},
		{"Errors", len(res.Errors)},
		{"Warnings", len(res.Warnings)},
		{"Completeness %", env.Quality.Completeness},
		{"Uniqueness %", env.Quality.Uniqueness},
		{"Overall %", env.Quality.Overall},
	}
	if fs := res.Stats.FareStats; fs != nil {
		summary = append(summary,
			[]any{"Fare Mean", cell(fs.Mean)},
			[]any{"Fare Median", cell(fs.Median)},
			[]any{"Fare Min", cell(fs.Min)},
			[]any{"Fare Max", cell(fs.Max)},
			[]any{"Fare Std", cell(fs.Std)},
		)
	}

	errs := [][]any{{"Column", "Check", "Row", "Value", "Message"}}
	for _, e := range res.Errors {
		errs = append(errs, []any{e.Column, e.Check, e.Row, e.Value, e.Message})
	}

	warns := [][]any{{"Rule", "Severity", "Rows", "Message"}}
	for _, w := range res.Warnings {
		warns = append(warns, []any{w.Rule, string(w.Severity), w.Rows, w.Message})
	}

	missing := [][]any{{"Column", "Missing"}}
	cols := make([]string, 0, len(res.Stats.MissingValues))
	for c := range res.Stats.MissingValues {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	for _, c := range cols {
		missing = append(missing, []any{c, res.Stats.MissingValues[c]})
	}

	for _, s := range []struct {
		name string
		rows [][]any
	}{
		{SheetSummary, summary},
		{SheetErrors, errs},
		{SheetWarnings, warns},
		{SheetMissing, missing},
	} {
		if err := writeRows(f, s.name, s.rows); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		addr, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("report: xlsx: %w", err)
		}
		if err := f.SetSheetRow(sheet, addr, &row); err != nil {
			return fmt.Errorf("report: xlsx: %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// cell leaves NaN and infinities blank; excelize cannot store them.
func cell(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return v
}
