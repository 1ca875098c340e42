// Package schema declares what a valid flight-fare dataset looks like: an
// ordered list of column constraints, each with a declared type, a nullable
// flag and a list of checks.
//
// Schemas are plain data. They round-trip through JSON and YAML, can be
// linted before use (Lint) and inferred from a dataset (Infer). Checks are a
// tagged variant (Kind + parameters), compiled to predicates by Compile.
package schema

import (
	"fmt"
	"strings"
)

// Type is a declared column type.
type Type string

const (
	String Type = "string"
	Int    Type = "int"
	Float  Type = "float"
	Bool   Type = "bool"
)

// ParseType normalises loosely written type names ("integer", "double",
// "str", ...) into a Type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "str", "text":
		return String, nil
	case "int", "integer", "int64", "bigint":
		return Int, nil
	case "float", "float64", "double", "number", "numeric":
		return Float, nil
	case "bool", "boolean":
		return Bool, nil
	default:
		return "", fmt.Errorf("unknown column type %q", s)
	}
}

// Column is the constraint for one named column.
type Column struct {
	Name        string  `json:"name" yaml:"name"`
	Type        Type    `json:"type" yaml:"type"`
	Nullable    bool    `json:"nullable" yaml:"nullable"`
	Checks      []Check `json:"checks,omitempty" yaml:"checks,omitempty"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
}

// Schema is an ordered set of column constraints. With Strict set, columns
// present in the data but not declared here are failures; otherwise they are
// ignored.
type Schema struct {
	Name    string   `json:"name,omitempty" yaml:"name,omitempty"`
	Strict  bool     `json:"strict" yaml:"strict"`
	Columns []Column `json:"columns" yaml:"columns"`
}

// Column returns the declaration for name.
func (s Schema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Names returns the declared column names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}

// Flight returns the schema of the Flight Price Dataset of Bangladesh.
func Flight() Schema {
	return Schema{
		Name: "flight_prices_bd",
		Columns: []Column{
			// Non-nullable, so a missing airline is reported as not_nullable
			// rather than by a separate "cannot be null" check.
			{Name: "Airline", Type: String, Checks: []Check{StrLength(3, 100)}},
			{Name: "Source", Type: String, Checks: []Check{
				StrLength(2, 5),
				Uppercase().WithMessage("Source should be uppercase"),
			}},
			{Name: "Source Name", Type: String},
			{Name: "Destination", Type: String, Checks: []Check{
				StrLength(2, 5),
				Uppercase().WithMessage("Destination should be uppercase"),
			}},
			{Name: "Destination Name", Type: String},
			{Name: "Departure Date & Time", Type: String},
			{Name: "Arrival Date & Time", Type: String},
			{Name: "Duration (hrs)", Type: Float, Checks: []Check{
				GreaterThan(0),
				LessThan(50).WithMessage("Duration too long"),
			}},
			{Name: "Stopovers", Type: String},
			{Name: "Aircraft Type", Type: String, Nullable: true},
			{Name: "Class", Type: String, Checks: []Check{IsIn("Economy", "Business", "First")}},
			{Name: "Booking Source", Type: String},
			{Name: "Base Fare (BDT)", Type: Float, Checks: []Check{
				GreaterThan(0).WithMessage("Base fare must be positive"),
				LessThan(1000000),
			}},
			{Name: "Tax & Surcharge (BDT)", Type: Float, Checks: []Check{
				GreaterThanOrEqualTo(0),
				LessThan(500000),
			}},
			{Name: "Total Fare (BDT)", Type: Float, Checks: []Check{
				GreaterThan(0).WithMessage("Total fare must be positive"),
				LessThan(1500000),
			}},
			{Name: "Seasonality", Type: String},
			{Name: "Days Before Departure", Type: Int, Checks: []Check{
				GreaterThanOrEqualTo(0),
				LessThan(365),
			}},
		},
	}
}
