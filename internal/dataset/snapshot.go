// Package dataset holds the in-memory, read-only table that every other
// component of fareqa consumes.
//
// A Snapshot wraps a go-gota DataFrame. Column types are inferred by gota from
// the raw text (string, int, float, bool); null cells are the configured null
// tokens (empty string, "NA", "NaN", ...). Snapshots are never mutated after
// construction, so a single Snapshot can be shared by concurrent readers.
package dataset

import (
	"math"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Type is the inferred type of a column.
type Type string

const (
	String Type = "string"
	Int    Type = "int"
	Float  Type = "float"
	Bool   Type = "bool"
)

// fromSeries maps a gota series type onto a dataset Type.
func fromSeries(t series.Type) Type {
	switch t {
	case series.Int:
		return Int
	case series.Float:
		return Float
	case series.Bool:
		return Bool
	default:
		return String
	}
}

// RejectedRow describes a data row the reader could not decode. The row is
// kept in the snapshot as an all-null row so row indexes stay aligned with
// the source file.
type RejectedRow struct {
	Row    int    `json:"row"`
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Snapshot is an immutable table of rows × named columns.
type Snapshot struct {
	df       dataframe.DataFrame
	names    []string
	index    map[string]int
	cols     []Column
	nrow     int
	rejected []RejectedRow
	isRej    map[int]struct{}
}

// newSnapshot caches one Column view per frame column. gota's Col returns a
// copy on every call, so caching keeps row-level access cheap.
func newSnapshot(df dataframe.DataFrame, rejected []RejectedRow) *Snapshot {
	names := df.Names()
	s := &Snapshot{
		df:       df,
		names:    names,
		index:    make(map[string]int, len(names)),
		cols:     make([]Column, len(names)),
		nrow:     df.Nrow(),
		rejected: rejected,
		isRej:    make(map[int]struct{}, len(rejected)),
	}
	for i, n := range names {
		s.index[n] = i
		s.cols[i] = newColumn(n, df.Col(n))
	}
	for _, r := range rejected {
		s.isRej[r.Row] = struct{}{}
	}
	return s
}

// Nrow returns the number of data rows (rejected rows included).
func (s *Snapshot) Nrow() int { return s.nrow }

// Ncol returns the number of columns.
func (s *Snapshot) Ncol() int { return len(s.names) }

// Names returns the column names in file order.
func (s *Snapshot) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Has reports whether the snapshot has a column with exactly this name.
func (s *Snapshot) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// HasAll reports whether every name is a column of the snapshot.
func (s *Snapshot) HasAll(names ...string) bool {
	for _, n := range names {
		if !s.Has(n) {
			return false
		}
	}
	return true
}

// Column returns the read-only view of the named column.
func (s *Snapshot) Column(name string) (Column, bool) {
	i, ok := s.index[name]
	if !ok {
		return Column{}, false
	}
	return s.cols[i], true
}

// Columns returns the column views in file order.
func (s *Snapshot) Columns() []Column {
	out := make([]Column, len(s.cols))
	copy(out, s.cols)
	return out
}

// Rejected returns the rows the reader could not decode.
func (s *Snapshot) Rejected() []RejectedRow {
	out := make([]RejectedRow, len(s.rejected))
	copy(out, s.rejected)
	return out
}

// IsRejected reports whether row was rejected by the reader.
func (s *Snapshot) IsRejected(row int) bool {
	_, ok := s.isRej[row]
	return ok
}

// Type returns the inferred type of the named column.
func (s *Snapshot) Type(name string) (Type, bool) {
	c, ok := s.Column(name)
	if !ok {
		return "", false
	}
	return c.typ, true
}

// Row returns the text of every field of row in column order; nulls are "".
func (s *Snapshot) Row(row int) []string {
	out := make([]string, len(s.cols))
	for i, c := range s.cols {
		out[i] = c.Text(row)
	}
	return out
}

// RowHasNull reports whether any field of row is null.
func (s *Snapshot) RowHasNull(row int) bool {
	for _, c := range s.cols {
		if c.IsNull(row) {
			return true
		}
	}
	return false
}

// Frame returns a copy of the underlying gota DataFrame for callers that want
// the gota API (grouping, sorting). Changes to the copy never reach the
// snapshot.
func (s *Snapshot) Frame() dataframe.DataFrame { return s.df.Copy() }

// Column is a read-only view over one snapshot column.
type Column struct {
	name    string
	typ     Type
	s       series.Series
	nonNull int
}

func newColumn(name string, s series.Series) Column {
	c := Column{name: name, typ: fromSeries(s.Type()), s: s}
	for i := 0; i < s.Len(); i++ {
		if !s.Elem(i).IsNA() {
			c.nonNull++
		}
	}
	return c
}

// Name returns the column name.
func (c Column) Name() string { return c.name }

// Type returns the inferred column type.
func (c Column) Type() Type { return c.typ }

// Len returns the number of rows.
func (c Column) Len() int { return c.s.Len() }

// NonNull returns the number of non-null cells.
func (c Column) NonNull() int { return c.nonNull }

// Nulls returns the number of null cells.
func (c Column) Nulls() int { return c.s.Len() - c.nonNull }

// IsNull reports whether the cell at row is null.
func (c Column) IsNull(row int) bool { return c.s.Elem(row).IsNA() }

// Text returns the textual form of the cell, or "" when it is null.
func (c Column) Text(row int) string {
	e := c.s.Elem(row)
	if e.IsNA() {
		return ""
	}
	if c.typ == Float {
		return strconv.FormatFloat(e.Float(), 'f', -1, 64)
	}
	return e.String()
}

// Float returns the numeric value of the cell. ok is false for nulls and
// values that do not parse as numbers.
func (c Column) Float(row int) (v float64, ok bool) {
	e := c.s.Elem(row)
	if e.IsNA() {
		return 0, false
	}
	v = e.Float()
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Floats returns every non-null numeric value of the column, in row order.
func (c Column) Floats() []float64 {
	out := make([]float64, 0, c.nonNull)
	for i := 0; i < c.s.Len(); i++ {
		if v, ok := c.Float(i); ok {
			out = append(out, v)
		}
	}
	return out
}

// Numeric reports whether the column holds int or float values.
func (c Column) Numeric() bool { return c.typ == Int || c.typ == Float }
