package schema

import "fareqa/internal/dataset"

// Infer derives a schema from a dataset: one column per header, the inferred
// type, and nullable when the column has any null. No value checks are
// guessed. A column with no values at all is declared a nullable string.
func Infer(snap *dataset.Snapshot) Schema {
	cols := snap.Columns()
	s := Schema{Columns: make([]Column, 0, len(cols))}
	for _, c := range cols {
		col := Column{
			Name:     c.Name(),
			Type:     mapType(c.Type()),
			Nullable: c.Nulls() > 0,
		}
		if c.NonNull() == 0 {
			col.Type, col.Nullable = String, true
		}
		s.Columns = append(s.Columns, col)
	}
	return s
}

func mapType(t dataset.Type) Type {
	switch t {
	case dataset.Int:
		return Int
	case dataset.Float:
		return Float
	case dataset.Bool:
		return Bool
	default:
		return String
	}
}
