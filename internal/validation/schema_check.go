package validation

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"fareqa/internal/dataset"
	"fareqa/internal/schema"
)

// ctxCheckEvery is how many rows a column worker scans between context
// checks.
const ctxCheckEvery = 4096

type compiledColumn struct {
	schema.Column
	preds []schema.Predicate
}

type compiledSchema struct {
	strict  bool
	columns []compiledColumn
	names   map[string]struct{}
}

func compile(s schema.Schema) (compiledSchema, error) {
	cs := compiledSchema{
		strict:  s.Strict,
		columns: make([]compiledColumn, len(s.Columns)),
		names:   make(map[string]struct{}, len(s.Columns)),
	}
	for i, c := range s.Columns {
		if _, dup := cs.names[c.Name]; dup {
			return cs, fmt.Errorf("validation: column %q declared twice", c.Name)
		}
		if _, err := schema.ParseType(string(c.Type)); err != nil {
			return cs, fmt.Errorf("validation: column %q: %w", c.Name, err)
		}
		cs.names[c.Name] = struct{}{}
		cc := compiledColumn{Column: c, preds: make([]schema.Predicate, len(c.Checks))}
		for j, chk := range c.Checks {
			p, err := chk.Compile()
			if err != nil {
				return cs, fmt.Errorf("validation: column %q check %d: %w", c.Name, j, err)
			}
			cc.preds[j] = p
		}
		cs.columns[i] = cc
	}
	return cs, nil
}

// CheckSchema validates snap against s and returns every failure. It fails
// only when the schema does not compile or ctx is canceled.
func CheckSchema(ctx context.Context, snap *dataset.Snapshot, s schema.Schema) ([]FailureCase, error) {
	cs, err := compile(s)
	if err != nil {
		return nil, err
	}
	return checkSchema(ctx, snap, cs, 0)
}

// checkSchema evaluates declared columns in parallel, at most workers at a
// time, and merges the failures in declaration order: unreadable rows first,
// then each declared column, then undeclared columns in strict mode.
func checkSchema(ctx context.Context, snap *dataset.Snapshot, cs compiledSchema, workers int) ([]FailureCase, error) {
	// A snapshot without rows is valid whatever its header holds.
	if snap.Nrow() == 0 {
		return []FailureCase{}, nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	perColumn := make([][]FailureCase, len(cs.columns))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range cs.columns {
		c := &cs.columns[i]
		g.Go(func() error {
			out, err := checkColumn(ctx, snap, c)
			perColumn[i] = out
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	failures := []FailureCase{}
	for _, r := range snap.Rejected() {
		failures = append(failures, FailureCase{
			Check:   CheckRowReadable,
			Row:     r.Row,
			Value:   r.Reason,
			Message: fmt.Sprintf("line %d could not be read: %s", r.Line, r.Reason),
		})
	}
	for _, out := range perColumn {
		failures = append(failures, out...)
	}
	if cs.strict {
		for _, name := range snap.Names() {
			if _, ok := cs.names[name]; !ok {
				failures = append(failures, FailureCase{
					Column:  name,
					Check:   CheckColumnInSchema,
					Row:     -1,
					Value:   name,
					Message: fmt.Sprintf("column %q not in schema", name),
				})
			}
		}
	}
	return failures, nil
}

func checkColumn(ctx context.Context, snap *dataset.Snapshot, c *compiledColumn) ([]FailureCase, error) {
	col, ok := snap.Column(c.Name)
	if !ok {
		if c.Nullable {
			return nil, nil
		}
		return []FailureCase{{
			Column:  c.Name,
			Check:   CheckColumnInDataframe,
			Row:     -1,
			Message: fmt.Sprintf("column %q not in dataframe", c.Name),
		}}, nil
	}

	if !typeCompatible(c.Type, col) {
		return []FailureCase{{
			Column:  c.Name,
			Check:   CheckType,
			Row:     -1,
			Value:   string(col.Type()),
			Message: fmt.Sprintf("expected %s, got %s", c.Type, col.Type()),
		}}, nil
	}

	var out []FailureCase
	for row := 0; row < col.Len(); row++ {
		if row%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if snap.IsRejected(row) {
			continue
		}
		if col.IsNull(row) {
			if !c.Nullable {
				out = append(out, FailureCase{
					Column:  c.Name,
					Check:   CheckNotNullable,
					Row:     row,
					Message: "non-nullable column contains null values",
				})
			}
			continue
		}
		for j, pred := range c.preds {
			if pred(col, row) {
				continue
			}
			chk := c.Checks[j]
			out = append(out, FailureCase{
				Column:  c.Name,
				Check:   string(chk.Kind),
				Row:     row,
				Value:   col.Text(row),
				Message: chk.FailureMessage(),
			})
		}
	}
	return out, nil
}

// typeCompatible reports whether an inferred column type satisfies the
// declared one. Integers satisfy float; a column with no values satisfies
// anything.
func typeCompatible(want schema.Type, col dataset.Column) bool {
	if col.NonNull() == 0 {
		return true
	}
	got := col.Type()
	switch want {
	case schema.Float:
		return got == dataset.Float || got == dataset.Int
	case schema.Int:
		return got == dataset.Int
	case schema.Bool:
		return got == dataset.Bool
	default:
		return got == dataset.String
	}
}
