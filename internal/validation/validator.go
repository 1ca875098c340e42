package validation

import (
	"context"

	"fareqa/internal/dataset"
	"fareqa/internal/schema"
	"fareqa/internal/stats"
)

// Options tunes a Validator.
type Options struct {
	// Workers bounds the columns checked in parallel. 0 means GOMAXPROCS.
	Workers int

	// FareColumn feeds Statistics.FareStats. Empty means the flight
	// dataset's total fare column.
	FareColumn string
}

// Validator runs the schema checker, the business rules and the statistics
// summarizer over snapshots. A Validator is safe for concurrent use.
type Validator struct {
	schema schema.Schema
	cs     compiledSchema
	rules  Rules
	opts   Options
}

// New compiles s. It fails when a check cannot be compiled.
func New(s schema.Schema, rules Rules, opts Options) (*Validator, error) {
	cs, err := compile(s)
	if err != nil {
		return nil, err
	}
	if opts.FareColumn == "" {
		opts.FareColumn = stats.DefaultFareColumn
	}
	return &Validator{schema: s, cs: cs, rules: rules, opts: opts}, nil
}

// Schema returns the schema the validator was built with.
func (v *Validator) Schema() schema.Schema { return v.schema }

// Validate checks snap and returns a fresh Result. The error is non-nil only
// when ctx is canceled.
func (v *Validator) Validate(ctx context.Context, snap *dataset.Snapshot) (Result, error) {
	errs, err := checkSchema(ctx, snap, v.cs, v.opts.Workers)
	if err != nil {
		return Result{}, err
	}
	return Result{
		IsValid:  len(errs) == 0,
		Errors:   errs,
		Warnings: CheckRules(snap, v.rules),
		Stats:    stats.Summarize(snap, v.opts.FareColumn),
	}, nil
}

// Validate checks snap against the flight schema with the default rules.
func Validate(ctx context.Context, snap *dataset.Snapshot) (Result, error) {
	v, err := New(schema.Flight(), DefaultRules(), Options{})
	if err != nil {
		return Result{}, err
	}
	return v.Validate(ctx, snap)
}
