// Package pipeline wires a validation run end to end: configuration, input
// loading, schema and business-rule validation, quality scoring, reports
// and metrics. The commands under cmd/ stay thin and call into it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"fareqa/internal/config"
	"fareqa/internal/dataset"
	"fareqa/internal/datasource/httpds"
	"fareqa/internal/datasource/sqlds"
	"fareqa/internal/quality"
	"fareqa/internal/report"
	"fareqa/internal/schema"
	"fareqa/internal/validation"
)

// ErrInvalidConfig is returned by LoadConfig when validation reports errors.
var ErrInvalidConfig = errors.New("pipeline: invalid configuration")

// Function variables used as test seams.
var (
	fetchSQL = sqlds.Fetch
	now      = time.Now
)

// LoadConfig resolves the run configuration: Default(), then the file at
// path when non-empty, then the environment. The issues are returned even
// on success so warnings can be shown; any error-level issue yields
// ErrInvalidConfig.
func LoadConfig(path string, getenv func(string) string) (config.Run, []config.Issue, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, nil, err
		}
	}
	if err := config.ApplyEnv(&cfg, getenv); err != nil {
		return cfg, nil, err
	}
	issues := config.Validate(cfg)
	if config.HasErrors(issues) {
		return cfg, issues, ErrInvalidConfig
	}
	return cfg, issues, nil
}

// LoadSchema reads the schema file at path, or returns the built-in flight
// schema when path is empty. Lint errors make the schema unusable.
func LoadSchema(path string) (schema.Schema, []config.Issue, error) {
	s := schema.Flight()
	if path != "" {
		var err error
		if s, err = schema.Load(path); err != nil {
			return s, nil, err
		}
	}
	issues := schema.Lint(s)
	if config.HasErrors(issues) {
		return s, issues, fmt.Errorf("pipeline: schema %q has errors", s.Name)
	}
	return s, issues, nil
}

// Options returns the dataset options described by in.
func Options(in config.Input) dataset.Options {
	return dataset.Options{
		Comma:      in.CommaRune(),
		NullValues: in.NullValues,
		TrimSpace:  in.TrimSpace,
	}
}

// Open loads the input into a Snapshot and returns it with a label naming
// where it came from. httpCfg is used for url inputs.
func Open(ctx context.Context, in config.Input, httpCfg httpds.Config) (*dataset.Snapshot, string, error) {
	opt := Options(in)
	switch in.Kind {
	case "csv":
		snap, err := dataset.Load(ctx, in.Path, opt)
		return snap, in.Path, err

	case "url":
		src := httpds.Source{Client: httpds.NewClient(httpCfg), URL: in.Path}
		snap, err := dataset.Open(ctx, src, opt)
		if err != nil {
			return nil, in.Path, fmt.Errorf("load %s: %w", in.Path, err)
		}
		return snap, in.Path, nil

	case "sqlite", "postgres", "mssql":
		label := in.Kind + " query"
		records, err := fetchSQL(ctx, sqlds.Config{Kind: in.Kind, DSN: in.DSN, Query: in.Query})
		if err != nil {
			return nil, label, err
		}
		snap, err := dataset.FromRecords(records, opt)
		return snap, label, err

	default:
		return nil, "", fmt.Errorf("pipeline: unknown input kind %q", in.Kind)
	}
}

// Validate runs schema and business-rule validation over snap and scores
// its quality. Each step is timed and recorded under job.
func Validate(ctx context.Context, snap *dataset.Snapshot, source string, s schema.Schema, cfg config.Run) (report.Envelope, error) {
	job := cfg.Metrics.Job
	rules := validation.DefaultRules().WithConfig(cfg.Rules)

	v, err := validation.New(s, rules, validation.Options{Workers: cfg.Runtime.Workers})
	if err != nil {
		return report.Envelope{}, err
	}

	start := now()
	res, err := v.Validate(ctx, snap)
	recordStep(job, "validate", err, now().Sub(start))
	if err != nil {
		return report.Envelope{}, err
	}

	q := quality.FromSnapshot(snap)
	recordResult(job, snap, res, q)
	return report.NewEnvelope(source, s.Name, res, q, now()), nil
}

// Emit writes env to w in the configured format and, when configured, to an
// Excel workbook.
func Emit(w io.Writer, env report.Envelope, out config.Output) error {
	var err error
	switch strings.ToLower(out.Format) {
	case "json":
		err = report.JSON(w, env, true)
	case "", "text":
		err = report.Text(w, env, report.TextOptions{MaxErrors: out.MaxErrors})
	default:
		err = fmt.Errorf("pipeline: unknown output format %q", out.Format)
	}
	if err != nil {
		return err
	}
	if out.XLSX != "" {
		if err := report.WriteXLSX(out.XLSX, env); err != nil {
			return err
		}
		log.Printf("report: wrote %s", out.XLSX)
	}
	return nil
}

// Run is LoadSchema, Open, Validate and Emit in sequence. It returns the
// envelope so the caller can decide the exit status.
func Run(ctx context.Context, cfg config.Run, w io.Writer) (report.Envelope, error) {
	s, issues, err := LoadSchema(cfg.SchemaPath)
	for _, iss := range issues {
		log.Printf("schema: %s", iss.Error())
	}
	if err != nil {
		return report.Envelope{}, err
	}

	start := now()
	snap, source, err := Open(ctx, cfg.Input, httpds.Config{})
	recordStep(cfg.Metrics.Job, "load", err, now().Sub(start))
	if err != nil {
		return report.Envelope{}, err
	}
	log.Printf("loaded %d rows x %d columns from %s", snap.Nrow(), snap.Ncol(), source)

	env, err := Validate(ctx, snap, source, s, cfg)
	if err != nil {
		return env, err
	}

	start = now()
	err = Emit(w, env, cfg.Output)
	recordStep(cfg.Metrics.Job, "report", err, now().Sub(start))
	return env, err
}
