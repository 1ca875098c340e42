package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"fareqa/internal/datasource/httpds"
	"fareqa/internal/metrics"
	"fareqa/internal/pipeline"
	"fareqa/internal/report"
	"fareqa/internal/validation"
)

// main prints the data summary report of a flight price dataset: overview,
// column types, missing values, duplicates, numeric and categorical
// summaries, fare insights, the quality score and recommendations.
func main() {
	var (
		cfgPath  string
		inputFlg string
	)
	flag.StringVar(&cfgPath, "config", "", "run config JSON path (defaults are used when empty)")
	flag.StringVar(&inputFlg, "input", "", "CSV file to summarise (overrides config and FAREQA_INPUT)")
	flag.Parse()

	cfg, issues, err := pipeline.LoadConfig(cfgPath, os.Getenv)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if err != nil && !errors.Is(err, pipeline.ErrInvalidConfig) {
		fatalf("config: %v", err)
	}
	if inputFlg != "" {
		cfg.Input.Kind = "csv"
		cfg.Input.Path = inputFlg
	} else if err != nil {
		fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	flush, err := pipeline.SetupMetrics(cfg.Metrics)
	if err != nil {
		log.Printf("metrics: %v; metrics disabled", err)
	}
	defer flush()

	start := time.Now()
	snap, source, err := pipeline.Open(ctx, cfg.Input, httpds.Config{})
	metrics.RecordStep(cfg.Metrics.Job, "load", err, time.Since(start))
	if err != nil {
		flush()
		fatalf("%v", err)
	}

	start = time.Now()
	s := report.NewSummary(snap, source, validation.DefaultRules().WithConfig(cfg.Rules))
	err = report.Summary(os.Stdout, s)
	metrics.RecordStep(cfg.Metrics.Job, "summary", err, time.Since(start))
	if err != nil {
		flush()
		fatalf("summary: %v", err)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
